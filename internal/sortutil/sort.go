// Package sortutil orders drive entries and converts byte counts to and
// from display strings.
package sortutil

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ngenohkevin/hivedeck-drive/internal/models"
)

// Field is a sortable column.
type Field string

const (
	FieldName     Field = "name"
	FieldModified Field = "modified"
	FieldSize     Field = "size"
)

// Order is a sort direction.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// Spec selects the column and direction.
type Spec struct {
	Field Field `json:"field"`
	Order Order `json:"order"`
}

// DefaultSpec sorts by name, ascending.
func DefaultSpec() Spec {
	return Spec{Field: FieldName, Order: Ascending}
}

// Toggle returns the spec produced by clicking a column header: the same
// column flips direction, a new column starts ascending.
func (s Spec) Toggle(field Field) Spec {
	if s.Field == field {
		if s.Order == Ascending {
			return Spec{Field: field, Order: Descending}
		}
		return Spec{Field: field, Order: Ascending}
	}
	return Spec{Field: field, Order: Ascending}
}

// Reverse flips the direction.
func (s Spec) Reverse() Spec {
	return s.Toggle(s.Field)
}

// ParseField parses a column name.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name":
		return FieldName, nil
	case "modified", "modifiedat", "date":
		return FieldModified, nil
	case "size":
		return FieldSize, nil
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a backend timestamp. Unparseable values return the
// zero time so they compare equal to each other.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Comparator orders entries. Name comparison is locale-aware and
// numeric-aware, so "file2" sorts before "file10".
type Comparator struct {
	mu  sync.Mutex
	col *collate.Collator
}

// NewComparator creates a comparator for the given locale.
func NewComparator(tag language.Tag) *Comparator {
	return &Comparator{col: collate.New(tag, collate.Numeric)}
}

var defaultComparator = NewComparator(language.Und)

// CompareNames compares two display names.
func (c *Comparator) CompareNames(a, b string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.col.CompareString(a, b)
}

// Compare returns a negative, zero or positive result for a relative to b.
// Only identical ids compare equal, so the order is total.
func (c *Comparator) Compare(a, b models.Entry, spec Spec) int {
	var cmp int

	switch spec.Field {
	case FieldModified:
		cmp = ParseTimestamp(a.ModifiedAt).Compare(ParseTimestamp(b.ModifiedAt))
	case FieldSize:
		// Folders stay first whichever way the column is sorted.
		if a.IsFolder() && !b.IsFolder() {
			return -1
		}
		if !a.IsFolder() && b.IsFolder() {
			return 1
		}
		if a.IsFolder() {
			cmp = c.CompareNames(a.Name, b.Name)
		} else {
			cmp = compareInt(ParseSize(a.Size), ParseSize(b.Size))
		}
	default:
		cmp = c.CompareNames(a.Name, b.Name)
	}

	if cmp == 0 && spec.Field != FieldName {
		cmp = c.CompareNames(a.Name, b.Name)
	}
	if cmp == 0 {
		cmp = compareInt(a.ID, b.ID)
	}

	if spec.Order == Descending {
		return -cmp
	}
	return cmp
}

// Sort returns a sorted copy of entries.
func (c *Comparator) Sort(entries []models.Entry, spec Spec) []models.Entry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b models.Entry) int {
		return c.Compare(a, b, spec)
	})
	return out
}

// Compare orders two entries with the locale-neutral comparator.
func Compare(a, b models.Entry, spec Spec) int {
	return defaultComparator.Compare(a, b, spec)
}

// Sort returns a sorted copy of entries using the locale-neutral comparator.
func Sort(entries []models.Entry, spec Spec) []models.Entry {
	return defaultComparator.Sort(entries, spec)
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
