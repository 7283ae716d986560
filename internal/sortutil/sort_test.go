package sortutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngenohkevin/hivedeck-drive/internal/models"
)

func names(entries []models.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func file(id int64, name, size, modified string) models.Entry {
	return models.Entry{ID: id, Name: name, Kind: models.KindFile, Size: size, ModifiedAt: modified}
}

func folder(id int64, name string) models.Entry {
	return models.Entry{ID: id, Name: name, Kind: models.KindFolder}
}

func TestSort_ByNameAndSize(t *testing.T) {
	entries := []models.Entry{
		file(1, "b.txt", "1.0 KB", ""),
		file(2, "a.txt", "2.0 KB", ""),
	}

	assert.Equal(t, []string{"a.txt", "b.txt"}, names(Sort(entries, Spec{FieldName, Ascending})))
	assert.Equal(t, []string{"a.txt", "b.txt"}, names(Sort(entries, Spec{FieldSize, Descending})))
	assert.Equal(t, []string{"b.txt", "a.txt"}, names(Sort(entries, Spec{FieldSize, Ascending})))
}

func TestSort_SizePinsFoldersFirst(t *testing.T) {
	entries := []models.Entry{
		file(2, "a.txt", "1.0 KB", ""),
		folder(1, "Z"),
	}

	for _, order := range []Order{Ascending, Descending} {
		sorted := Sort(entries, Spec{FieldSize, order})
		require.Len(t, sorted, 2)
		assert.Equal(t, "Z", sorted[0].Name, "order=%s", order)
	}
}

func TestSort_NumericAwareNames(t *testing.T) {
	entries := []models.Entry{
		file(1, "file10", "", ""),
		file(2, "file2", "", ""),
		file(3, "file1", "", ""),
	}

	assert.Equal(t, []string{"file1", "file2", "file10"}, names(Sort(entries, DefaultSpec())))
}

func TestSort_ByModified(t *testing.T) {
	entries := []models.Entry{
		file(1, "new", "", "2024-05-02T10:00:00Z"),
		file(2, "old", "", "2023-01-01T00:00:00Z"),
		file(3, "mid", "", "2024-01-15 08:30:00"),
	}

	assert.Equal(t, []string{"old", "mid", "new"}, names(Sort(entries, Spec{FieldModified, Ascending})))
	assert.Equal(t, []string{"new", "mid", "old"}, names(Sort(entries, Spec{FieldModified, Descending})))
}

func TestSort_ReversingOrderReversesSameKind(t *testing.T) {
	var entries []models.Entry
	for i := 0; i < 12; i++ {
		entries = append(entries, file(int64(i+1), fmt.Sprintf("f%d", i%4), fmt.Sprintf("%d KB", (i*7)%5+1), fmt.Sprintf("2024-01-%02dT00:00:00Z", i%3+1)))
	}

	for _, field := range []Field{FieldName, FieldModified, FieldSize} {
		asc := Sort(entries, Spec{field, Ascending})
		desc := Sort(entries, Spec{field, Descending})
		require.Len(t, desc, len(asc))
		for i := range asc {
			assert.Equal(t, asc[i].ID, desc[len(desc)-1-i].ID, "field=%s index=%d", field, i)
		}
	}
}

func TestCompare_TotalOrder(t *testing.T) {
	a := file(1, "same", "1 KB", "")
	b := file(2, "same", "1 KB", "")

	for _, field := range []Field{FieldName, FieldModified, FieldSize} {
		spec := Spec{field, Ascending}
		assert.Negative(t, Compare(a, b, spec))
		assert.Positive(t, Compare(b, a, spec))
		assert.Zero(t, Compare(a, a, spec))
	}
}

func TestSpec_Toggle(t *testing.T) {
	s := DefaultSpec()
	s = s.Toggle(FieldName)
	assert.Equal(t, Spec{FieldName, Descending}, s)
	s = s.Toggle(FieldName)
	assert.Equal(t, Spec{FieldName, Ascending}, s)
	s = s.Toggle(FieldName).Toggle(FieldSize)
	assert.Equal(t, Spec{FieldSize, Ascending}, s)
	assert.Equal(t, Spec{FieldSize, Descending}, s.Reverse())
}

func TestParseField(t *testing.T) {
	f, err := ParseField("Size")
	require.NoError(t, err)
	assert.Equal(t, FieldSize, f)

	f, err = ParseField("modified")
	require.NoError(t, err)
	assert.Equal(t, FieldModified, f)

	_, err = ParseField("owner")
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	assert.False(t, ParseTimestamp("2024-01-02T03:04:05Z").IsZero())
	assert.False(t, ParseTimestamp("2024-01-02T03:04:05.123").IsZero())
	assert.False(t, ParseTimestamp("2024-01-02").IsZero())
	assert.True(t, ParseTimestamp("yesterday").IsZero())
}
