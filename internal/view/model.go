// Package view turns a navigator snapshot and the drag state into a
// view model, and renders it as a list or a grid. It holds no state.
package view

import (
	"fmt"

	"github.com/ngenohkevin/hivedeck-drive/internal/dragmove"
	"github.com/ngenohkevin/hivedeck-drive/internal/models"
	"github.com/ngenohkevin/hivedeck-drive/internal/navigator"
	"github.com/ngenohkevin/hivedeck-drive/internal/sortutil"
	"github.com/ngenohkevin/hivedeck-drive/internal/thumbnail"
)

// Input is everything a render depends on.
type Input struct {
	Snapshot navigator.Snapshot
	Drag     dragmove.State
	Usage    *models.Usage
}

// Row is one line of the list or one cell of the grid.
type Row struct {
	ID        int64           `json:"id"`
	Label     string          `json:"label"`
	Kind      models.Kind     `json:"kind"`
	Category  models.Category `json:"category"`
	Size      string          `json:"size,omitempty"`
	Modified  string          `json:"modified,omitempty"`
	Selected  bool            `json:"selected"`
	DragOver  bool            `json:"dragOver"`
	Dragged   bool            `json:"dragged"`
	IsParent  bool            `json:"isParent"`
	Thumbnail bool            `json:"thumbnail"`
}

// Column is a sortable list header.
type Column struct {
	Field     sortutil.Field `json:"field"`
	Title     string         `json:"title"`
	Active    bool           `json:"active"`
	Indicator string         `json:"indicator,omitempty"`
}

// Model is the renderer-independent view.
type Model struct {
	Mode          navigator.ViewMode `json:"mode"`
	Breadcrumbs   []string           `json:"breadcrumbs"`
	Columns       []Column           `json:"columns"`
	Rows          []Row              `json:"rows"`
	SelectedCount int                `json:"selectedCount"`
	AllSelected   bool               `json:"allSelected"`
	Query         string             `json:"query,omitempty"`
	Loading       bool               `json:"loading"`
	Empty         string             `json:"empty,omitempty"`
	Error         string             `json:"error,omitempty"`
	UsageLine     string             `json:"usage,omitempty"`
}

var columnTitles = []struct {
	field sortutil.Field
	title string
}{
	{sortutil.FieldName, "Name"},
	{sortutil.FieldModified, "Modified"},
	{sortutil.FieldSize, "Size"},
}

// Build derives the view model. The parent entry, when present, is the
// first row.
func Build(in Input) Model {
	snap := in.Snapshot

	m := Model{
		Mode:          snap.Mode,
		SelectedCount: len(snap.Selected),
		AllSelected:   snap.AllSelected(),
		Query:         snap.Query,
		Loading:       snap.Loading,
		Error:         snap.Error,
	}

	for _, c := range snap.Breadcrumbs {
		m.Breadcrumbs = append(m.Breadcrumbs, c.Name)
	}

	for _, col := range columnTitles {
		c := Column{Field: col.field, Title: col.title}
		if snap.Sort.Field == col.field {
			c.Active = true
			c.Indicator = "↑"
			if snap.Sort.Order == sortutil.Descending {
				c.Indicator = "↓"
			}
		}
		m.Columns = append(m.Columns, c)
	}

	if snap.Parent != nil {
		row := buildRow(*snap.Parent, snap, in.Drag)
		row.Label = "../" + snap.Parent.Name
		row.IsParent = true
		row.Selected = false
		row.Modified = ""
		m.Rows = append(m.Rows, row)
	}
	for _, e := range snap.Visible {
		m.Rows = append(m.Rows, buildRow(e, snap, in.Drag))
	}

	switch {
	case snap.Loading:
	case len(snap.Visible) == 0 && snap.Query != "":
		m.Empty = fmt.Sprintf("No items match %q", snap.Query)
	case len(snap.Visible) == 0:
		m.Empty = "This folder is empty"
	}

	if in.Usage != nil {
		m.UsageLine = UsageLine(*in.Usage)
	}

	return m
}

func buildRow(e models.Entry, snap navigator.Snapshot, drag dragmove.State) Row {
	row := Row{
		ID:        e.ID,
		Label:     e.Name,
		Kind:      e.Kind,
		Category:  e.Category(),
		Size:      e.Size,
		Modified:  formatModified(e.ModifiedAt),
		Selected:  snap.IsSelected(e.ID),
		Thumbnail: thumbnail.Eligible(e),
	}
	if e.IsFolder() && drag.HoverID != nil && *drag.HoverID == e.ID {
		row.DragOver = true
	}
	if drag.DraggedID != nil && *drag.DraggedID == e.ID {
		row.Dragged = true
	}
	if row.Size == "" && !e.IsFolder() {
		row.Size = "-"
	}
	return row
}

func formatModified(s string) string {
	t := sortutil.ParseTimestamp(s)
	if t.IsZero() {
		return s
	}
	return t.Local().Format("2006-01-02 15:04")
}

// UsageLine summarizes storage use, e.g. "1.5 GB of 15 GB used (10%)".
func UsageLine(u models.Usage) string {
	used := sortutil.FormatSize(u.UsedBytes)
	if u.LimitGB <= 0 {
		return fmt.Sprintf("%s used", used)
	}
	return fmt.Sprintf("%s of %g GB used (%.0f%%)", used, u.LimitGB, u.Percent())
}
