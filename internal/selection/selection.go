// Package selection tracks which entries of the active view are selected.
package selection

import "slices"

// Set is a set of entry ids scoped to the current folder view.
// It is not safe for concurrent use; the navigator guards it.
type Set struct {
	ids map[int64]struct{}
}

// New creates an empty selection.
func New() *Set {
	return &Set{ids: make(map[int64]struct{})}
}

// Toggle adds id if absent and removes it if present.
func (s *Set) Toggle(id int64) {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

// SelectAll selects every visible id unless all of them are already
// selected, in which case it clears the selection.
func (s *Set) SelectAll(visible []int64) {
	if len(visible) > 0 && s.containsAll(visible) {
		s.Clear()
		return
	}
	s.SetAll(true, visible)
}

// SetAll selects exactly the visible ids when checked, otherwise clears.
func (s *Set) SetAll(checked bool, visible []int64) {
	s.Clear()
	if !checked {
		return
	}
	for _, id := range visible {
		s.ids[id] = struct{}{}
	}
}

// Retain drops every id that is not visible.
func (s *Set) Retain(visible []int64) {
	keep := make(map[int64]struct{}, len(visible))
	for _, id := range visible {
		keep[id] = struct{}{}
	}
	for id := range s.ids {
		if _, ok := keep[id]; !ok {
			delete(s.ids, id)
		}
	}
}

// Clear empties the selection.
func (s *Set) Clear() {
	clear(s.ids)
}

// Has reports whether id is selected.
func (s *Set) Has(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids.
func (s *Set) Len() int {
	return len(s.ids)
}

// IDs returns the selected ids in ascending order.
func (s *Set) IDs() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (s *Set) containsAll(ids []int64) bool {
	for _, id := range ids {
		if _, ok := s.ids[id]; !ok {
			return false
		}
	}
	return true
}
