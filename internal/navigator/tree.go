package navigator

import "github.com/ngenohkevin/hivedeck-drive/internal/models"

// knownTree indexes every entry the session has seen, keyed by id. It is
// only as complete as the listings and breadcrumb trails observed so far.
type knownTree struct {
	entries map[int64]models.Entry
	parents map[int64]*int64
}

func newKnownTree() *knownTree {
	return &knownTree{
		entries: make(map[int64]models.Entry),
		parents: make(map[int64]*int64),
	}
}

// recordListing stores the children of folder. The requested folder is
// authoritative for the children's parent. Entries previously filed under
// folder that are missing from the listing have moved or been deleted.
func (t *knownTree) recordListing(folder *int64, entries []models.Entry) {
	present := make(map[int64]struct{}, len(entries))
	for _, e := range entries {
		present[e.ID] = struct{}{}
	}
	for id, parent := range t.parents {
		if _, ok := present[id]; !ok && models.SameFolder(parent, folder) {
			t.forget(id)
		}
	}

	for _, e := range entries {
		e.ParentID = copyID(folder)
		t.entries[e.ID] = e
		t.parents[e.ID] = e.ParentID
	}
}

// recordTrail stores the parent links implied by a breadcrumb trail.
func (t *knownTree) recordTrail(crumbs []Crumb) {
	for i := 1; i < len(crumbs); i++ {
		id := crumbs[i].FolderID
		if id == nil {
			continue
		}
		parent := copyID(crumbs[i-1].FolderID)
		t.parents[*id] = parent
		if _, ok := t.entries[*id]; !ok {
			t.entries[*id] = models.Entry{ID: *id, Name: crumbs[i].Name, Kind: models.KindFolder, ParentID: parent}
		}
	}
}

func (t *knownTree) lookup(id int64) (models.Entry, bool) {
	e, ok := t.entries[id]
	return e, ok
}

// parentOf returns the known parent of id.
func (t *knownTree) parentOf(id int64) (*int64, bool) {
	p, ok := t.parents[id]
	return p, ok
}

// isDescendant reports whether target lies strictly below ancestor, judged
// from the links seen so far. Unknown links end the walk.
func (t *knownTree) isDescendant(target, ancestor int64) bool {
	visited := make(map[int64]struct{})
	cur := target
	for {
		if _, seen := visited[cur]; seen {
			return false
		}
		visited[cur] = struct{}{}

		parent, ok := t.parents[cur]
		if !ok || parent == nil {
			return false
		}
		if *parent == ancestor {
			return true
		}
		cur = *parent
	}
}

func (t *knownTree) noteMoved(id int64, newParent *int64) {
	p := copyID(newParent)
	t.parents[id] = p
	if e, ok := t.entries[id]; ok {
		e.ParentID = p
		t.entries[id] = e
	}
}

func (t *knownTree) forget(id int64) {
	delete(t.entries, id)
	delete(t.parents, id)
}

func (t *knownTree) size() int {
	return len(t.entries)
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
