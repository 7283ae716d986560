package navigator

import (
	"github.com/ngenohkevin/hivedeck-drive/internal/models"
	"github.com/ngenohkevin/hivedeck-drive/internal/sortutil"
)

// Snapshot is an immutable copy of the navigation state, the input of
// every renderer.
type Snapshot struct {
	CurrentFolderID *int64         `json:"currentFolderId"`
	Breadcrumbs     []Crumb        `json:"breadcrumbs"`
	Entries         []models.Entry `json:"entries"`
	Visible         []models.Entry `json:"visible"`
	Parent          *models.Entry  `json:"parent,omitempty"`
	Selected        []int64        `json:"selected"`
	Query           string         `json:"query"`
	Sort            sortutil.Spec  `json:"sort"`
	Mode            ViewMode       `json:"mode"`
	Loading         bool           `json:"loading"`
	Error           string         `json:"error,omitempty"`
	Generation      uint64         `json:"generation"`
}

// IsSelected reports whether id is in the selection.
func (s Snapshot) IsSelected(id int64) bool {
	for _, sel := range s.Selected {
		if sel == id {
			return true
		}
	}
	return false
}

// AllSelected reports whether every visible entry is selected.
func (s Snapshot) AllSelected() bool {
	return len(s.Visible) > 0 && len(s.Selected) == len(s.Visible)
}

// Snapshot copies the current state.
func (n *Navigator) Snapshot() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()

	snap := Snapshot{
		CurrentFolderID: copyID(n.currentLocked()),
		Breadcrumbs:     cloneCrumbs(n.crumbs),
		Entries:         append([]models.Entry(nil), n.entries...),
		Visible:         n.visibleLocked(),
		Parent:          n.parentEntryLocked(),
		Selected:        n.selected.IDs(),
		Query:           n.query,
		Sort:            n.sort,
		Mode:            n.mode,
		Loading:         n.loading,
		Generation:      n.generation,
	}
	if n.lastErr != nil {
		snap.Error = n.lastErr.Error()
	}
	return snap
}
