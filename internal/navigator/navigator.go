// Package navigator owns the user's position in the remote drive: the
// current folder, the breadcrumb trail, the synthesized parent entry, the
// selection and the search filter. Every structural change goes through a
// full re-fetch of the current folder, and responses that arrive after a
// newer navigation are discarded.
package navigator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ngenohkevin/hivedeck-drive/internal/cache"
	"github.com/ngenohkevin/hivedeck-drive/internal/drive"
	"github.com/ngenohkevin/hivedeck-drive/internal/logging"
	"github.com/ngenohkevin/hivedeck-drive/internal/metrics"
	"github.com/ngenohkevin/hivedeck-drive/internal/models"
	"github.com/ngenohkevin/hivedeck-drive/internal/notify"
	"github.com/ngenohkevin/hivedeck-drive/internal/selection"
	"github.com/ngenohkevin/hivedeck-drive/internal/sortutil"
)

// OpOpen names navigation failures in notices.
const OpOpen = "open"

// Remote is the subset of the drive client the navigator depends on.
type Remote interface {
	ListChildren(ctx context.Context, parent *int64) ([]models.Entry, error)
	CreateFolder(ctx context.Context, name string, parent *int64) (*models.Entry, error)
	DeleteEntries(ctx context.Context, ids []int64) (drive.Ack, error)
	UploadFiles(ctx context.Context, files []drive.UploadFile, parent *int64) (drive.Ack, error)
	DownloadSingle(ctx context.Context, id int64, fallback string) (*drive.Download, error)
	DownloadZip(ctx context.Context, ids []int64) (*drive.Download, error)
	Usage(ctx context.Context) (models.Usage, error)
}

// ViewMode selects the renderer.
type ViewMode string

const (
	ViewList ViewMode = "list"
	ViewGrid ViewMode = "grid"
)

// ParseViewMode validates a view mode name.
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(s))) {
	case ViewList:
		return ViewList, nil
	case ViewGrid:
		return ViewGrid, nil
	}
	return "", fmt.Errorf("unknown view mode %q", s)
}

// Crumb is one breadcrumb. A nil FolderID denotes the root.
type Crumb struct {
	FolderID *int64 `json:"folderId"`
	Name     string `json:"name"`
}

// Options configures a Navigator.
type Options struct {
	RootLabel     string
	Locale        language.Tag
	UsageCacheTTL time.Duration
	Notices       notify.Sink
	Logger        *logging.Logger
}

// Navigator is the navigation state machine. It is safe for concurrent
// use; remote calls run without holding the lock.
type Navigator struct {
	remote    Remote
	notices   notify.Sink
	log       *logging.Logger
	rootLabel string
	cmp       *sortutil.Comparator
	fold      cases.Caser

	mu         sync.Mutex
	crumbs     []Crumb
	entries    []models.Entry
	selected   *selection.Set
	query      string
	sort       sortutil.Spec
	mode       ViewMode
	loading    bool
	generation uint64
	lastErr    error
	tree       *knownTree

	usage      *cache.Cache[models.Usage]
	usageGroup singleflight.Group
}

// New creates a navigator positioned at the root. Call Start to fetch.
func New(remote Remote, opts Options) *Navigator {
	if opts.RootLabel == "" {
		opts.RootLabel = "My Drive"
	}
	if opts.UsageCacheTTL <= 0 {
		opts.UsageCacheTTL = 30 * time.Second
	}
	if opts.Notices == nil {
		opts.Notices = notify.Discard{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	return &Navigator{
		remote:    remote,
		notices:   opts.Notices,
		log:       opts.Logger.Component("navigator"),
		rootLabel: opts.RootLabel,
		cmp:       sortutil.NewComparator(opts.Locale),
		fold:      cases.Fold(),
		crumbs:    []Crumb{{Name: opts.RootLabel}},
		selected:  selection.New(),
		sort:      sortutil.DefaultSpec(),
		mode:      ViewList,
		tree:      newKnownTree(),
		usage:     cache.New[models.Usage](opts.UsageCacheTTL),
	}
}

// Close releases the usage cache.
func (n *Navigator) Close() {
	n.usage.Close()
}

// RootLabel returns the name of the root breadcrumb.
func (n *Navigator) RootLabel() string {
	return n.rootLabel
}

// Start performs the initial fetch of the root.
func (n *Navigator) Start(ctx context.Context) error {
	return n.ResetToRoot(ctx)
}

// OpenFolder descends into entry. The synthesized parent entry goes up instead.
func (n *Navigator) OpenFolder(ctx context.Context, entry models.Entry) error {
	n.mu.Lock()
	if parent := n.parentEntryLocked(); parent != nil && parent.ID == entry.ID {
		n.mu.Unlock()
		return n.GoToParent(ctx)
	}
	if !entry.IsFolder() {
		n.mu.Unlock()
		err := drive.Invalid(OpOpen, fmt.Sprintf("%q is not a folder", entry.Name))
		n.notices.Failure(OpOpen, err)
		return err
	}

	crumbs := append(cloneCrumbs(n.crumbs), Crumb{FolderID: models.ID(entry.ID), Name: entry.Name})
	gen, folder := n.beginLocked(crumbs)
	n.mu.Unlock()

	n.log.Debug().Int64("folder", entry.ID).Str("name", entry.Name).Msg("open folder")
	return n.fetch(ctx, gen, folder)
}

// OpenFolderByID opens a folder from the current view, or the parent
// entry when id matches it.
func (n *Navigator) OpenFolderByID(ctx context.Context, id int64) error {
	entry, ok := n.visibleEntry(id)
	if !ok {
		err := drive.Invalid(OpOpen, fmt.Sprintf("entry %d is not in the current folder", id))
		n.notices.Failure(OpOpen, err)
		return err
	}
	return n.OpenFolder(ctx, entry)
}

// JumpToBreadcrumb truncates the trail after index and opens that folder.
func (n *Navigator) JumpToBreadcrumb(ctx context.Context, index int) error {
	n.mu.Lock()
	if index < 0 || index >= len(n.crumbs) {
		n.mu.Unlock()
		err := drive.Invalid(OpOpen, fmt.Sprintf("breadcrumb %d does not exist", index))
		n.notices.Failure(OpOpen, err)
		return err
	}

	gen, folder := n.beginLocked(cloneCrumbs(n.crumbs[:index+1]))
	n.mu.Unlock()

	return n.fetch(ctx, gen, folder)
}

// GoToParent opens the enclosing folder. At the root it does nothing.
func (n *Navigator) GoToParent(ctx context.Context) error {
	n.mu.Lock()
	depth := len(n.crumbs)
	if depth <= 1 {
		n.mu.Unlock()
		return nil
	}
	gen, folder := n.beginLocked(cloneCrumbs(n.crumbs[:depth-1]))
	n.mu.Unlock()

	return n.fetch(ctx, gen, folder)
}

// ResetToRoot replaces the trail with the root alone and fetches it.
func (n *Navigator) ResetToRoot(ctx context.Context) error {
	n.mu.Lock()
	gen, folder := n.beginLocked([]Crumb{{Name: n.rootLabel}})
	n.mu.Unlock()

	return n.fetch(ctx, gen, folder)
}

// Refresh re-fetches the current folder, keeping the trail, the filter and
// whatever part of the selection is still visible afterwards.
func (n *Navigator) Refresh(ctx context.Context) error {
	n.mu.Lock()
	n.generation++
	gen := n.generation
	n.loading = true
	folder := n.currentLocked()
	n.mu.Unlock()

	return n.fetch(ctx, gen, folder)
}

// beginLocked installs a new trail and clears everything derived from the
// previous folder before the fetch is issued.
func (n *Navigator) beginLocked(crumbs []Crumb) (uint64, *int64) {
	n.crumbs = crumbs
	n.entries = nil
	n.selected.Clear()
	n.query = ""
	n.lastErr = nil
	n.loading = true
	n.generation++
	n.tree.recordTrail(crumbs)
	return n.generation, n.currentLocked()
}

// fetch lists folder and applies the result only if gen is still current.
func (n *Navigator) fetch(ctx context.Context, gen uint64, folder *int64) error {
	entries, err := n.remote.ListChildren(ctx, folder)

	n.mu.Lock()
	if gen != n.generation {
		n.mu.Unlock()
		metrics.RecordStaleResponse()
		n.log.Debug().Str("folder", models.FolderLabel(folder)).Uint64("generation", gen).Msg("discarded stale listing")
		return nil
	}

	n.loading = false
	if err != nil {
		n.lastErr = err
		n.mu.Unlock()
		n.notices.Failure(drive.OpList, err)
		return err
	}

	n.lastErr = nil
	for i := range entries {
		entries[i].ParentID = copyID(folder)
	}
	n.entries = entries
	n.tree.recordListing(folder, entries)
	n.selected.Retain(n.visibleIDsLocked())
	n.mu.Unlock()

	return nil
}

// SetQuery changes the search filter. A changed filter clears the selection.
func (n *Navigator) SetQuery(query string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if query == n.query {
		return
	}
	n.query = query
	n.selected.Clear()
}

// ToggleSort applies a click on a column header.
func (n *Navigator) ToggleSort(field sortutil.Field) sortutil.Spec {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sort = n.sort.Toggle(field)
	return n.sort
}

// SetSort replaces the sort spec.
func (n *Navigator) SetSort(spec sortutil.Spec) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sort = spec
}

// SetViewMode switches between list and grid.
func (n *Navigator) SetViewMode(mode ViewMode) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mode = mode
}

// Toggle flips the selection of a visible entry. It reports false when id
// is not visible.
func (n *Navigator) Toggle(id int64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.isVisibleLocked(id) {
		return false
	}
	n.selected.Toggle(id)
	return true
}

// SelectAll selects every visible entry, or clears when all are selected.
func (n *Navigator) SelectAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.selected.SelectAll(n.visibleIDsLocked())
}

// SetAll is the checkbox form of SelectAll.
func (n *Navigator) SetAll(checked bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.selected.SetAll(checked, n.visibleIDsLocked())
}

// CurrentFolder returns the id of the open folder, nil at the root.
func (n *Navigator) CurrentFolder() *int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return copyID(n.currentLocked())
}

// Breadcrumbs returns a copy of the trail.
func (n *Navigator) Breadcrumbs() []Crumb {
	n.mu.Lock()
	defer n.mu.Unlock()
	return cloneCrumbs(n.crumbs)
}

// ParentEntry returns the synthesized "go up" entry, nil at the root.
func (n *Navigator) ParentEntry() *models.Entry {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.parentEntryLocked()
}

// ResolveTarget maps a drop target id to a folder id. The root sentinel
// maps to nil.
func (n *Navigator) ResolveTarget(id int64) *int64 {
	if id == models.RootSentinelID {
		return nil
	}
	return models.ID(id)
}

// Lookup returns what the session knows about id: the current view first,
// then the known-tree index.
func (n *Navigator) Lookup(id int64) (models.Entry, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, e := range n.entries {
		if e.ID == id {
			return e, true
		}
	}
	if parent := n.parentEntryLocked(); parent != nil && parent.ID == id {
		return *parent, true
	}
	return n.tree.lookup(id)
}

// ParentOf returns the known parent of id.
func (n *Navigator) ParentOf(id int64) (*int64, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.tree.parentOf(id)
	return copyID(p), ok
}

// IsKnownDescendant reports whether target is below ancestor according to
// every listing and trail seen so far.
func (n *Navigator) IsKnownDescendant(target, ancestor int64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tree.isDescendant(target, ancestor)
}

// NoteMoved records a move the backend accepted.
func (n *Navigator) NoteMoved(id int64, newParent *int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tree.noteMoved(id, newParent)
}

// KnownEntries returns the size of the known-tree index.
func (n *Navigator) KnownEntries() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tree.size()
}

func (n *Navigator) currentLocked() *int64 {
	return n.crumbs[len(n.crumbs)-1].FolderID
}

// parentEntryLocked derives the "go up" entry from crumbs[len-2].
func (n *Navigator) parentEntryLocked() *models.Entry {
	if len(n.crumbs) < 2 {
		return nil
	}

	up := n.crumbs[len(n.crumbs)-2]
	if up.FolderID == nil {
		return &models.Entry{ID: models.RootSentinelID, Name: n.rootLabel, Kind: models.KindFolder}
	}

	entry := &models.Entry{ID: *up.FolderID, Name: up.Name, Kind: models.KindFolder}
	if len(n.crumbs) >= 3 {
		entry.ParentID = copyID(n.crumbs[len(n.crumbs)-3].FolderID)
	}
	return entry
}

// visibleLocked applies the search filter and the sort spec.
func (n *Navigator) visibleLocked() []models.Entry {
	filtered := n.entries
	if q := strings.TrimSpace(n.query); q != "" {
		needle := n.fold.String(q)
		filtered = make([]models.Entry, 0, len(n.entries))
		for _, e := range n.entries {
			if strings.Contains(n.fold.String(e.Name), needle) {
				filtered = append(filtered, e)
			}
		}
	}
	return n.cmp.Sort(filtered, n.sort)
}

func (n *Navigator) visibleIDsLocked() []int64 {
	visible := n.visibleLocked()
	ids := make([]int64, len(visible))
	for i, e := range visible {
		ids[i] = e.ID
	}
	return ids
}

func (n *Navigator) isVisibleLocked(id int64) bool {
	for _, vid := range n.visibleIDsLocked() {
		if vid == id {
			return true
		}
	}
	return false
}

func (n *Navigator) visibleEntry(id int64) (models.Entry, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if parent := n.parentEntryLocked(); parent != nil && parent.ID == id {
		return *parent, true
	}
	for _, e := range n.visibleLocked() {
		if e.ID == id {
			return e, true
		}
	}
	return models.Entry{}, false
}

func cloneCrumbs(crumbs []Crumb) []Crumb {
	out := make([]Crumb, len(crumbs))
	for i, c := range crumbs {
		out[i] = Crumb{FolderID: copyID(c.FolderID), Name: c.Name}
	}
	return out
}
