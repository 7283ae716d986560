package dragmove

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngenohkevin/hivedeck-drive/internal/drive"
	"github.com/ngenohkevin/hivedeck-drive/internal/drive/drivetest"
	"github.com/ngenohkevin/hivedeck-drive/internal/models"
	"github.com/ngenohkevin/hivedeck-drive/internal/navigator"
	"github.com/ngenohkevin/hivedeck-drive/internal/notify"
)

// fakeTree is a fixed parent map.
type fakeTree struct {
	entries   map[int64]models.Entry
	current   *int64
	moved     map[int64]*int64
	refreshes int
	uploads   []*int64
}

func newFakeTree(entries ...models.Entry) *fakeTree {
	t := &fakeTree{entries: map[int64]models.Entry{}, moved: map[int64]*int64{}}
	for _, e := range entries {
		t.entries[e.ID] = e
	}
	return t
}

func (t *fakeTree) Lookup(id int64) (models.Entry, bool) {
	e, ok := t.entries[id]
	return e, ok
}

func (t *fakeTree) ParentOf(id int64) (*int64, bool) {
	e, ok := t.entries[id]
	return e.ParentID, ok
}

func (t *fakeTree) IsKnownDescendant(target, ancestor int64) bool {
	for cur := target; ; {
		e, ok := t.entries[cur]
		if !ok || e.ParentID == nil {
			return false
		}
		if *e.ParentID == ancestor {
			return true
		}
		cur = *e.ParentID
	}
}

func (t *fakeTree) ResolveTarget(id int64) *int64 {
	if id == models.RootSentinelID {
		return nil
	}
	return models.ID(id)
}

func (t *fakeTree) CurrentFolder() *int64            { return t.current }
func (t *fakeTree) RootLabel() string                { return "My Drive" }
func (t *fakeTree) NoteMoved(id int64, parent *int64) { t.moved[id] = parent }
func (t *fakeTree) AfterMutation(context.Context)    { t.refreshes++ }

func (t *fakeTree) UploadTo(_ context.Context, _ []drive.UploadFile, target *int64) error {
	t.uploads = append(t.uploads, target)
	return nil
}

type fakeMover struct {
	calls []int64
	err   error
}

func (m *fakeMover) MoveEntry(_ context.Context, id int64, _ *int64) (drive.Ack, error) {
	m.calls = append(m.calls, id)
	return drive.Ack{}, m.err
}

func folderEntry(id int64, parent *int64) models.Entry {
	return models.Entry{ID: id, Name: "folder", Kind: models.KindFolder, ParentID: parent}
}

// 1 (root child) -> 5 -> 6 -> 7, plus file 9 in 1
func chainTree() *fakeTree {
	return newFakeTree(
		folderEntry(1, nil),
		folderEntry(5, models.ID(1)),
		folderEntry(6, models.ID(5)),
		folderEntry(7, models.ID(6)),
		models.Entry{ID: 9, Name: "f.txt", Kind: models.KindFile, ParentID: models.ID(1)},
	)
}

func TestDropOntoDescendantIsRejected(t *testing.T) {
	tree := chainTree()
	mover := &fakeMover{}
	notices := notify.NewQueue(10, nil)
	c := New(mover, tree, notices, nil)

	p := c.DragStart(5, models.KindFolder)
	err := c.Drop(context.Background(), p, 7)

	var cerr *MoveCycleError
	require.ErrorAs(t, err, &cerr)
	assert.False(t, cerr.Self)
	assert.Empty(t, mover.calls, "no move reaches the backend")
	assert.Zero(t, tree.refreshes)

	last, ok := notices.Last()
	require.True(t, ok)
	assert.Equal(t, notify.LevelError, last.Level)
	assert.False(t, c.State().Dragging, "drag state is cleared after a rejected drop")
}

func TestDropCycleLaw(t *testing.T) {
	tree := chainTree()
	mover := &fakeMover{}
	c := New(mover, tree, nil, nil)

	for _, target := range []int64{5, 6, 7} {
		err := c.Drop(context.Background(), EntryPayload(5, models.KindFolder), target)
		assert.True(t, IsCycle(err), "target %d", target)
	}
	assert.Empty(t, mover.calls)
}

func TestDropOntoSelf(t *testing.T) {
	c := New(&fakeMover{}, chainTree(), nil, nil)

	err := c.Drop(context.Background(), EntryPayload(9, models.KindFile), 9)

	var cerr *MoveCycleError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, cerr.Self)
}

func TestDropOntoCurrentParentIsNoop(t *testing.T) {
	mover := &fakeMover{}
	notices := notify.NewQueue(10, nil)
	c := New(mover, chainTree(), notices, nil)

	err := c.Drop(context.Background(), EntryPayload(6, models.KindFolder), 5)
	assert.ErrorIs(t, err, ErrAlreadyInFolder)
	assert.Empty(t, mover.calls)

	last, _ := notices.Last()
	assert.Equal(t, notify.LevelInfo, last.Level)
}

func TestDropOntoRootSentinel(t *testing.T) {
	tree := chainTree()
	mover := &fakeMover{}
	notices := notify.NewQueue(10, nil)
	c := New(mover, tree, notices, nil)

	require.NoError(t, c.Drop(context.Background(), EntryPayload(9, ""), models.RootSentinelID))
	assert.Equal(t, []int64{9}, mover.calls)
	moved, ok := tree.moved[9]
	require.True(t, ok)
	assert.Nil(t, moved)
	assert.Equal(t, 1, tree.refreshes)

	last, _ := notices.Last()
	assert.Equal(t, "Moved to My Drive", last.Message)

	// Entry 1 already sits at the root
	err := c.Drop(context.Background(), EntryPayload(1, models.KindFolder), models.RootSentinelID)
	assert.ErrorIs(t, err, ErrAlreadyInFolder)
}

func TestDropFileIntoSiblingFolder(t *testing.T) {
	mover := &fakeMover{}
	c := New(mover, chainTree(), nil, nil)

	// Files skip the descendant walk
	require.NoError(t, c.Drop(context.Background(), EntryPayload(9, models.KindFile), 7))
	assert.Equal(t, []int64{9}, mover.calls)
}

func TestBackendFailureIsReported(t *testing.T) {
	tree := chainTree()
	mover := &fakeMover{err: &drive.RemoteError{Op: drive.OpMove, Status: 500}}
	notices := notify.NewQueue(10, drive.UserMessage)
	c := New(mover, tree, notices, nil)

	err := c.Drop(context.Background(), EntryPayload(9, models.KindFile), 5)
	assert.True(t, drive.IsRemote(err))
	assert.Zero(t, tree.refreshes)
	assert.Empty(t, tree.moved)

	last, _ := notices.Last()
	assert.Equal(t, "move failed (status 500)", last.Message)
}

func TestDragOverOnlyAcceptsEntryMoves(t *testing.T) {
	c := New(&fakeMover{}, chainTree(), nil, nil)

	assert.False(t, c.DragOver(FilesPayload(nil), 5))
	assert.Nil(t, c.State().HoverID)

	p := c.DragStart(9, models.KindFile)
	assert.True(t, c.DragOver(p, 5))
	state := c.State()
	assert.True(t, state.Dragging)
	require.NotNil(t, state.HoverID)
	assert.Equal(t, int64(5), *state.HoverID)
	assert.Equal(t, int64(9), *state.DraggedID)

	c.DragLeave(6)
	assert.NotNil(t, c.State().HoverID)
	c.DragLeave(5)
	assert.Nil(t, c.State().HoverID)

	c.DragEnd()
	assert.Equal(t, State{}, c.State())
}

func TestFileIsNotADropTarget(t *testing.T) {
	tree := chainTree()
	mover := &fakeMover{}
	notices := notify.NewQueue(10, drive.UserMessage)
	c := New(mover, tree, notices, nil)

	p := c.DragStart(7, models.KindFolder)
	assert.False(t, c.DragOver(p, 9), "files get no hover feedback")
	assert.Nil(t, c.State().HoverID)

	err := c.Drop(context.Background(), p, 9)
	assert.True(t, drive.IsValidation(err))
	assert.False(t, IsCycle(err))
	assert.Empty(t, mover.calls, "no move reaches the backend")
	assert.Zero(t, tree.refreshes)

	last, ok := notices.Last()
	require.True(t, ok)
	assert.Equal(t, notify.LevelError, last.Level)
	assert.Equal(t, `"f.txt" is not a folder`, last.Message)
	assert.False(t, c.State().Dragging)

	// Unknown candidates stay acceptable; the backend decides
	assert.True(t, c.DragOver(c.DragStart(7, models.KindFolder), 42))
}

func TestDragStartLooksUpKind(t *testing.T) {
	c := New(&fakeMover{}, chainTree(), nil, nil)
	p := c.DragStart(5, "")
	assert.Equal(t, models.KindFolder, p.EntryKind)

	current, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, p, current)
}

func TestExternalFilesDropUploads(t *testing.T) {
	tree := chainTree()
	tree.current = models.ID(1)
	mover := &fakeMover{}
	c := New(mover, tree, nil, nil)

	files := []drive.UploadFile{{Name: "a.txt", Body: strings.NewReader("a")}}
	require.NoError(t, c.Drop(context.Background(), FilesPayload(files), 5))
	require.NoError(t, c.DropOnList(context.Background(), FilesPayload(files)))

	require.Len(t, tree.uploads, 2)
	assert.Equal(t, int64(5), *tree.uploads[0])
	assert.Equal(t, int64(1), *tree.uploads[1])
	assert.Empty(t, mover.calls)
}

func TestPayloadEncoding(t *testing.T) {
	data, err := EntryPayload(5, models.KindFolder).Encode()
	require.NoError(t, err)

	p, err := DecodePayload(data)
	require.NoError(t, err)
	assert.Equal(t, EntryPayload(5, models.KindFolder), p)

	_, err = FilesPayload(nil).Encode()
	assert.ErrorIs(t, err, ErrNotEntryMove)

	_, err = DecodePayload([]byte(`{"kind":"files"}`))
	assert.ErrorIs(t, err, ErrNotEntryMove)

	_, err = DecodePayload([]byte(`nope`))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotEntryMove))
}

// Against the navigator and the fake backend: the descendant chain is
// learned from browsing, and the backend is only reached for valid drops.
func TestDropWithNavigator(t *testing.T) {
	srv := drivetest.New(t)
	a := srv.AddFolder("A", nil)
	b := srv.AddFolder("B", models.ID(a))
	cID := srv.AddFolder("C", models.ID(b))
	file := srv.AddFile("f.txt", models.ID(a), []byte("f"), "")

	client, err := drive.New(drive.Options{BaseURL: srv.APIURL(), Timeout: 5 * time.Second})
	require.NoError(t, err)
	nav := navigator.New(client, navigator.Options{})
	t.Cleanup(nav.Close)
	ctx := context.Background()

	require.NoError(t, nav.Start(ctx))
	require.NoError(t, nav.OpenFolderByID(ctx, a))
	require.NoError(t, nav.OpenFolderByID(ctx, b))
	require.NoError(t, nav.GoToParent(ctx))

	c := New(client, nav, nil, nil)

	err = c.Drop(ctx, c.DragStart(a, models.KindFolder), cID)
	assert.True(t, IsCycle(err))
	assert.Equal(t, 0, srv.Calls(drivetest.OpMove))

	// Onto the parent entry: A's parent is the root
	parent := nav.ParentEntry()
	require.NotNil(t, parent)
	require.NoError(t, c.Drop(ctx, c.DragStart(file, models.KindFile), parent.ID))
	assert.Equal(t, []drivetest.MoveCall{{ID: file, NewParent: nil}}, srv.Moves())

	names := []string{}
	for _, e := range nav.Snapshot().Visible {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"B"}, names)

	err = c.Drop(ctx, c.DragStart(file, models.KindFile), parent.ID)
	assert.ErrorIs(t, err, ErrAlreadyInFolder)
	assert.Len(t, srv.Moves(), 1)
}
