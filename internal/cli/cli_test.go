package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngenohkevin/hivedeck-drive/internal/dragmove"
	"github.com/ngenohkevin/hivedeck-drive/internal/drive"
	"github.com/ngenohkevin/hivedeck-drive/internal/drive/drivetest"
	"github.com/ngenohkevin/hivedeck-drive/internal/models"
)

type fixture struct {
	srv *drivetest.Server
	ids map[string]int64
}

// newFixture serves root/{Albums/{Trips/}, Music/, notes.txt}.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	srv := drivetest.New(t)
	ids := map[string]int64{}
	ids["Albums"] = srv.AddFolder("Albums", nil)
	ids["Trips"] = srv.AddFolder("Trips", models.ID(ids["Albums"]))
	ids["Music"] = srv.AddFolder("Music", nil)
	ids["notes.txt"] = srv.AddFile("notes.txt", nil, []byte("hello"), "text/plain")
	return &fixture{srv: srv, ids: ids}
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)

	global := []string{
		"--api-url", f.srv.APIURL(),
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
	}
	rootCmd.SetArgs(append(global, args...))

	err := rootCmd.Execute()
	return out.String(), err
}

func (f *fixture) id(name string) string {
	return strconv.FormatInt(f.ids[name], 10)
}

func TestParseFolderID(t *testing.T) {
	for _, s := range []string{"", "root", "ROOT", " ", "-1"} {
		id, err := parseFolderID(s)
		require.NoError(t, err, s)
		assert.Nil(t, id, s)
	}

	id, err := parseFolderID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), *id)

	_, err = parseFolderID("home")
	assert.Error(t, err)
}

func TestLs(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "ls")
	require.NoError(t, err)

	assert.Contains(t, out, "NAME")
	albums := strings.Index(out, "Albums/")
	music := strings.Index(out, "Music/")
	notes := strings.Index(out, "notes.txt")
	require.True(t, albums >= 0 && music >= 0 && notes >= 0, out)
	assert.Less(t, albums, music)
	assert.Less(t, music, notes)
	assert.NotContains(t, out, "Trips")
}

func TestLs_Folder(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "ls", f.id("Albums"))
	require.NoError(t, err)
	assert.Contains(t, out, "Trips/")
	assert.NotContains(t, out, "notes.txt")

	out, err = f.run(t, "ls", f.id("Trips"))
	require.NoError(t, err)
	assert.Contains(t, out, "This folder is empty")
}

func TestLs_JSONDescending(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "ls", "--json", "--desc")
	require.NoError(t, err)

	var entries []models.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))

	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"notes.txt", "Music", "Albums"}, names)
}

func TestLs_InvalidArguments(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "ls", "--sort", "colour")
	assert.Error(t, err)

	_, err = f.run(t, "ls", "abc")
	assert.Error(t, err)
}

func TestMkdir(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "mkdir", "Invoices", "--parent", f.id("Music"))
	require.NoError(t, err)
	assert.Contains(t, out, "Folder created")
	assert.Equal(t, []string{"Invoices"}, f.srv.Names(models.ID(f.ids["Music"])))

	_, err = f.run(t, "mkdir", "   ")
	assert.Error(t, err)
	assert.Equal(t, 1, f.srv.Calls(drivetest.OpCreateFolder))
}

func TestRm(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "rm", f.id("notes.txt"), f.id("Albums"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓")

	assert.False(t, f.srv.Exists(f.ids["notes.txt"]))
	assert.False(t, f.srv.Exists(f.ids["Albums"]))
	assert.Equal(t, []string{"Music"}, f.srv.Names(nil))

	_, err = f.run(t, "rm")
	assert.Error(t, err)
}

func TestMv(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "mv", f.id("notes.txt"), "--to", f.id("Music"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓")

	parent, ok := f.srv.ParentOf(f.ids["notes.txt"])
	require.True(t, ok)
	require.NotNil(t, parent)
	assert.Equal(t, f.ids["Music"], *parent)

	// Back to the root
	_, err = f.run(t, "mv", f.id("notes.txt"), "--to", "root")
	require.NoError(t, err)
	parent, _ = f.srv.ParentOf(f.ids["notes.txt"])
	assert.Nil(t, parent)
}

func TestMv_IntoDescendantIsRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "mv", f.id("Albums"), "--to", f.id("Trips"))
	assert.True(t, dragmove.IsCycle(err))

	_, err = f.run(t, "mv", f.id("Albums"), "--to", f.id("Albums"))
	assert.True(t, dragmove.IsCycle(err))

	assert.Zero(t, f.srv.Calls(drivetest.OpMove))
}

func TestMv_AlreadyInFolder(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "mv", f.id("Trips"), "--to", f.id("Albums"))
	require.NoError(t, err)
	assert.Contains(t, out, "already in that folder")
	assert.Zero(t, f.srv.Calls(drivetest.OpMove))
}

func TestMv_DryRun(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "mv", f.id("Trips"), "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Trips can be moved")
	assert.Zero(t, f.srv.Calls(drivetest.OpMove))
}

func TestMv_Unknown(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "mv", "999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = f.run(t, "mv", f.id("Trips"), "--to", f.id("notes.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a folder")
}

func TestUpload(t *testing.T) {
	f := newFixture(t)

	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("aaa"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("bb"), 0o644))

	out, err := f.run(t, "upload", a, b, "--parent", f.id("Music"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓")
	assert.Equal(t, []string{"a.txt", "b.txt"}, f.srv.Names(models.ID(f.ids["Music"])))

	_, err = f.run(t, "upload", dir)
	assert.Error(t, err)
}

func TestDownload(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()

	out, err := f.run(t, "download", f.id("notes.txt"), "-o", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved")

	data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	// A second download does not overwrite the first
	out, err = f.run(t, "download", f.id("notes.txt"), "-o", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "renamed")
	assert.FileExists(t, filepath.Join(dir, "notes (1).txt"))
}

func TestUsage(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "usage")
	require.NoError(t, err)
	assert.Contains(t, out, "used")

	out, err = f.run(t, "usage", "--json")
	require.NoError(t, err)
	var u models.Usage
	require.NoError(t, json.Unmarshal([]byte(out), &u))
	assert.Equal(t, int64(len("hello")), u.UsedBytes)
}

func TestMissingAPIURL(t *testing.T) {
	t.Setenv("DRIVE_API_URL", "")

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env"), "ls"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DRIVE_API_URL")
}

type countingLister struct {
	tree  map[int64][]models.Entry
	calls int
}

func (l *countingLister) ListChildren(_ context.Context, parent *int64) ([]models.Entry, error) {
	l.calls++
	key := models.RootSentinelID
	if parent != nil {
		key = *parent
	}
	return l.tree[key], nil
}

func TestCrawlTree(t *testing.T) {
	folder := func(id int64) models.Entry { return models.Entry{ID: id, Name: "f", Kind: models.KindFolder} }
	lister := &countingLister{tree: map[int64][]models.Entry{
		models.RootSentinelID: {folder(1), folder(2)},
		1:                     {folder(3)},
		2:                     {folder(4)},
		3:                     {folder(5)},
	}}

	tree := newCrawlTree(lister, "My Drive")
	require.NoError(t, tree.crawl(context.Background(), []int64{3}, 100))
	assert.Equal(t, 2, lister.calls, "stops once every wanted id is seen")

	parent, ok := tree.ParentOf(3)
	require.True(t, ok)
	assert.Equal(t, int64(1), *parent)

	require.NoError(t, tree.crawl(context.Background(), []int64{5}, 100))
	assert.True(t, tree.IsKnownDescendant(5, 1))
	assert.False(t, tree.IsKnownDescendant(5, 2))

	tree.NoteMoved(5, nil)
	assert.False(t, tree.IsKnownDescendant(5, 1))

	limited := newCrawlTree(&countingLister{tree: lister.tree}, "My Drive")
	require.NoError(t, limited.crawl(context.Background(), []int64{99}, 2))
	_, ok = limited.Lookup(5)
	assert.False(t, ok)
}

func TestProgress_NonTerminalIsSilent(t *testing.T) {
	var out bytes.Buffer
	counter, done := newProgress(&out, 10, "uploading")
	assert.Equal(t, io.Discard, counter)

	uploads := trackUploads([]drive.UploadFile{{Name: "a.txt", Body: strings.NewReader("abc")}}, counter)
	data, err := io.ReadAll(uploads[0].Body)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	done()
	assert.Empty(t, out.String())
}
