package thumbnail

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngenohkevin/hivedeck-drive/internal/drive"
	"github.com/ngenohkevin/hivedeck-drive/internal/drive/drivetest"
	"github.com/ngenohkevin/hivedeck-drive/internal/models"
)

type stubFetcher struct {
	mu      sync.Mutex
	calls   map[int64]int
	failIDs map[int64]bool
	active  atomic.Int32
	peak    atomic.Int32
	delay   time.Duration
}

func (s *stubFetcher) Thumbnail(_ context.Context, id int64, _ int64) ([]byte, string, error) {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(s.delay)

	s.mu.Lock()
	s.calls[id]++
	s.mu.Unlock()

	if s.failIDs[id] {
		return nil, "", errors.New("broken image")
	}
	return []byte("img"), "image/png", nil
}

func image(id int64) models.Entry {
	return models.Entry{ID: id, Name: "pic.png", Kind: models.KindFile, MimeType: "image/png"}
}

func TestEligible(t *testing.T) {
	assert.True(t, Eligible(image(1)))
	assert.True(t, Eligible(models.Entry{Name: "shot.JPG", Kind: models.KindFile}))
	assert.False(t, Eligible(models.Entry{Name: "notes.txt", Kind: models.KindFile}))
	assert.False(t, Eligible(models.Entry{Name: "pics.png", Kind: models.KindFolder}))
}

func TestLoadAllIsolatesFailures(t *testing.T) {
	fetch := &stubFetcher{calls: map[int64]int{}, failIDs: map[int64]bool{2: true}}
	loader := NewLoader(fetch, 2, 0, time.Minute, nil)
	defer loader.Close()

	entries := []models.Entry{image(1), image(2), {ID: 3, Name: "doc.txt", Kind: models.KindFile}, image(4)}
	results := loader.LoadAll(context.Background(), entries)

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.Nil(t, results[1].Thumb)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, int64(4), results[2].EntryID)
	assert.Equal(t, "img", string(results[2].Thumb.Data))
}

func TestLoadBoundsConcurrency(t *testing.T) {
	fetch := &stubFetcher{calls: map[int64]int{}, delay: 20 * time.Millisecond}
	loader := NewLoader(fetch, 2, 0, time.Minute, nil)
	defer loader.Close()

	var entries []models.Entry
	for i := int64(1); i <= 8; i++ {
		entries = append(entries, image(i))
	}
	loader.LoadAll(context.Background(), entries)

	assert.LessOrEqual(t, fetch.peak.Load(), int32(2))
}

func TestLoadCaches(t *testing.T) {
	fetch := &stubFetcher{calls: map[int64]int{}}
	loader := NewLoader(fetch, 4, 0, time.Minute, nil)
	defer loader.Close()
	ctx := context.Background()

	_, err := loader.Load(ctx, image(1))
	require.NoError(t, err)
	_, err = loader.Load(ctx, image(1))
	require.NoError(t, err)
	assert.Equal(t, 1, fetch.calls[1])

	loader.Invalidate(1)
	_, err = loader.Load(ctx, image(1))
	require.NoError(t, err)
	assert.Equal(t, 2, fetch.calls[1])

	_, err = loader.Load(ctx, models.Entry{ID: 5, Name: "a.txt"})
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestLoadFromBackend(t *testing.T) {
	srv := drivetest.New(t)
	id := srv.AddFile("cat.png", nil, []byte("meow"), "image/png")
	client, err := drive.New(drive.Options{BaseURL: srv.APIURL()})
	require.NoError(t, err)

	loader := NewLoader(client, 2, 1024, time.Minute, nil)
	defer loader.Close()

	thumb, err := loader.Load(context.Background(), models.Entry{ID: id, Name: "cat.png", Kind: models.KindFile, MimeType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "meow", string(thumb.Data))
	assert.Equal(t, "image/png", thumb.ContentType)
}
