// Package thumbnail loads image previews for entries. Each load is an
// independent suspension: one failure never affects other thumbnails or
// the listing.
package thumbnail

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/ngenohkevin/hivedeck-drive/internal/cache"
	"github.com/ngenohkevin/hivedeck-drive/internal/logging"
	"github.com/ngenohkevin/hivedeck-drive/internal/metrics"
	"github.com/ngenohkevin/hivedeck-drive/internal/models"
)

// ErrNotImage marks an entry that gets an icon instead of a preview.
var ErrNotImage = errors.New("entry has no image preview")

// Fetcher downloads preview bytes.
type Fetcher interface {
	Thumbnail(ctx context.Context, id int64, maxBytes int64) ([]byte, string, error)
}

// Thumb is a loaded preview.
type Thumb struct {
	EntryID     int64
	ContentType string
	Data        []byte
}

// Result is the outcome for one entry of LoadAll.
type Result struct {
	EntryID int64
	Thumb   *Thumb
	Err     error
}

// Loader fetches previews with bounded concurrency and caches them.
type Loader struct {
	fetch    Fetcher
	sem      *semaphore.Weighted
	cache    *cache.Cache[Thumb]
	group    singleflight.Group
	maxBytes int64
	log      *logging.Logger
}

// NewLoader creates a loader running at most concurrency fetches at once.
func NewLoader(fetch Fetcher, concurrency int, maxBytes int64, ttl time.Duration, log *logging.Logger) *Loader {
	if concurrency <= 0 {
		concurrency = 1
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Loader{
		fetch:    fetch,
		sem:      semaphore.NewWeighted(int64(concurrency)),
		cache:    cache.New[Thumb](ttl),
		maxBytes: maxBytes,
		log:      log.Component("thumbnail"),
	}
}

// Close stops the cache janitor.
func (l *Loader) Close() {
	l.cache.Close()
}

// Eligible reports whether entry gets a preview.
func Eligible(entry models.Entry) bool {
	return !entry.IsFolder() && entry.IsImage()
}

// Load returns the preview of entry.
func (l *Loader) Load(ctx context.Context, entry models.Entry) (Thumb, error) {
	if !Eligible(entry) {
		return Thumb{}, ErrNotImage
	}

	key := cache.ThumbnailKey(entry.ID)
	if t, ok := l.cache.Get(key); ok {
		return t, nil
	}

	v, err, _ := l.group.Do(key, func() (interface{}, error) {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			return Thumb{}, err
		}
		defer l.sem.Release(1)

		data, contentType, err := l.fetch.Thumbnail(ctx, entry.ID, l.maxBytes)
		if err != nil {
			return Thumb{}, err
		}
		t := Thumb{EntryID: entry.ID, ContentType: contentType, Data: data}
		l.cache.Set(key, t)
		return t, nil
	})
	if err != nil {
		metrics.RecordThumbnailFailure()
		l.log.Debug().Err(err).Int64("entry", entry.ID).Msg("thumbnail failed")
		return Thumb{}, err
	}
	return v.(Thumb), nil
}

// LoadAll loads every eligible entry concurrently. Results keep the order
// of the eligible entries; failures are reported per entry.
func (l *Loader) LoadAll(ctx context.Context, entries []models.Entry) []Result {
	var eligible []models.Entry
	for _, e := range entries {
		if Eligible(e) {
			eligible = append(eligible, e)
		}
	}

	results := make([]Result, len(eligible))
	var wg sync.WaitGroup
	for i, e := range eligible {
		wg.Add(1)
		go func(i int, e models.Entry) {
			defer wg.Done()
			t, err := l.Load(ctx, e)
			results[i] = Result{EntryID: e.ID, Err: err}
			if err == nil {
				results[i].Thumb = &t
			}
		}(i, e)
	}
	wg.Wait()

	return results
}

// Invalidate drops a cached preview.
func (l *Loader) Invalidate(id int64) {
	l.cache.Delete(cache.ThumbnailKey(id))
}
