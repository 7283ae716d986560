package navigator

import (
	"context"
	"fmt"

	"github.com/ngenohkevin/hivedeck-drive/internal/cache"
	"github.com/ngenohkevin/hivedeck-drive/internal/drive"
	"github.com/ngenohkevin/hivedeck-drive/internal/models"
)

// CreateFolder creates a folder in the current folder.
func (n *Navigator) CreateFolder(ctx context.Context, name string) (*models.Entry, error) {
	folder := n.CurrentFolder()

	created, err := n.remote.CreateFolder(ctx, name, folder)
	if err != nil {
		n.notices.Failure(drive.OpCreateFolder, err)
		return nil, err
	}

	n.log.Info().Str("name", name).Str("parent", models.FolderLabel(folder)).Msg("folder created")
	n.notices.Success(drive.OpCreateFolder, fmt.Sprintf("Folder %q created", name))
	n.AfterMutation(ctx)
	return created, nil
}

// DeleteSelected deletes every selected entry in one batch.
func (n *Navigator) DeleteSelected(ctx context.Context) error {
	ids := n.selectedIDs()
	if len(ids) == 0 {
		err := drive.Invalid(drive.OpDelete, "Select at least one item to delete")
		n.notices.Failure(drive.OpDelete, err)
		return err
	}

	if _, err := n.remote.DeleteEntries(ctx, ids); err != nil {
		n.notices.Failure(drive.OpDelete, err)
		return err
	}

	n.mu.Lock()
	n.selected.Clear()
	for _, id := range ids {
		n.tree.forget(id)
	}
	n.mu.Unlock()

	n.log.Info().Ints64("ids", ids).Msg("entries deleted")
	n.notices.Success(drive.OpDelete, fmt.Sprintf("%d item(s) deleted", len(ids)))
	n.AfterMutation(ctx)
	return nil
}

// Upload uploads files into the current folder.
func (n *Navigator) Upload(ctx context.Context, files []drive.UploadFile) error {
	return n.UploadTo(ctx, files, n.CurrentFolder())
}

// UploadTo uploads files into target (nil for the root).
func (n *Navigator) UploadTo(ctx context.Context, files []drive.UploadFile, target *int64) error {
	ack, err := n.remote.UploadFiles(ctx, files, target)
	if err != nil {
		n.notices.Failure(drive.OpUpload, err)
		return err
	}

	msg := ack.Message
	if msg == "" {
		msg = fmt.Sprintf("%d file(s) uploaded", len(files))
	}
	n.log.Info().Int("files", len(files)).Str("parent", models.FolderLabel(target)).Msg("files uploaded")
	n.notices.Success(drive.OpUpload, msg)
	n.AfterMutation(ctx)
	return nil
}

// DownloadSelected downloads the selection: a single entry directly, more
// than one as a zip archive. The caller closes the returned body.
func (n *Navigator) DownloadSelected(ctx context.Context) (*drive.Download, error) {
	ids := n.selectedIDs()
	if len(ids) == 0 {
		err := drive.Invalid(drive.OpDownload, "Select at least one item to download")
		n.notices.Failure(drive.OpDownload, err)
		return nil, err
	}

	var (
		dl  *drive.Download
		err error
	)
	if len(ids) == 1 {
		fallback := ""
		if e, ok := n.Lookup(ids[0]); ok {
			fallback = e.Name
			if e.IsFolder() {
				fallback += ".zip"
			}
		}
		dl, err = n.remote.DownloadSingle(ctx, ids[0], fallback)
	} else {
		dl, err = n.remote.DownloadZip(ctx, ids)
	}
	if err != nil {
		n.notices.Failure(drive.OpDownload, err)
		return nil, err
	}

	n.notices.Success(drive.OpDownload, fmt.Sprintf("Downloading %s", dl.Filename))
	return dl, nil
}

// Usage returns drive-wide storage statistics, cached for the configured
// TTL. Concurrent callers share one request.
func (n *Navigator) Usage(ctx context.Context) (models.Usage, error) {
	if u, ok := n.usage.Get(cache.KeyUsage); ok {
		return u, nil
	}

	v, err, _ := n.usageGroup.Do(cache.KeyUsage, func() (interface{}, error) {
		u, err := n.remote.Usage(ctx)
		if err != nil {
			return models.Usage{}, err
		}
		n.usage.Set(cache.KeyUsage, u)
		return u, nil
	})
	if err != nil {
		n.notices.Failure(drive.OpUsage, err)
		return models.Usage{}, err
	}
	return v.(models.Usage), nil
}

// AfterMutation invalidates usage statistics and re-fetches the current
// folder and the usage. Failures are reported as notices.
func (n *Navigator) AfterMutation(ctx context.Context) {
	n.usage.Delete(cache.KeyUsage)

	if err := n.Refresh(ctx); err != nil {
		n.log.Warn().Err(err).Msg("refresh after mutation failed")
	}
	if _, err := n.Usage(ctx); err != nil {
		n.log.Warn().Err(err).Msg("usage refresh after mutation failed")
	}
}

func (n *Navigator) selectedIDs() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.selected.IDs()
}
