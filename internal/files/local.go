// Package files moves bytes between the local filesystem and drive
// transfers: it opens local files for upload and writes downloads.
package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ngenohkevin/hivedeck-drive/internal/drive"
)

// MaxUploadFiles is the maximum number of files sent in one upload request
const MaxUploadFiles = 1000

// ErrIsDirectory marks a directory passed where a file is expected.
var ErrIsDirectory = errors.New("path is a directory")

// Batch is a set of opened local files. Close releases every handle.
type Batch struct {
	Files   []FileInfo
	handles []*os.File
}

// Uploads returns the batch as upload parts, in the order given.
func (b *Batch) Uploads() []drive.UploadFile {
	out := make([]drive.UploadFile, len(b.handles))
	for i, f := range b.handles {
		out[i] = drive.UploadFile{Name: b.Files[i].Name, Body: f}
	}
	return out
}

// TotalSize sums the sizes of the batch.
func (b *Batch) TotalSize() int64 {
	var total int64
	for _, f := range b.Files {
		total += f.Size
	}
	return total
}

// Close closes every open file.
func (b *Batch) Close() error {
	var errs []error
	for _, f := range b.handles {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.handles = nil
	return errors.Join(errs...)
}

// Open stats and opens every path. Directories are rejected since the
// drive upload carries flat files only.
func Open(paths []string) (*Batch, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files given")
	}
	if len(paths) > MaxUploadFiles {
		return nil, fmt.Errorf("too many files: %d (max %d)", len(paths), MaxUploadFiles)
	}

	b := &Batch{}
	for _, p := range paths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("invalid path %q: %w", p, err)
		}

		info, err := os.Stat(absPath)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to stat %q: %w", p, err)
		}
		if info.IsDir() {
			b.Close()
			return nil, fmt.Errorf("%q: %w", p, ErrIsDirectory)
		}

		f, err := os.Open(absPath)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to open %q: %w", p, err)
		}

		b.handles = append(b.handles, f)
		b.Files = append(b.Files, FileInfo{
			Name:    info.Name(),
			Path:    absPath,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return b, nil
}

// Save writes a download into dir under its own filename. An existing
// file is kept and the new one gets a numbered name. The body is closed.
func Save(dl *drive.Download, dir string) (*Saved, error) {
	defer dl.Body.Close()

	if dir == "" {
		dir = "."
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid directory: %w", err)
	}
	if info, err := os.Stat(absDir); err != nil {
		return nil, fmt.Errorf("failed to stat directory: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", dir)
	}

	name := safeName(dl.Filename)

	tmp, err := os.CreateTemp(absDir, ".hivedeck-*.part")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	n, err := io.Copy(tmp, dl.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write download: %w", err)
	}

	target, renamed := freeName(absDir, name)
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to move download into place: %w", err)
	}

	return &Saved{Path: target, Size: n, Renamed: renamed}, nil
}

// safeName strips any directory part so a download cannot escape its dir.
func safeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." || name == "" {
		return "download"
	}
	return name
}

// freeName returns dir/name, or dir/"stem (n)ext" when that is taken.
func freeName(dir, name string) (string, bool) {
	target := filepath.Join(dir, name)
	if _, err := os.Lstat(target); os.IsNotExist(err) {
		return target, false
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if strings.HasSuffix(stem, ".tar") {
		ext = ".tar" + ext
		stem = strings.TrimSuffix(stem, ".tar")
	}
	for i := 1; ; i++ {
		target = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if _, err := os.Lstat(target); os.IsNotExist(err) {
			return target, true
		}
	}
}
