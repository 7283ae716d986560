package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/ngenohkevin/hivedeck-drive/internal/drive"
)

// newProgress returns a byte counter drawn as a progress bar on w, or
// io.Discard when w is not a terminal. total may be -1 when unknown.
func newProgress(w io.Writer, total int64, description string) (io.Writer, func()) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return io.Discard, func() {}
	}

	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
	return bar, func() { _ = bar.Finish() }
}

// trackUploads routes every upload body through the progress counter.
func trackUploads(uploads []drive.UploadFile, counter io.Writer) []drive.UploadFile {
	tracked := make([]drive.UploadFile, len(uploads))
	for i, u := range uploads {
		tracked[i] = drive.UploadFile{Name: u.Name, Body: io.TeeReader(u.Body, counter)}
	}
	return tracked
}

// trackDownload routes the download body through the progress counter.
func trackDownload(dl *drive.Download, counter io.Writer) *drive.Download {
	tracked := *dl
	tracked.Body = struct {
		io.Reader
		io.Closer
	}{io.TeeReader(dl.Body, counter), dl.Body}
	return &tracked
}
