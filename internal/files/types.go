package files

import "time"

// FileInfo describes a local file picked for upload
type FileInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Saved describes a download written to disk
type Saved struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Renamed bool   `json:"renamed"`
}
