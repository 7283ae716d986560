// Package models contains the data types shared by the drive client,
// the navigation engine and the renderers.
package models

import "strconv"

// Kind distinguishes files from folders.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// RootSentinelID is the id carried by the synthesized "go up" entry when
// the enclosing folder is the drive root.
const RootSentinelID int64 = -1

// Entry is one file or folder as seen by the client.
type Entry struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Kind       Kind   `json:"kind"`
	Size       string `json:"size,omitempty"`
	ModifiedAt string `json:"modifiedAt"`
	ParentID   *int64 `json:"parentId"`
	MimeType   string `json:"mimeType,omitempty"`
}

// IsFolder reports whether the entry is a folder.
func (e Entry) IsFolder() bool {
	return e.Kind == KindFolder
}

// Usage is the drive-wide storage summary returned by the backend.
type Usage struct {
	Email     string  `json:"email"`
	UsedBytes int64   `json:"usedStorageBytes"`
	LimitGB   float64 `json:"storageLimitGB"`
}

// UsedGB returns the used storage in GiB.
func (u Usage) UsedGB() float64 {
	return float64(u.UsedBytes) / (1024 * 1024 * 1024)
}

// Percent returns used storage as a percentage of the limit (0 when unlimited).
func (u Usage) Percent() float64 {
	if u.LimitGB <= 0 {
		return 0
	}
	return u.UsedGB() / u.LimitGB * 100
}

// ID returns a pointer to v, for building optional folder ids.
func ID(v int64) *int64 {
	return &v
}

// SameFolder reports whether two optional folder ids denote the same folder.
// nil denotes the root.
func SameFolder(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// FolderLabel formats an optional folder id for logs.
func FolderLabel(id *int64) string {
	if id == nil {
		return "root"
	}
	return strconv.FormatInt(*id, 10)
}
