package models

import (
	"path"
	"strings"
)

// Category is the coarse file type used for icon colouring.
type Category string

const (
	CategoryFolder   Category = "folder"
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
	CategoryDocument Category = "document"
	CategoryArchive  Category = "archive"
	CategoryCode     Category = "code"
	CategoryOther    Category = "other"
)

var (
	thumbnailExts = set("jpg", "jpeg", "png", "gif", "webp", "bmp", "svg")
	imageExts     = set("jpg", "jpeg", "png", "gif", "webp", "bmp", "svg", "ico")
	videoExts     = set("mp4", "avi", "mov", "wmv", "flv", "webm", "mkv", "m4v")
	audioExts     = set("mp3", "wav", "flac", "aac", "ogg", "wma", "m4a")
	documentExts  = set("pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "txt", "rtf")
	archiveExts   = set("zip", "rar", "7z", "tar", "gz", "bz2")
	codeExts      = set("js", "ts", "jsx", "tsx", "html", "css", "json", "xml", "py", "java", "cpp", "c", "go", "rs")
)

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

// Ext returns the lower-cased extension of the entry name without the dot.
func (e Entry) Ext() string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(e.Name)), ".")
}

// IsImage reports whether a thumbnail should be rendered for the entry.
// The mime type wins when present; otherwise the extension is sniffed.
func (e Entry) IsImage() bool {
	if e.IsFolder() {
		return false
	}
	if e.MimeType == "" {
		_, ok := thumbnailExts[e.Ext()]
		return ok
	}
	return strings.HasPrefix(strings.ToLower(e.MimeType), "image/")
}

// Category classifies the entry by mime type and extension.
func (e Entry) Category() Category {
	if e.IsFolder() {
		return CategoryFolder
	}

	ext := e.Ext()
	mime := strings.ToLower(e.MimeType)
	has := func(m map[string]struct{}) bool {
		_, ok := m[ext]
		return ok
	}

	switch {
	case strings.HasPrefix(mime, "image/") || has(imageExts):
		return CategoryImage
	case strings.HasPrefix(mime, "video/") || has(videoExts):
		return CategoryVideo
	case strings.HasPrefix(mime, "audio/") || has(audioExts):
		return CategoryAudio
	case strings.Contains(mime, "pdf") || strings.Contains(mime, "document") ||
		strings.Contains(mime, "word") || has(documentExts):
		return CategoryDocument
	case strings.Contains(mime, "zip") || strings.Contains(mime, "rar") || has(archiveExts):
		return CategoryArchive
	case has(codeExts):
		return CategoryCode
	default:
		return CategoryOther
	}
}
