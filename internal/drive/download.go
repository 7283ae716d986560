package drive

import (
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	utf8FilenamePattern  = regexp.MustCompile(`(?i)filename\*\s*=\s*UTF-8''([^;]+)`)
	plainFilenamePattern = regexp.MustCompile(`(?i)filename\s*=\s*"?([^";]+)"?`)
)

// FilenameFromDisposition extracts the suggested filename from a
// Content-Disposition header. The RFC 5987 filename* form wins over the
// plain one. It returns "" when no usable name is present.
func FilenameFromDisposition(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}

	if m := utf8FilenamePattern.FindStringSubmatch(header); m != nil {
		if name, err := url.PathUnescape(strings.TrimSpace(m[1])); err == nil {
			if name = sanitizeFilename(name); name != "" {
				return name
			}
		}
	}

	if _, params, err := mime.ParseMediaType(header); err == nil {
		if name := sanitizeFilename(params["filename"]); name != "" {
			return name
		}
	}

	// Malformed headers that mime rejects, e.g. unquoted names with spaces
	if m := plainFilenamePattern.FindStringSubmatch(header); m != nil {
		return sanitizeFilename(m[1])
	}
	return ""
}

// sanitizeFilename keeps only the final path element of a suggested name.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}
