package sortutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	units "github.com/docker/go-units"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatSize converts a byte count to a human string with binary units:
// two decimals below 1, none at 100 and above, one otherwise.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	size, i, promoted := scale(bytes)

	var formatted string
	switch {
	case size < 1 && !promoted:
		formatted = strconv.FormatFloat(size, 'f', 2, 64)
	case size >= 100:
		formatted = strconv.FormatFloat(math.Round(size), 'f', 0, 64)
	default:
		formatted = strconv.FormatFloat(size, 'f', 1, 64)
	}

	return fmt.Sprintf("%s %s", formatted, sizeUnits[i])
}

// scale divides bytes down to its display unit. A value that would round
// up to 1024 of one unit (1023.6 KB printing as "1024 KB") is promoted to
// the next unit instead.
func scale(bytes int64) (float64, int, bool) {
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(sizeUnits)-1 {
		size /= 1024
		i++
	}
	if math.Round(size) >= 1024 && i < len(sizeUnits)-1 {
		return size / 1024, i + 1, true
	}
	return size, i, false
}

// ParseSize converts a string produced by FormatSize back to bytes.
// Display rounding means only the magnitude survives the round trip.
// Unparseable input yields 0.
func ParseSize(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	lower := strings.ToLower(s)
	for _, suffix := range []string{"bytes", "byte"} {
		if strings.HasSuffix(lower, suffix) {
			v, err := strconv.ParseFloat(strings.TrimSpace(s[:len(s)-len(suffix)]), 64)
			if err != nil || v < 0 {
				return 0
			}
			return int64(v)
		}
	}

	n, err := units.RAMInBytes(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// SizeBucket returns the unit index (0 = Bytes … 4 = TB) that FormatSize
// displays a byte count in.
func SizeBucket(bytes int64) int {
	if bytes <= 0 {
		return 0
	}
	_, i, _ := scale(bytes)
	return i
}
