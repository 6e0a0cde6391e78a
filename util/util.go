package util

import (
	"fmt"
	"mime"
	"net/http"
	"strings"
)

const KiB = 1024
const MiB = KiB * 1024
const GiB = MiB * 1024

// FormatBytes renders a byte count for logs. Negative counts mean "unknown".
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "unknown"
	} else if bytes < KiB {
		return fmt.Sprintf("%dB", bytes)
	} else if bytes < MiB {
		return fmt.Sprintf("%.1fKiB", float64(bytes)/KiB)
	} else if bytes < GiB {
		return fmt.Sprintf("%.1fMiB", float64(bytes)/MiB)
	} else {
		return fmt.Sprintf("%.1fGiB", float64(bytes)/GiB)
	}
}

// MediaType returns the media type of the Content-Type header in h, lower-cased and
// without parameters, or fallback when the header is absent or malformed.
func MediaType(h http.Header, fallback string) string {
	ct, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil || ct == "" {
		return fallback
	}
	return strings.ToLower(ct)
}
