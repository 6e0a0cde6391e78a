package content

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	dispositionFilename = regexp.MustCompile(`filename="?([^"]+)"?`)
	unsafeFileChars     = regexp.MustCompile(`[\/\\:\*\?"<>\|\p{C}]`)
)

// FilenameFromDisposition extracts the filename of an attachment Content-Disposition
// header. ok is false when the header is not an attachment or carries no filename.
func FilenameFromDisposition(disposition string) (name string, ok bool) {
	if !strings.Contains(disposition, "attachment") {
		return "", false
	}

	matches := dispositionFilename.FindStringSubmatch(disposition)
	if len(matches) < 2 {
		return "", false
	}

	// The unquoted form runs to the next parameter.
	name = strings.TrimSpace(strings.SplitN(matches[1], ";", 2)[0])
	name = sanitizeFileName(name)
	if name == "" {
		return "", false
	}
	return name, true
}

// ReportName is the default name of a harvested PDF: report_{hostname}.pdf.
func ReportName(u *url.URL) string {
	host := u.Hostname()
	if host == "" {
		host = "download"
	}
	return fmt.Sprintf("report_%s.pdf", sanitizeFileName(host))
}

// ResolveFilename prefers the server-suggested name and falls back to ReportName.
func ResolveFilename(disposition string, u *url.URL) string {
	if name, ok := FilenameFromDisposition(disposition); ok {
		return name
	}
	return ReportName(u)
}

func sanitizeFileName(name string) string {
	name = unsafeFileChars.ReplaceAllString(name, "-")
	return strings.Trim(name, " .")
}
