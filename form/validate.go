package form

import (
	"net/url"
	"regexp"
	"strings"
)

// emailPattern is the valid e-mail address production of the HTML living standard, the
// check behind <input type="email">.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// Schemes whose URLs must carry a host.
var hostSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ws":    true,
	"wss":   true,
	"ftp":   true,
}

// ParseURL accepts what a URL constructor accepts: an absolute URL with a scheme, and a
// host for the web schemes. Surrounding whitespace is ignored.
func ParseURL(raw string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	if hostSchemes[strings.ToLower(u.Scheme)] && u.Hostname() == "" {
		return nil, false
	}
	return u, true
}

// ValidEmail reports whether s passes the native e-mail input constraint.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}
