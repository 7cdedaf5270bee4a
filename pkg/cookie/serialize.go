package cookie

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Serialize renders a document.cookie assignment for name=value with the
// non-zero attributes of opts.
func Serialize(name, value string, opts Options) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(value)

	if opts.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(opts.Domain)
	}
	if opts.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(opts.Path)
	}
	if opts.SameSite != "" {
		b.WriteString("; SameSite=")
		b.WriteString(opts.SameSite)
	}
	if !opts.Expires.IsZero() {
		b.WriteString("; Expires=")
		b.WriteString(opts.Expires.UTC().Format(http.TimeFormat))
	}
	if opts.MaxAge != 0 {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(opts.MaxAge))
	}
	if opts.Secure {
		b.WriteString("; Secure")
	}
	if opts.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	return b.String()
}

// entry is a parsed cookie assignment.
type entry struct {
	name      string
	value     string
	domain    string
	path      string
	expires   time.Time
	maxAge    int
	hasMaxAge bool
}

// parseAssignment parses a Set-Cookie style string. The value is taken
// verbatim up to the first ';' so that JSON and percent-encoded payloads
// survive.
func parseAssignment(raw string) (entry, bool) {
	parts := strings.Split(raw, ";")
	name, value, ok := strings.Cut(parts[0], "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return entry{}, false
	}

	e := entry{name: name, value: strings.TrimSpace(value)}
	for _, attr := range parts[1:] {
		key, val, _ := strings.Cut(strings.TrimSpace(attr), "=")
		val = strings.TrimSpace(val)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "domain":
			e.domain = strings.ToLower(strings.TrimPrefix(val, "."))
		case "path":
			e.path = val
		case "expires":
			if t, err := http.ParseTime(val); err == nil {
				e.expires = t
			}
		case "max-age":
			if n, err := strconv.Atoi(val); err == nil {
				e.maxAge = n
				e.hasMaxAge = true
			}
		}
	}
	return e, true
}

// expired reports whether e is already expired at now. Max-Age wins over
// Expires as in RFC 6265.
func (e entry) expired(now time.Time) bool {
	if e.hasMaxAge {
		return e.maxAge <= 0
	}
	return !e.expires.IsZero() && !e.expires.After(now)
}

// parsePairs splits a "a=1; b=2" cookie list into ordered pairs.
func parsePairs(header string) [][2]string {
	var pairs [][2]string
	for part := range strings.SplitSeq(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		pairs = append(pairs, [2]string{strings.TrimSpace(name), value})
	}
	return pairs
}
