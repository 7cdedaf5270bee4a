package domainmatch

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

const wildcardPrefix = "*."

// Normalize returns the comparable form of a hostname or pattern.
func Normalize(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")

	wildcard := strings.HasPrefix(host, wildcardPrefix)
	if wildcard {
		host = strings.TrimPrefix(host, wildcardPrefix)
	}
	host = strings.TrimPrefix(host, "www.")

	if ascii, err := idna.Lookup.ToASCII(host); err == nil && ascii != "" {
		host = ascii
	}

	if wildcard {
		return wildcardPrefix + host
	}
	return host
}

// Hostname extracts and normalizes the host of rawURL. Scheme-less values
// such as "example.com/path" are treated as hosts.
func Hostname(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := u.Hostname()
	if host == "" && u.Scheme == "" && u.Opaque == "" {
		if u2, err := url.Parse("//" + rawURL); err == nil {
			host = u2.Hostname()
		}
	}
	if host == "" {
		return "", false
	}
	return Normalize(host), true
}

// IsWildcard reports whether pattern has the "*." form.
func IsWildcard(pattern string) bool {
	return strings.HasPrefix(strings.TrimSpace(pattern), wildcardPrefix)
}

// MatchHost reports whether an already extracted hostname matches pattern.
func MatchHost(host, pattern string) bool {
	host = Normalize(host)
	pattern = Normalize(pattern)
	if host == "" || pattern == "" {
		return false
	}
	if apex, ok := strings.CutPrefix(pattern, wildcardPrefix); ok {
		if apex == "" {
			return false
		}
		return host == apex || strings.HasSuffix(host, "."+apex)
	}
	return host == pattern
}

// Match reports whether the host of rawURL matches pattern.
func Match(rawURL, pattern string) bool {
	host, ok := Hostname(rawURL)
	if !ok {
		return false
	}
	return MatchHost(host, pattern)
}

// SameSite reports whether rawURL points at pageHost once both are
// normalized.
func SameSite(rawURL, pageHost string) bool {
	host, ok := Hostname(rawURL)
	if !ok {
		return false
	}
	page := Normalize(pageHost)
	return page != "" && host == page
}
