package cookie

import (
	"strings"
	"sync"
	"time"
)

// Jar is the document.cookie surface: Cookie returns the cookies visible to
// the current page, SetCookie applies one Set-Cookie style assignment.
type Jar interface {
	Cookie() string
	SetCookie(raw string)
}

// MemoryJar is an in-memory Jar for a single page host. It follows the
// browser rules that matter for attribution: a Domain attribute must
// domain-match the host or the write is ignored, cookies are keyed by
// name/domain/path, and an expired write removes the matching cookie.
type MemoryJar struct {
	mu      sync.Mutex
	host    string
	path    string
	now     func() time.Time
	cookies []stored
}

type stored struct {
	entry
	hostOnly bool
}

// MemoryJarOption configures a MemoryJar.
type MemoryJarOption func(*MemoryJar)

// WithClock overrides the jar's time source.
func WithClock(now func() time.Time) MemoryJarOption {
	return func(j *MemoryJar) {
		if now != nil {
			j.now = now
		}
	}
}

// WithPagePath sets the path of the page reading the jar. Defaults to "/".
func WithPagePath(path string) MemoryJarOption {
	return func(j *MemoryJar) {
		if path != "" {
			j.path = path
		}
	}
}

// NewMemoryJar creates an empty jar for pages served from host.
func NewMemoryJar(host string, opts ...MemoryJarOption) *MemoryJar {
	j := &MemoryJar{
		host: strings.ToLower(host),
		path: "/",
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Cookie returns "name=value" pairs visible to the page, oldest first.
func (j *MemoryJar) Cookie() string {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	pairs := make([]string, 0, len(j.cookies))
	live := j.cookies[:0]
	for _, c := range j.cookies {
		if c.expired(now) {
			continue
		}
		live = append(live, c)
		if j.visible(c) {
			pairs = append(pairs, c.name+"="+c.value)
		}
	}
	j.cookies = live
	return strings.Join(pairs, "; ")
}

// SetCookie applies raw to the jar. Invalid assignments and domains that do
// not match the page host are ignored, as a browser would.
func (j *MemoryJar) SetCookie(raw string) {
	e, ok := parseAssignment(raw)
	if !ok {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	c := stored{entry: e}
	if c.domain == "" {
		c.domain = j.host
		c.hostOnly = true
	} else if !domainMatch(j.host, c.domain) {
		return
	}
	if c.path == "" {
		c.path = "/"
	}

	now := j.now()
	if c.hasMaxAge && c.maxAge > 0 {
		c.expires = now.Add(time.Duration(c.maxAge) * time.Second)
		c.hasMaxAge = false
	}

	for i, existing := range j.cookies {
		if existing.name != c.name || existing.domain != c.domain || existing.path != c.path {
			continue
		}
		if c.expired(now) {
			j.cookies = append(j.cookies[:i], j.cookies[i+1:]...)
			return
		}
		j.cookies[i] = c
		return
	}
	if c.expired(now) {
		return
	}
	j.cookies = append(j.cookies, c)
}

// Len returns the number of stored, unexpired cookies regardless of
// visibility.
func (j *MemoryJar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.now()
	n := 0
	for _, c := range j.cookies {
		if !c.expired(now) {
			n++
		}
	}
	return n
}

func (j *MemoryJar) visible(c stored) bool {
	if c.hostOnly {
		if c.domain != j.host {
			return false
		}
	} else if !domainMatch(j.host, c.domain) {
		return false
	}
	return pathMatch(j.path, c.path)
}

// domainMatch implements RFC 6265 §5.1.3 for a lower-cased host.
func domainMatch(host, domain string) bool {
	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}

// pathMatch implements RFC 6265 §5.1.4.
func pathMatch(reqPath, cookiePath string) bool {
	if reqPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(reqPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || reqPath[len(cookiePath)] == '/'
}
