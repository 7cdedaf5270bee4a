package cookie

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// HTTPJar exposes an HTTP request/response pair as a Jar. Reads see the
// request's Cookie header overlaid with the writes made through the jar.
// Writes are buffered and copied into Set-Cookie headers by Seal, so the
// response header map is only touched by the goroutine that calls Seal.
type HTTPJar struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	request string
	writes  []jarWrite
	sealed  bool
	onDrop  func(raw string)
	now     func() time.Time
}

type jarWrite struct {
	entry
	raw string
}

// NewHTTPJar creates a jar for r whose writes go to w.
func NewHTTPJar(w http.ResponseWriter, r *http.Request) *HTTPJar {
	return &HTTPJar{
		w:       w,
		request: strings.Join(r.Header.Values("Cookie"), "; "),
		now:     time.Now,
	}
}

// OnDrop registers a callback for writes attempted after Seal.
func (j *HTTPJar) OnDrop(fn func(raw string)) {
	j.mu.Lock()
	j.onDrop = fn
	j.mu.Unlock()
}

func (j *HTTPJar) Cookie() string {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	overridden := make(map[string]bool, len(j.writes))
	for _, e := range j.writes {
		overridden[e.name] = true
	}

	pairs := make([]string, 0)
	for _, p := range parsePairs(j.request) {
		if overridden[p[0]] {
			continue
		}
		pairs = append(pairs, p[0]+"="+p[1])
	}
	for _, e := range j.writes {
		if !e.expired(now) {
			pairs = append(pairs, e.name+"="+e.value)
		}
	}
	return strings.Join(pairs, "; ")
}

// SetCookie buffers raw for the response. A later write of the same cookie
// replaces it. After Seal the write is dropped because the response headers
// are already on the wire.
func (j *HTTPJar) SetCookie(raw string) {
	e, ok := parseAssignment(raw)
	if !ok {
		return
	}

	j.mu.Lock()
	if j.sealed {
		onDrop := j.onDrop
		j.mu.Unlock()
		if onDrop != nil {
			onDrop(raw)
		}
		return
	}

	w := jarWrite{entry: e, raw: raw}
	replaced := false
	for i := range j.writes {
		if j.writes[i].name == e.name {
			j.writes[i] = w
			replaced = true
		}
	}
	if !replaced {
		j.writes = append(j.writes, w)
	}
	j.mu.Unlock()
}

// Seal copies the buffered writes into Set-Cookie headers and stops further
// writes from reaching the response. Call it from the goroutine serving the
// request, before the headers are written. Only the first call has effect.
func (j *HTTPJar) Seal() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.sealed {
		return
	}
	j.sealed = true
	h := j.w.Header()
	for _, w := range j.writes {
		h.Add("Set-Cookie", w.raw)
	}
}
