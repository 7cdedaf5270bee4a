package navigation

import (
	"fmt"
	"net/url"
	"sync"
)

// History is an in-memory session history emitting navigation events.
type History struct {
	Listeners

	mu      sync.Mutex
	entries []*url.URL
	index   int
}

// NewHistory creates a history whose only entry is start.
func NewHistory(start *url.URL) *History {
	if start == nil {
		start = &url.URL{}
	}
	return &History{entries: []*url.URL{clone(start)}}
}

// PushState adds ref, resolved against the current URL, as a new entry and
// discards any forward entries.
func (h *History) PushState(ref string) error {
	h.mu.Lock()
	u, err := h.resolve(ref)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	h.entries = append(h.entries[:h.index+1], u)
	h.index++
	h.mu.Unlock()

	h.Emit(Event{Kind: Push, URL: clone(u)})
	return nil
}

// ReplaceState rewrites the current entry with ref.
func (h *History) ReplaceState(ref string) error {
	h.mu.Lock()
	u, err := h.resolve(ref)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	h.entries[h.index] = u
	h.mu.Unlock()

	h.Emit(Event{Kind: Replace, URL: clone(u)})
	return nil
}

// Back moves to the previous entry. It reports false at the first entry.
func (h *History) Back() bool {
	return h.step(-1)
}

// Forward moves to the next entry. It reports false at the last entry.
func (h *History) Forward() bool {
	return h.step(1)
}

// Current returns a copy of the current URL.
func (h *History) Current() *url.URL {
	h.mu.Lock()
	defer h.mu.Unlock()
	return clone(h.entries[h.index])
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func (h *History) step(delta int) bool {
	h.mu.Lock()
	next := h.index + delta
	if next < 0 || next >= len(h.entries) {
		h.mu.Unlock()
		return false
	}
	h.index = next
	u := clone(h.entries[next])
	h.mu.Unlock()

	h.Emit(Event{Kind: Pop, URL: u})
	return true
}

func (h *History) resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("navigation: parse %q: %w", ref, err)
	}
	return h.entries[h.index].ResolveReference(u), nil
}

func clone(u *url.URL) *url.URL {
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
