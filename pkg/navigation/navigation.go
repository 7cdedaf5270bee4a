package navigation

import (
	"net/url"
	"sync"
)

// Kind identifies how the current URL changed.
type Kind int

const (
	Push Kind = iota + 1
	Replace
	Pop
)

func (k Kind) String() string {
	switch k {
	case Push:
		return "push"
	case Replace:
		return "replace"
	case Pop:
		return "pop"
	default:
		return "unknown"
	}
}

// Event is emitted after the current URL changed.
type Event struct {
	Kind Kind
	URL  *url.URL
}

// Source delivers navigation events. Subscribe returns a function that
// removes the listener; calling it more than once is safe.
type Source interface {
	Subscribe(fn func(Event)) (unsubscribe func())
}

// Listeners is a set of event callbacks. The zero value is ready to use.
type Listeners struct {
	mu   sync.RWMutex
	subs map[*listener]struct{}
}

type listener struct {
	fn func(Event)
}

// Subscribe implements Source.
func (l *Listeners) Subscribe(fn func(Event)) func() {
	if fn == nil {
		return func() {}
	}
	sub := &listener{fn: fn}

	l.mu.Lock()
	if l.subs == nil {
		l.subs = make(map[*listener]struct{})
	}
	l.subs[sub] = struct{}{}
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, sub)
			l.mu.Unlock()
		})
	}
}

// Emit calls every listener with ev. Listeners run outside the lock and may
// subscribe or unsubscribe.
func (l *Listeners) Emit(ev Event) {
	l.mu.RLock()
	subs := make([]*listener, 0, len(l.subs))
	for sub := range l.subs {
		subs = append(subs, sub)
	}
	l.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(ev)
	}
}

// Len returns the number of listeners.
func (l *Listeners) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs)
}
