package attribution

import "sync"

// readySignal delivers the partner record to callbacks once resolution has
// completed. Callbacks registered later run immediately.
type readySignal struct {
	mu    sync.Mutex
	fired bool
	data  PartnerRecord
	subs  []func(PartnerRecord)
}

func (s *readySignal) subscribe(fn func(PartnerRecord)) {
	s.mu.Lock()
	if !s.fired {
		s.subs = append(s.subs, fn)
		s.mu.Unlock()
		return
	}
	data := s.data
	s.mu.Unlock()
	fn(data)
}

func (s *readySignal) fire(data PartnerRecord) bool {
	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		return false
	}
	s.fired = true
	s.data = data
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, fn := range subs {
		fn(data)
	}
	return true
}

func (s *readySignal) isFired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}
