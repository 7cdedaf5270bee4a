package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Machine is a concurrency-safe in-memory state machine. Several
// transitions may share a state and event; the first one registered whose
// guards pass is taken.
type Machine struct {
	mu          sync.RWMutex
	initial     State
	current     State
	transitions map[string]map[string][]Transition
}

var _ StateMachine = (*Machine)(nil)

// NewMachine creates a machine sitting in initial with no transitions.
func NewMachine(initial State) *Machine {
	return &Machine{
		initial:     initial,
		current:     initial,
		transitions: make(map[string]map[string][]Transition),
	}
}

// AddTransition registers t after the transitions already known for its
// state and event.
func (m *Machine) AddTransition(t Transition) error {
	if t.From == nil || t.To == nil || t.Event == nil {
		return ErrInvalidTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	from := t.From.Name()
	if m.transitions[from] == nil {
		m.transitions[from] = make(map[string][]Transition)
	}
	m.transitions[from][t.Event.Name()] = append(m.transitions[from][t.Event.Name()], t)
	return nil
}

func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Fire takes the first allowed transition for event and returns the new
// state. On error the state is unchanged and returned as is.
func (m *Machine) Fire(ctx context.Context, event Event) (State, error) {
	if event == nil {
		return m.Current(), ErrInvalidEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.match(ctx, event)
	if err != nil {
		return m.current, err
	}
	for _, action := range t.Actions {
		if err := action(ctx, m.current, t.To, event); err != nil {
			return m.current, fmt.Errorf("%w: %w", ErrActionFailed, err)
		}
	}
	m.current = t.To
	return m.current, nil
}

// CanFire reports whether Fire would change state for event, without
// running actions.
func (m *Machine) CanFire(ctx context.Context, event Event) bool {
	if event == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.match(ctx, event)
	return err == nil
}

// Reset returns the machine to its initial state.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.current = m.initial
	m.mu.Unlock()
}

// match must be called with m.mu held.
func (m *Machine) match(ctx context.Context, event Event) (*Transition, error) {
	candidates := m.transitions[m.current.Name()][event.Name()]
	if len(candidates) == 0 {
		return nil, &NoTransitionError{State: m.current.Name(), Event: event.Name()}
	}
	for i := range candidates {
		if allow(ctx, candidates[i].Guards, m.current, event) {
			return &candidates[i], nil
		}
	}
	return nil, &RejectedError{State: m.current.Name(), Event: event.Name()}
}

func allow(ctx context.Context, guards []Guard, from State, event Event) bool {
	for _, g := range guards {
		if g != nil && !g(ctx, from, event) {
			return false
		}
	}
	return true
}
