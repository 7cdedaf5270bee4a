package statemachine

import "context"

// State is a node of the machine. States are compared by Name.
type State interface {
	Name() string
}

// Event triggers a transition out of the current state.
type Event interface {
	Name() string
}

// Guard vetoes a transition when it returns false.
type Guard func(ctx context.Context, from State, event Event) bool

// Action runs after the guards pass and before the state changes. An error
// aborts the transition.
type Action func(ctx context.Context, from, to State, event Event) error

// Transition moves the machine from From to To on Event.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard  // all must pass
	Actions []Action // run in order
}

// StateMachine is the read and fire surface shared by callers.
type StateMachine interface {
	Current() State
	Fire(ctx context.Context, event Event) (State, error)
	CanFire(ctx context.Context, event Event) bool
	Reset()
}
