package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("statemachine.invalid_transition")
	ErrInvalidEvent      = errors.New("statemachine.invalid_event")
	ErrNoInitialState    = errors.New("statemachine.no_initial_state")
	ErrActionFailed      = errors.New("statemachine.action_failed")
)

// NoTransitionError is returned when nothing is declared for the current
// state and event.
type NoTransitionError struct {
	State string
	Event string
}

func (e *NoTransitionError) Error() string {
	return fmt.Sprintf("no transition from %q on %q", e.State, e.Event)
}

// RejectedError is returned when every declared transition was vetoed by a
// guard.
type RejectedError struct {
	State string
	Event string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("transition from %q on %q rejected by guards", e.State, e.Event)
}

func IsNoTransition(err error) bool {
	var e *NoTransitionError
	return errors.As(err, &e)
}

func IsRejected(err error) bool {
	var e *RejectedError
	return errors.As(err, &e)
}
