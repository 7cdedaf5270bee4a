package statemachine

import (
	"errors"
	"fmt"
)

// Builder declares transitions fluently:
//
//	b := statemachine.NewBuilder(Idle)
//	b.From(Idle).When(Start).To(Running).WithGuard(ready).Add()
//	m, err := b.Build()
//
// The first invalid transition is remembered and reported by Build.
type Builder struct {
	machine *Machine
	pending Transition
	added   int
	errs    []error
}

func NewBuilder(initial State) *Builder {
	return &Builder{machine: NewMachine(initial)}
}

// From starts a new transition, discarding one that was not added.
func (b *Builder) From(s State) *Builder {
	b.pending = Transition{From: s}
	return b
}

func (b *Builder) When(e Event) *Builder {
	b.pending.Event = e
	return b
}

func (b *Builder) To(s State) *Builder {
	b.pending.To = s
	return b
}

func (b *Builder) WithGuard(g Guard) *Builder {
	if g != nil {
		b.pending.Guards = append(b.pending.Guards, g)
	}
	return b
}

func (b *Builder) WithAction(a Action) *Builder {
	if a != nil {
		b.pending.Actions = append(b.pending.Actions, a)
	}
	return b
}

// Add registers the pending transition.
func (b *Builder) Add() *Builder {
	t := b.pending
	b.pending = Transition{}
	b.added++
	if err := b.machine.AddTransition(t); err != nil {
		b.errs = append(b.errs, fmt.Errorf("transition %d: %w", b.added, err))
	}
	return b
}

// Build returns the machine, or the errors collected by Add.
func (b *Builder) Build() (*Machine, error) {
	if b.machine.initial == nil {
		return nil, ErrNoInitialState
	}
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return b.machine, nil
}

// MustBuild is Build for statically declared machines. It panics on error.
func (b *Builder) MustBuild() *Machine {
	m, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("statemachine: %v", err))
	}
	return m
}
