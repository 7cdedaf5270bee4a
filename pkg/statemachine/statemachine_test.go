package statemachine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/attribution/pkg/statemachine"
)

type state string

func (s state) Name() string { return string(s) }

type event string

func (e event) Name() string { return string(e) }

const (
	draft     state = "draft"
	review    state = "review"
	published state = "published"
	rejected  state = "rejected"

	submit  event = "submit"
	approve event = "approve"
	decline event = "decline"
)

func TestMachine_Fire(t *testing.T) {
	t.Parallel()

	m := statemachine.NewBuilder(draft).
		From(draft).When(submit).To(review).Add().
		From(review).When(approve).To(published).Add().
		MustBuild()
	ctx := context.Background()

	assert.Equal(t, draft, m.Current())
	assert.True(t, m.CanFire(ctx, submit))
	assert.False(t, m.CanFire(ctx, approve))

	s, err := m.Fire(ctx, submit)
	require.NoError(t, err)
	assert.Equal(t, review, s)

	s, err = m.Fire(ctx, submit)
	assert.True(t, statemachine.IsNoTransition(err))
	assert.Equal(t, review, s, "state unchanged on error")

	_, err = m.Fire(ctx, approve)
	require.NoError(t, err)
	assert.Equal(t, published, m.Current())

	m.Reset()
	assert.Equal(t, draft, m.Current())

	_, err = m.Fire(ctx, nil)
	assert.ErrorIs(t, err, statemachine.ErrInvalidEvent)
}

func TestMachine_GuardsPickTheFirstAllowedTarget(t *testing.T) {
	t.Parallel()

	var approved bool
	isApproved := func(context.Context, statemachine.State, statemachine.Event) bool { return approved }

	b := statemachine.NewBuilder(review)
	b.From(review).When(decline).To(published).WithGuard(isApproved).Add()
	b.From(review).When(decline).To(rejected).Add()
	b.From(review).When(approve).To(published).WithGuard(isApproved).Add()
	m, err := b.Build()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = m.Fire(ctx, approve)
	assert.True(t, statemachine.IsRejected(err))
	assert.Equal(t, review, m.Current())

	approved = true
	s, err := m.Fire(ctx, decline)
	require.NoError(t, err)
	assert.Equal(t, published, s)

	m.Reset()
	approved = false
	s, err = m.Fire(ctx, decline)
	require.NoError(t, err)
	assert.Equal(t, rejected, s)
}

func TestMachine_Actions(t *testing.T) {
	t.Parallel()

	var seen []string
	record := func(_ context.Context, from, to statemachine.State, ev statemachine.Event) error {
		seen = append(seen, from.Name()+">"+to.Name()+":"+ev.Name())
		return nil
	}
	boom := errors.New("boom")

	m := statemachine.NewBuilder(draft).
		From(draft).When(submit).To(review).WithAction(record).Add().
		From(review).When(approve).To(published).WithAction(func(context.Context, statemachine.State, statemachine.State, statemachine.Event) error {
		return boom
	}).Add().
		MustBuild()
	ctx := context.Background()

	_, err := m.Fire(ctx, submit)
	require.NoError(t, err)
	assert.Equal(t, []string{"draft>review:submit"}, seen)

	_, err = m.Fire(ctx, approve)
	assert.ErrorIs(t, err, statemachine.ErrActionFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, review, m.Current())
}

func TestBuilder_Errors(t *testing.T) {
	t.Parallel()

	_, err := statemachine.NewBuilder(draft).
		From(draft).When(submit).Add().
		Build()
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	_, err = statemachine.NewBuilder(nil).Build()
	assert.ErrorIs(t, err, statemachine.ErrNoInitialState)

	assert.Panics(t, func() {
		statemachine.NewBuilder(draft).From(draft).To(review).Add().MustBuild()
	})
}

func TestMachine_Concurrent(t *testing.T) {
	t.Parallel()

	m := statemachine.NewBuilder(draft).
		From(draft).When(submit).To(review).Add().
		From(review).When(submit).To(draft).Add().
		MustBuild()

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Fire(context.Background(), submit)
			_ = m.Current()
		}()
	}
	wg.Wait()
	assert.Equal(t, draft, m.Current(), "an even number of toggles")
}
