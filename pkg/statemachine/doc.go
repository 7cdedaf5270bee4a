// Package statemachine is a small finite state machine with guarded
// transitions and actions.
//
// States and events are any types with a Name method. Transitions are keyed
// by state and event name; when several share a key, the first one whose
// guards all pass is taken, which lets a guard pick between targets:
//
//	b := statemachine.NewBuilder(Pending)
//	b.From(Pending).When(Failed).To(Known).WithGuard(hasCookie).Add()
//	b.From(Pending).When(Failed).To(Unknown).Add()
//	m := b.MustBuild()
//
// Fire reports a *NoTransitionError when nothing is declared and a
// *RejectedError when every candidate was vetoed; the state is unchanged in
// both cases. Machine is safe for concurrent use.
package statemachine
