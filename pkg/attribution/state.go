package attribution

import (
	"context"

	"github.com/dmitrymomot/attribution/pkg/statemachine"
)

// State is the identity state of a page load.
type State string

const (
	NoIdentity                State = "no_identity"
	IdentityFromURLParam      State = "identity_from_url_param"
	IdentityPendingResolution State = "identity_pending_resolution"
	IdentityEstablished       State = "identity_established"
	IdentityFromSiteVisit     State = "identity_from_site_visit"
)

func (s State) Name() string { return string(s) }

type trigger string

const (
	triggerCookieFound trigger = "cookie_found"
	triggerDirectID    trigger = "direct_id"
	triggerReferral    trigger = "referral"
	triggerResolved    trigger = "resolved"
	triggerFailed      trigger = "failed"
	triggerSiteVisit   trigger = "site_visit"
)

func (t trigger) Name() string { return string(t) }

// newMachine builds the transition table of a page load. A failed referral
// falls back to an established identity only while a cookie is stored.
func newMachine(hasCookie func() bool) *statemachine.Machine {
	cookieStored := func(context.Context, statemachine.State, statemachine.Event) bool {
		return hasCookie()
	}

	b := statemachine.NewBuilder(NoIdentity)
	b.From(NoIdentity).When(triggerCookieFound).To(IdentityEstablished).Add()
	for _, from := range []State{NoIdentity, IdentityFromURLParam, IdentityPendingResolution, IdentityEstablished, IdentityFromSiteVisit} {
		b.From(from).When(triggerDirectID).To(IdentityFromURLParam).Add()
	}
	for _, from := range []State{NoIdentity, IdentityFromURLParam, IdentityEstablished, IdentityFromSiteVisit} {
		b.From(from).When(triggerReferral).To(IdentityPendingResolution).Add()
	}
	b.From(IdentityPendingResolution).When(triggerResolved).To(IdentityEstablished).Add()
	b.From(IdentityPendingResolution).When(triggerFailed).To(IdentityEstablished).WithGuard(cookieStored).Add()
	b.From(IdentityPendingResolution).When(triggerFailed).To(NoIdentity).Add()
	b.From(NoIdentity).When(triggerSiteVisit).To(IdentityFromSiteVisit).Add()
	return b.MustBuild()
}
