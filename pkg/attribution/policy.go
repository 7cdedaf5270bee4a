package attribution

import (
	"fmt"
	"strings"

	"github.com/dmitrymomot/attribution/pkg/scriptconfig"
)

// Policy is the attribution model applied to cookie writes.
type Policy = scriptconfig.Model

const (
	FirstClick = scriptconfig.FirstClick
	LastClick  = scriptconfig.LastClick
)

// ParsePolicy parses "first-click" or "last-click".
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
	return p, nil
}

// ShouldAccept reports whether candidate may replace the stored identifier
// existing. An empty candidate is never accepted. Under last-click an
// identical identifier is rejected, so the cookie expiry is not refreshed.
// Unknown policies behave like last-click.
func ShouldAccept(candidate, existing string, policy Policy) bool {
	switch {
	case candidate == "":
		return false
	case existing == "":
		return true
	case policy == FirstClick:
		return false
	default:
		return candidate != existing
	}
}
