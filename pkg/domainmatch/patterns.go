package domainmatch

import (
	"slices"
	"strings"
)

// Patterns is an ordered, de-duplicated set of normalized domain patterns.
type Patterns struct {
	items []string
}

// ParsePatterns reads a comma-separated pattern list.
func ParsePatterns(list string) Patterns {
	return NewPatterns(strings.Split(list, ","))
}

// NewPatterns builds a set from individual patterns, dropping blanks and
// duplicates.
func NewPatterns(list []string) Patterns {
	p := Patterns{items: make([]string, 0, len(list))}
	for _, raw := range list {
		n := Normalize(raw)
		if n == "" || n == wildcardPrefix || slices.Contains(p.items, n) {
			continue
		}
		p.items = append(p.items, n)
	}
	return p
}

func (p Patterns) Len() int { return len(p.items) }

// List returns a copy of the normalized patterns, or nil for an empty set.
func (p Patterns) List() []string {
	if len(p.items) == 0 {
		return nil
	}
	return slices.Clone(p.items)
}

func (p Patterns) String() string {
	return strings.Join(p.items, ",")
}

// Contains reports whether pattern, once normalized, is in the set.
func (p Patterns) Contains(pattern string) bool {
	return slices.Contains(p.items, Normalize(pattern))
}

// MatchHost returns the first pattern matching host.
func (p Patterns) MatchHost(host string) (string, bool) {
	for _, pattern := range p.items {
		if MatchHost(host, pattern) {
			return pattern, true
		}
	}
	return "", false
}

// MatchAny returns the first pattern matching the host of rawURL.
func (p Patterns) MatchAny(rawURL string) (string, bool) {
	host, ok := Hostname(rawURL)
	if !ok {
		return "", false
	}
	return p.MatchHost(host)
}

// Without returns the set minus the exact pattern equal to host. Wildcards
// are kept; same-site links are excluded separately with SameSite.
func (p Patterns) Without(host string) Patterns {
	host = Normalize(host)
	out := Patterns{items: make([]string, 0, len(p.items))}
	for _, pattern := range p.items {
		if pattern != host {
			out.items = append(out.items, pattern)
		}
	}
	return out
}

// MarshalYAML renders the set as a list.
func (p Patterns) MarshalYAML() (any, error) {
	return p.List(), nil
}
