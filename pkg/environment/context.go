package environment

import (
	"context"
	"strings"
)

// Environment names the deployment the process runs in.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Parse maps common spellings to an Environment. Unknown values are returned
// lowercased so custom environments keep working.
func Parse(s string) Environment {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "", "dev", "development", "local":
		return Development
	case "stage", "staging":
		return Staging
	case "prod", "production":
		return Production
	default:
		return Environment(v)
	}
}

func (e Environment) String() string { return string(e) }

// IsProduction reports whether strict behavior should be relaxed in favor of
// availability.
func (e Environment) IsProduction() bool { return e == Production }

func (e Environment) IsDevelopment() bool { return e == Development }

type contextKey struct{}

// WithContext attaches env to ctx.
func WithContext(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, contextKey{}, env)
}

// FromContext returns the environment attached to ctx, or Development when
// none is set.
func FromContext(ctx context.Context) Environment {
	if ctx == nil {
		return Development
	}
	if env, ok := ctx.Value(contextKey{}).(Environment); ok && env != "" {
		return env
	}
	return Development
}

func IsProduction(ctx context.Context) bool  { return FromContext(ctx).IsProduction() }
func IsDevelopment(ctx context.Context) bool { return FromContext(ctx).IsDevelopment() }
