package scriptconfig

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/attribution/pkg/cache"
	"github.com/dmitrymomot/attribution/pkg/logger"
)

// Resolver resolves configurations for a fixed attribute set, logging the
// diagnostics of every resolution.
type Resolver struct {
	attrs  Attributes
	now    func() time.Time
	logger *slog.Logger

	cacheSize int
	cacheTTL  time.Duration
	cache     *cache.LRU[string, Config]
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithCache keeps up to size resolved configurations per hostname for ttl.
// Diagnostics are then logged once per cached resolution.
func WithCache(size int, ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.cacheSize, r.cacheTTL = size, ttl
	}
}

// NewResolver creates a Resolver over attrs.
func NewResolver(attrs Attributes, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		attrs:  attrs,
		now:    time.Now,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cacheSize > 0 {
		r.cache = cache.NewLRU[string, Config](r.cacheSize, cache.WithTTL(r.cacheTTL), cache.WithClock(r.now))
	}
	return r
}

// Resolve returns the configuration for a page served from hostname.
func (r *Resolver) Resolve(ctx context.Context, hostname string) Config {
	if r.cache == nil {
		return r.resolve(ctx, hostname)
	}
	return r.cache.GetOrCompute(strings.ToLower(hostname), func() Config {
		return r.resolve(ctx, hostname)
	})
}

func (r *Resolver) resolve(ctx context.Context, hostname string) Config {
	cfg, diags := Resolve(r.attrs, hostname, r.now())
	if len(diags) > 0 {
		r.logger.WarnContext(ctx, "script attributes partially ignored",
			logger.Component("scriptconfig"),
			logger.Errors(diags...),
		)
	}
	return cfg
}
