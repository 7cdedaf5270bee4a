package ratelimiter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config is a token bucket: Capacity is the burst, Rate tokens are added
// every Interval.
type Config struct {
	Capacity int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
	Rate     int           `env:"RATE_LIMIT_RATE" envDefault:"10"`
	Interval time.Duration `env:"RATE_LIMIT_INTERVAL" envDefault:"1m"`
}

func (c Config) validate() error {
	if c.Capacity <= 0 || c.Rate <= 0 || c.Interval <= 0 {
		return fmt.Errorf("%w: capacity, rate and interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// Result of one Allow call.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

func (r Result) Allowed() bool { return r.Remaining >= 0 }

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastSeen   time.Time
}

// Limiter keeps one in-memory token bucket per key.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func New(cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	l := &Limiter{cfg: cfg, now: time.Now, buckets: make(map[string]*bucket)}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Allow takes one token from key's bucket. A negative Remaining means the
// call was denied.
func (l *Limiter) Allow(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.cfg.Capacity, lastRefill: now}
		l.buckets[key] = b
	}

	if elapsed := int(now.Sub(b.lastRefill) / l.cfg.Interval); elapsed > 0 {
		// Cap before multiplying so long idle periods cannot overflow.
		elapsed = min(elapsed, l.cfg.Capacity/l.cfg.Rate+1)
		b.tokens = min(b.tokens+elapsed*l.cfg.Rate, l.cfg.Capacity)
		b.lastRefill = now
	}
	b.lastSeen = now

	res := Result{Limit: l.cfg.Capacity, ResetAt: b.lastRefill.Add(l.cfg.Interval)}
	if b.tokens <= 0 {
		res.Remaining = -1
		return res
	}
	b.tokens--
	res.Remaining = b.tokens
	return res
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Sweep drops buckets idle for longer than idle.
func (l *Limiter) Sweep(idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	for k, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, k)
		}
	}
}

// Run sweeps idle buckets every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval, idle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep(idle)
		}
	}
}
