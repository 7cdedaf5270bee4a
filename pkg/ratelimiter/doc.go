// Package ratelimiter is an in-memory token bucket keyed per client.
//
// The proxy uses it to cap how often a single address can report
// conversions:
//
//	lim, err := ratelimiter.New(ratelimiter.Config{Capacity: 20, Rate: 10, Interval: time.Minute})
//	go lim.Run(ctx, 5*time.Minute, time.Hour)
//	r.With(ratelimiter.Middleware(lim, ratelimiter.ClientIP, log)).Post("/lead", h)
package ratelimiter
