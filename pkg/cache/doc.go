// Package cache provides a generic in-memory LRU with optional expiry.
//
// The attribution middleware resolves script attributes for every page
// request; caching the result per hostname keeps that off the hot path while
// the TTL keeps time-relative values such as cookie expiry fresh.
//
//	c := cache.NewLRU[string, scriptconfig.Config](256, cache.WithTTL(time.Minute))
//	cfg := c.GetOrCompute(host, func() scriptconfig.Config { return resolve(host) })
package cache
