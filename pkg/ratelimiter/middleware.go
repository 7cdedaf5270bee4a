package ratelimiter

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrymomot/attribution/pkg/clientip"
	"github.com/dmitrymomot/attribution/pkg/logger"
)

// KeyFunc maps a request to its bucket.
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by the address clientip.Middleware stored, falling
// back to the request itself.
func ClientIP(r *http.Request) string {
	if ip := clientip.FromContext(r.Context()); ip != "" {
		return ip
	}
	return clientip.FromRequest(r)
}

// Middleware rejects requests over the limit with 429 and sets the
// X-RateLimit-* headers on every response.
func Middleware(l *Limiter, key KeyFunc, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			res := l.Allow(k)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, res.Remaining)))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed() {
				retry := max(1, int(time.Until(res.ResetAt).Seconds()))
				h.Set("Retry-After", strconv.Itoa(retry))
				log.WarnContext(r.Context(), "rate limited", slog.String("key", k), logger.URL(r.URL.Path))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
