package trackapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout bounds every request. Default is 5 seconds.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithPublishableKey authenticates browser-side lead and sale calls.
func WithPublishableKey(key string) Option {
	return func(cl *Client) { cl.publishableKey = key }
}

// WithSecretKey authenticates server-side lead and sale calls. It takes
// precedence over a publishable key.
func WithSecretKey(key string) Option {
	return func(cl *Client) { cl.secretKey = key }
}

func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// WithMetrics registers request metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(cl *Client) {
		if reg != nil {
			cl.metrics = newMetrics(reg)
		}
	}
}
