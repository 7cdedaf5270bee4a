package attribution

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/attribution/pkg/clientip"
	"github.com/dmitrymomot/attribution/pkg/cookie"
	"github.com/dmitrymomot/attribution/pkg/logger"
	"github.com/dmitrymomot/attribution/pkg/scriptconfig"
	"github.com/dmitrymomot/attribution/pkg/trackapi"
	"github.com/dmitrymomot/attribution/pkg/useragent"
)

// DefaultAwaitTimeout bounds how long a page request waits for the tracking
// API before it is served.
const DefaultAwaitTimeout = 2 * time.Second

// resolverCacheSize bounds the hostnames whose configuration is kept.
const resolverCacheSize = 256

type middleware struct {
	resolver *scriptconfig.Resolver
	api      API
	timeout  time.Duration
	logger   *slog.Logger
	options  []Option
	bots     bool
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middleware)

func WithAwaitTimeout(d time.Duration) MiddlewareOption {
	return func(m *middleware) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func WithMiddlewareLogger(l *slog.Logger) MiddlewareOption {
	return func(m *middleware) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithAutomatedTraffic runs attribution for crawlers and link unfurlers too.
// By default their page requests pass through untouched.
func WithAutomatedTraffic() MiddlewareOption {
	return func(m *middleware) { m.bots = true }
}

// WithInstanceOptions applies opts to every per-request Instance.
func WithInstanceOptions(opts ...Option) MiddlewareOption {
	return func(m *middleware) {
		m.options = append(m.options, opts...)
	}
}

// Middleware runs attribution for every HTML page request. The
// configuration is resolved from attrs for the request host, cookies are read
// from the request and written as Set-Cookie headers when the response
// headers go out. The request waits for the tracking API up to the await
// timeout; writes arriving after the response headers are dropped.
func Middleware(attrs scriptconfig.Attributes, api API, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	m := &middleware{
		api:     api,
		timeout: DefaultAwaitTimeout,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.resolver = scriptconfig.NewResolver(attrs,
		scriptconfig.WithLogger(m.logger),
		scriptconfig.WithCache(resolverCacheSize, time.Minute),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isPageRequest(r) {
				next.ServeHTTP(w, r)
				return
			}
			if agent := useragent.Parse(r.UserAgent()); !m.bots && agent.Automated() {
				m.logger.DebugContext(r.Context(), "automated page request not attributed",
					slog.String("agent", agent.Name),
					slog.String("kind", string(agent.Kind)),
				)
				next.ServeHTTP(w, r)
				return
			}

			ctx := trackapi.WithVisitor(r.Context(), visitor(r))
			page := PageFromRequest(r)
			cfg := m.resolver.Resolve(ctx, hostname(r.Host))

			jar := cookie.NewHTTPJar(w, r)
			jar.OnDrop(func(raw string) {
				m.logger.DebugContext(ctx, "cookie written after response headers",
					slog.String("cookie", strings.SplitN(raw, "=", 2)[0]),
				)
			})
			sw := &sealingWriter{ResponseWriter: w, jar: jar}
			defer jar.Seal()

			opts := append([]Option{WithLogger(m.logger)}, m.options...)
			inst := New(cfg, page, jar, m.api, opts...)
			if _, err := inst.Init(ctx).AwaitWithTimeout(m.timeout); err != nil {
				m.logger.DebugContext(ctx, "serving before attribution resolved",
					logger.URL(page.URL().String()),
					logger.Error(err),
				)
			}

			next.ServeHTTP(sw, r.WithContext(WithContext(ctx, inst)))
		})
	}
}

type ctxKey struct{}

// WithContext stores inst in ctx.
func WithContext(ctx context.Context, inst *Instance) context.Context {
	return context.WithValue(ctx, ctxKey{}, inst)
}

// FromContext returns the Instance stored by Middleware.
func FromContext(ctx context.Context) (*Instance, bool) {
	inst, ok := ctx.Value(ctxKey{}).(*Instance)
	return inst, ok && inst != nil
}

// isPageRequest reports whether r is a navigation to an HTML page.
func isPageRequest(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml")
}

func visitor(r *http.Request) trackapi.Visitor {
	ip := clientip.FromContext(r.Context())
	if ip == "" {
		ip = clientip.FromRequest(r)
	}
	return trackapi.Visitor{IP: ip, UserAgent: r.UserAgent()}
}

func hostname(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return hostport
}

// sealingWriter seals the jar before the response headers are sent.
type sealingWriter struct {
	http.ResponseWriter
	jar *cookie.HTTPJar
}

func (w *sealingWriter) WriteHeader(status int) {
	w.jar.Seal()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sealingWriter) Write(b []byte) (int, error) {
	w.jar.Seal()
	return w.ResponseWriter.Write(b)
}

func (w *sealingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *sealingWriter) Flush() {
	w.jar.Seal()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
