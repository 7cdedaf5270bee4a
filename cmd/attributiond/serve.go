package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/attribution/pkg/attribution"
	"github.com/dmitrymomot/attribution/pkg/clientip"
	"github.com/dmitrymomot/attribution/pkg/environment"
	"github.com/dmitrymomot/attribution/pkg/httpserver"
	"github.com/dmitrymomot/attribution/pkg/logger"
	"github.com/dmitrymomot/attribution/pkg/outbound"
	"github.com/dmitrymomot/attribution/pkg/ratelimiter"
	"github.com/dmitrymomot/attribution/pkg/requestid"
	"github.com/dmitrymomot/attribution/pkg/scriptconfig"
	"github.com/dmitrymomot/attribution/pkg/trackapi"
)

func newServeCmd(load func() (Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the attribution reverse proxy in front of UPSTREAM_URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			log := cfg.Logger(cmd.ErrOrStderr())

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			handler, err := newHandler(cmd.Context(), cfg, log, reg)
			if err != nil {
				return err
			}

			srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return srv.Run(ctx, handler) })
			g.Go(func() error {
				<-ctx.Done()
				log.InfoContext(context.WithoutCancel(ctx), "shutting down")
				return nil
			})
			return g.Wait()
		},
	}
}

// newHandler wires the proxy. Page requests go through attribution first so
// the click id cookie exists by the time outbound links are decorated.
func newHandler(ctx context.Context, cfg Config, log *slog.Logger, reg *prometheus.Registry) (http.Handler, error) {
	upstream, err := cfg.Upstream()
	if err != nil {
		return nil, err
	}
	attrs, err := cfg.Attributes()
	if err != nil {
		return nil, err
	}

	// The API host is shared by every site the proxy serves.
	base, diags := scriptconfig.Resolve(attrs, upstream.Hostname(), time.Now())
	if len(diags) > 0 {
		log.Warn("script attributes partially ignored", logger.Errors(diags...))
	}

	pageAPI := trackapi.New(base.APIHost,
		trackapi.WithTimeout(cfg.TrackTimeout),
		trackapi.WithPublishableKey(base.PublishableKey),
		trackapi.WithLogger(log),
		trackapi.WithMetrics(prometheus.WrapRegistererWith(prometheus.Labels{"auth": "publishable"}, reg)),
	)

	proxy := newProxy(upstream, cfg.PreserveHost, log)

	pageOpts := []attribution.MiddlewareOption{
		attribution.WithAwaitTimeout(cfg.AwaitTimeout),
		attribution.WithMiddlewareLogger(log),
	}
	if cfg.AttributeBots {
		pageOpts = append(pageOpts, attribution.WithAutomatedTraffic())
	}
	pages := attribution.Middleware(attrs, pageAPI, pageOpts...)
	links := outbound.Middleware(outboundTarget,
		outbound.WithLogger(log),
		outbound.WithMetrics(outbound.NewMetrics(reg)),
	)

	r := chi.NewRouter()
	r.Use(
		requestid.Middleware,
		clientip.Middleware(),
		environment.Middleware(cfg.Environment()),
	)

	r.Get("/healthz", httpserver.HealthHandler(log, time.Second))
	r.Get("/readyz", httpserver.HealthHandler(log, 2*time.Second, httpserver.Check{
		Name: "upstream",
		Fn:   upstreamCheck(upstream),
	}))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	switch {
	case cfg.SecretKey == "":
	case cfg.ConversionToken == "":
		log.WarnContext(ctx, "conversion endpoints disabled: CONVERSION_TOKEN is not set")
	default:
		serverAPI := trackapi.New(base.APIHost,
			trackapi.WithTimeout(cfg.TrackTimeout),
			trackapi.WithSecretKey(cfg.SecretKey),
			trackapi.WithLogger(log),
			trackapi.WithMetrics(prometheus.WrapRegistererWith(prometheus.Labels{"auth": "secret"}, reg)),
		)
		lim, err := ratelimiter.New(cfg.RateLimit)
		if err != nil {
			return nil, err
		}
		go lim.Run(ctx, 5*time.Minute, time.Hour)
		mountConversions(r, serverAPI, cfg.SecretKey, cfg.ConversionToken, lim, log)
	}

	r.Handle("/*", pages(links(proxy)))
	return r, nil
}

func outboundTarget(r *http.Request) (outbound.Target, bool) {
	inst, ok := attribution.FromContext(r.Context())
	if !ok {
		return outbound.Target{}, false
	}
	return outbound.Target{
		PageURL:  inst.URL(),
		Patterns: inst.Config().OutboundDomains,
		ClickID:  inst.ClickID(),
	}, true
}

func newProxy(upstream *url.URL, preserveHost bool, log *slog.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
			if preserveHost {
				pr.Out.Host = pr.In.Host
			}
			// Pages must come back uncompressed to be decorated. The
			// transport still negotiates gzip with the upstream and
			// decompresses transparently.
			pr.Out.Header.Del("Accept-Encoding")
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.ErrorContext(r.Context(), "upstream request failed", logger.URL(r.URL.String()), logger.Error(err))
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		},
	}
}

func upstreamCheck(upstream *url.URL) func(context.Context) error {
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, upstream.String(), nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("upstream responded %d", resp.StatusCode)
		}
		return nil
	}
}
