package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/dmitrymomot/attribution/pkg/config"
	"github.com/dmitrymomot/attribution/pkg/environment"
	"github.com/dmitrymomot/attribution/pkg/httpserver"
	"github.com/dmitrymomot/attribution/pkg/logger"
	"github.com/dmitrymomot/attribution/pkg/ratelimiter"
	"github.com/dmitrymomot/attribution/pkg/requestid"
	"github.com/dmitrymomot/attribution/pkg/scriptconfig"
)

const serviceName = "attributiond"

var errNoUpstream = errors.New("UPSTREAM_URL is required")

// Config is the service configuration read from the environment.
type Config struct {
	HTTP      httpserver.Config
	RateLimit ratelimiter.Config

	UpstreamURL    string        `env:"UPSTREAM_URL"`
	PreserveHost   bool          `env:"PRESERVE_HOST" envDefault:"true"`
	ScriptConfig   string        `env:"SCRIPT_CONFIG" envDefault:"attribution.yaml"`
	AppEnv         string        `env:"APP_ENV" envDefault:"development"`
	LogLevel       string        `env:"LOG_LEVEL"`
	TrackTimeout   time.Duration `env:"TRACK_TIMEOUT" envDefault:"5s"`
	AwaitTimeout   time.Duration `env:"ATTRIBUTION_AWAIT_TIMEOUT" envDefault:"2s"`
	AttributeBots  bool          `env:"ATTRIBUTE_BOTS"`
	SecretKey      string        `env:"SECRET_KEY"`
	PublishableKey string        `env:"PUBLISHABLE_KEY"`

	// ConversionToken authenticates the upstream application on the
	// server-side conversion endpoints.
	ConversionToken string `env:"CONVERSION_TOKEN"`
}

func loadConfig(envFiles []string) (Config, error) {
	var cfg Config
	if err := config.Parse(&cfg, envFiles...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Environment() environment.Environment {
	return environment.Parse(c.AppEnv)
}

func (c Config) Upstream() (*url.URL, error) {
	if c.UpstreamURL == "" {
		return nil, errNoUpstream
	}
	u, err := url.Parse(c.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("UPSTREAM_URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("UPSTREAM_URL: %q is not an absolute http(s) URL", c.UpstreamURL)
	}
	return u, nil
}

// Attributes loads the script attributes. The publishable key from the
// environment fills in a missing data-publishable-key.
func (c Config) Attributes() (scriptconfig.Map, error) {
	attrs, err := scriptconfig.LoadYAML(c.ScriptConfig)
	if err != nil {
		return nil, err
	}
	if _, ok := attrs.Get(scriptconfig.AttrPublishableKey); !ok && c.PublishableKey != "" {
		attrs[scriptconfig.AttrPublishableKey] = c.PublishableKey
	}
	return attrs, nil
}

func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := []logger.Option{
		logger.WithOutput(w),
		logger.WithEnvironment(c.Environment().String(), serviceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if c.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(c.LogLevel))
	}
	return logger.New(opts...)
}
