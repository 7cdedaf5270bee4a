package outbound

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrymomot/attribution/pkg/scriptconfig"
)

const (
	DefaultParam    = scriptconfig.ClickIDCookie
	DefaultInterval = 2 * time.Second
)

// Option configures a Decorator.
type Option func(*Decorator)

// WithParam sets the query parameter carrying the click id.
func WithParam(name string) Option {
	return func(d *Decorator) {
		if name != "" {
			d.param = name
		}
	}
}

// WithInterval sets the rescan interval of Run.
func WithInterval(interval time.Duration) Option {
	return func(d *Decorator) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Decorator) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics counts decorated and skipped elements on reg.
func WithMetrics(m *Metrics) Option {
	return func(d *Decorator) {
		d.metrics = m
	}
}

// Metrics are the decoration counters. Create them once per registry and
// share them between decorators.
type Metrics struct {
	elements *prometheus.CounterVec
}

// NewMetrics registers the decoration counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		elements: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "attribution_outbound_elements_total",
			Help: "Outbound links and iframes examined, by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) observe(res Result) {
	if m == nil {
		return
	}
	m.elements.WithLabelValues("decorated").Add(float64(res.Decorated))
	m.elements.WithLabelValues("skipped").Add(float64(res.Skipped))
	m.elements.WithLabelValues("error").Add(float64(len(res.Errors)))
}
