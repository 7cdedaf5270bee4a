package trackapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attribution_track_requests_total",
			Help: "Tracking API requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attribution_track_request_duration_seconds",
			Help:    "Tracking API request latency",
			Buckets: []float64{.025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"endpoint"}),
	}
}

func (m *metrics) observe(endpoint string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
	m.requests.WithLabelValues(endpoint, outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return strconv.Itoa(apiErr.StatusCode)
	}
	return "error"
}
