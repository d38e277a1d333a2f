// Package metrics exports Prometheus metrics for the detection client and
// the availability poller.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Veraticus/chatguard/internal/api"
	"github.com/Veraticus/chatguard/internal/availability"
	"github.com/Veraticus/chatguard/internal/common"
)

const namespace = "chatguard"

var _ api.Observer = (*Metrics)(nil)

// Metrics holds the client and poller collectors.
type Metrics struct {
	registry *prometheus.Registry

	AttemptsTotal   *prometheus.CounterVec
	RetriesTotal    *prometheus.CounterVec
	AttemptDuration *prometheus.HistogramVec
	BackendUp       prometheus.Gauge
	LastCheck       prometheus.Gauge
}

// New creates the collectors on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_attempts_total",
			Help:      "Backend request attempts by endpoint and outcome kind",
		}, []string{"endpoint", "outcome"}),
		RetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_retries_total",
			Help:      "Retries scheduled after a retryable failure",
		}, []string{"endpoint", "status"}),
		AttemptDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_attempt_duration_seconds",
			Help:      "Duration of individual backend request attempts",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		BackendUp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_up",
			Help:      "1 when the backend is online, 0 when offline, -1 while checking",
		}),
		LastCheck: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_last_check_timestamp_seconds",
			Help:      "Unix time of the last completed availability check",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAttempt records one request attempt.
func (m *Metrics) ObserveAttempt(endpoint string, status int, duration time.Duration) {
	outcome := "success"
	if status < 200 || status > 299 {
		outcome = common.Classify(status).String()
	}
	m.AttemptsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.AttemptDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// ObserveRetry records a scheduled retry.
func (m *Metrics) ObserveRetry(endpoint string, status int) {
	m.RetriesTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

// ObserveAvailability records a poller snapshot.
func (m *Metrics) ObserveAvailability(snap availability.Snapshot) {
	switch snap.State {
	case availability.StateOnline:
		m.BackendUp.Set(1)
	case availability.StateOffline:
		m.BackendUp.Set(0)
	default:
		m.BackendUp.Set(-1)
	}
	if snap.Checked() {
		m.LastCheck.Set(float64(snap.LastCheckedAt.Unix()))
	}
}
