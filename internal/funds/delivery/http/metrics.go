package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/fundwatch/internal/funds/reconciler"
)

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	requestCounter *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	requestSummary *prometheus.SummaryVec
	toggleOutcomes *prometheus.CounterVec
	keysIssued     prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg, together
// with a collector reporting live sessions per state.
func NewMetrics(reg prometheus.Registerer, sessions *reconciler.Registry) *Metrics {
	m := &Metrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundwatch_requests_total",
				Help: "Total number of requests to fundwatch",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundwatch_request_duration_seconds",
				Help:    "Duration of fundwatch requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		// Summary metric for percentile calculation (p50, p90, p95, p99)
		requestSummary: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name: "fundwatch_request_duration_summary",
				Help: "Summary of request durations with percentiles (client-side quantiles)",
				Objectives: map[float64]float64{
					0.5:  0.05,
					0.9:  0.01,
					0.95: 0.01,
					0.99: 0.001,
				},
				MaxAge: 10 * time.Minute,
			},
			[]string{"method", "endpoint"},
		),
		toggleOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundwatch_favorite_toggles_total",
				Help: "Favorite toggles by outcome and resulting source",
			},
			[]string{"outcome", "source"},
		),
		keysIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fundwatch_identity_keys_issued_total",
				Help: "User keys issued to requests without a usable cookie",
			},
		),
	}

	reg.MustRegister(m.requestCounter, m.requestLatency, m.requestSummary, m.toggleOutcomes, m.keysIssued)
	if sessions != nil {
		reg.MustRegister(newSessionCollector(sessions))
	}
	return m
}

// KeyIssued counts one newly issued user key
func (m *Metrics) KeyIssued() {
	m.keysIssued.Inc()
}

func (m *Metrics) observeToggle(res reconciler.ToggleResult) {
	m.toggleOutcomes.WithLabelValues(string(res.Outcome), res.Source.String()).Inc()
}

// sessionCollector reports live sessions per state at scrape time
type sessionCollector struct {
	sessions *reconciler.Registry
	desc     *prometheus.Desc
}

func newSessionCollector(sessions *reconciler.Registry) *sessionCollector {
	return &sessionCollector{
		sessions: sessions,
		desc: prometheus.NewDesc(
			"fundwatch_sessions",
			"Live favorites sessions by source state",
			[]string{"state"}, nil,
		),
	}
}

func (c *sessionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *sessionCollector) Collect(ch chan<- prometheus.Metric) {
	for state, n := range c.sessions.Counts() {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n), state.String())
	}
}
