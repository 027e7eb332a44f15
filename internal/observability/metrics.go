package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "health_risk"

// Metrics holds the Prometheus collectors for the daily generation job.
type Metrics struct {
	RunsTotal    *prometheus.CounterVec // labels: result={completed,fatal,locked}
	RunDuration  prometheus.Histogram
	RunInFlight  prometheus.Gauge
	UserOutcomes *prometheus.CounterVec // labels: status={success,skipped,error}
	RiskLevels   *prometheus.CounterVec // labels: level={low,moderate,high}

	// Upstream provider metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: provider, outcome={success,error}
	UpstreamDuration *prometheus.HistogramVec // labels: provider
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.RunInFlight,
		m.UserOutcomes,
		m.RiskLevels,
		m.UpstreamRequests,
		m.UpstreamDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_runs_total",
			Help:      "Daily generation runs by result.",
		}, []string{"result"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_run_duration_seconds",
			Help:      "Duration of a complete generation run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
		RunInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation_run_in_flight",
			Help:      "1 while a generation run is executing in this process.",
		}),
		UserOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_outcomes_total",
			Help:      "Per-user generation outcomes by status.",
		}, []string{"status"}),
		RiskLevels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_levels_total",
			Help:      "Persisted risk assessments by level.",
		}, []string{"level"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Environmental provider requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Environmental provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
	}
}
