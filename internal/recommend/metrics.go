package recommend

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricRequestsTotal   = "recommend_requests_total"
	MetricErrorsTotal     = "recommend_errors_total"
	MetricRequestDuration = "recommend_request_duration_seconds"
)

// Metrics contains Prometheus metrics for recommendation generation.
// All operations are thread-safe.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates and returns a new Metrics instance with all
// collectors initialized. The metrics are not registered; call Register
// to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRequestsTotal,
			Help: "Total number of recommendation requests by type",
		}, []string{"type"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricErrorsTotal,
			Help: "Total number of failed recommendation requests by type",
		}, []string{"type"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricRequestDuration,
			Help:    "Histogram of recommendation generation duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"type"}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.requestsTotal,
		m.errorsTotal,
		m.requestDuration,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveRequest records one completed request for the type.
func (m *Metrics) ObserveRequest(t Type, seconds float64) {
	m.requestsTotal.WithLabelValues(string(t)).Inc()
	m.requestDuration.WithLabelValues(string(t)).Observe(seconds)
}

// IncError records a failed request for the type.
func (m *Metrics) IncError(t Type) {
	m.errorsTotal.WithLabelValues(string(t)).Inc()
}
