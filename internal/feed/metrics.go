package feed

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricFeedRequestsTotal    = "feed_requests_total"
	MetricFeedErrorsTotal      = "feed_errors_total"
	MetricFeedBuildDuration    = "feed_build_duration_seconds"
	MetricFeedCandidatesTotal  = "feed_candidates_total"
	MetricFeedItemsEmitted     = "feed_items_emitted"
	MetricFeedFatigueDropTotal = "feed_fatigue_drops_total"
)

// Metrics contains Prometheus metrics for feed assembly.
// All operations are thread-safe.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	buildDuration   *prometheus.HistogramVec
	candidatesTotal *prometheus.CounterVec
	itemsEmitted    *prometheus.HistogramVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricFeedRequestsTotal,
			Help: "Total number of feed assembly requests by variant",
		}, []string{"variant"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricFeedErrorsTotal,
			Help: "Total number of failed feed assembly requests by variant",
		}, []string{"variant"}),
		buildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricFeedBuildDuration,
			Help:    "Histogram of feed assembly duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"variant"}),
		candidatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricFeedCandidatesTotal,
			Help: "Total number of candidates fetched by category",
		}, []string{"category"}),
		itemsEmitted: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricFeedItemsEmitted,
			Help:    "Histogram of items emitted per assembled feed",
			Buckets: []float64{0, 5, 10, 20, 50, 100, 200},
		}, []string{"variant"}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.requestsTotal,
		m.errorsTotal,
		m.buildDuration,
		m.candidatesTotal,
		m.itemsEmitted,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveRequest records one completed assembly for the variant.
func (m *Metrics) ObserveRequest(variant Variant, seconds float64, emitted int) {
	m.requestsTotal.WithLabelValues(string(variant)).Inc()
	m.buildDuration.WithLabelValues(string(variant)).Observe(seconds)
	m.itemsEmitted.WithLabelValues(string(variant)).Observe(float64(emitted))
}

// IncError records a failed assembly for the variant.
func (m *Metrics) IncError(variant Variant) {
	m.errorsTotal.WithLabelValues(string(variant)).Inc()
}

// AddCandidates records fetched candidate counts for a category.
func (m *Metrics) AddCandidates(category Source, n int) {
	m.candidatesTotal.WithLabelValues(string(category)).Add(float64(n))
}
