package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricRefreshTotal      = "snapshot_refresh_total"
	MetricRefreshErrors     = "snapshot_refresh_errors_total"
	MetricRefreshDuration   = "snapshot_refresh_duration_seconds"
	MetricLastRefreshTime   = "snapshot_last_refresh_timestamp"
	MetricSnapshotNodes     = "snapshot_graph_nodes"
	MetricSnapshotEdges     = "snapshot_graph_edges"
	MetricSnapshotCommunity = "snapshot_communities"
)

// Metrics contains Prometheus metrics for snapshot refreshes.
// All operations are thread-safe.
type Metrics struct {
	refreshTotal    prometheus.Counter
	refreshErrors   prometheus.Counter
	refreshDuration prometheus.Histogram
	lastRefreshTime prometheus.Gauge
	graphNodes      prometheus.Gauge
	graphEdges      prometheus.Gauge
	communities     prometheus.Gauge
}

// NewMetrics creates and returns a new Metrics instance with all
// collectors initialized. The metrics are not registered; call Register
// to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		refreshTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRefreshTotal,
			Help: "Total number of snapshot refresh operations",
		}),
		refreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRefreshErrors,
			Help: "Total number of failed snapshot refreshes",
		}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRefreshDuration,
			Help:    "Histogram of snapshot refresh duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		}),
		lastRefreshTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricLastRefreshTime,
			Help: "Unix timestamp of the last successful snapshot refresh",
		}),
		graphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricSnapshotNodes,
			Help: "Number of users in the published snapshot graph",
		}),
		graphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricSnapshotEdges,
			Help: "Number of follow edges in the published snapshot graph",
		}),
		communities: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricSnapshotCommunity,
			Help: "Number of detected communities in the published snapshot",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.refreshTotal,
		m.refreshErrors,
		m.refreshDuration,
		m.lastRefreshTime,
		m.graphNodes,
		m.graphEdges,
		m.communities,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveRefresh records a successful refresh and the published snapshot's
// shape.
func (m *Metrics) ObserveRefresh(seconds float64, snap *Snapshot) {
	m.refreshTotal.Inc()
	m.refreshDuration.Observe(seconds)
	m.lastRefreshTime.SetToCurrentTime()
	m.graphNodes.Set(float64(snap.Graph.NodeCount()))
	m.graphEdges.Set(float64(snap.Graph.EdgeCount()))
	m.communities.Set(float64(len(snap.Communities)))
}

// IncRefreshErrors records a failed refresh.
func (m *Metrics) IncRefreshErrors() {
	m.refreshErrors.Inc()
}
