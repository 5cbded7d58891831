package profile

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricCacheHits   = "profile_cache_hits_total"
	MetricCacheMisses = "profile_cache_misses_total"
	MetricCacheErrors = "profile_cache_errors_total"
)

// Metrics contains Prometheus metrics for the profile cache.
// All operations are thread-safe.
type Metrics struct {
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheErrors prometheus.Counter
}

// NewMetrics creates and returns a new Metrics instance with all
// collectors initialized. The metrics are not registered; call Register
// to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCacheHits,
			Help: "Total number of profile cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCacheMisses,
			Help: "Total number of profile cache misses",
		}),
		cacheErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCacheErrors,
			Help: "Total number of profile cache read or write failures",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.cacheHits,
		m.cacheMisses,
		m.cacheErrors,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncHits records a cache hit.
func (m *Metrics) IncHits() { m.cacheHits.Inc() }

// IncMisses records a cache miss.
func (m *Metrics) IncMisses() { m.cacheMisses.Inc() }

// IncErrors records a cache failure.
func (m *Metrics) IncErrors() { m.cacheErrors.Inc() }
