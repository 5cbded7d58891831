package feedback

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricEventsAccepted = "feedback_events_accepted_total"
	MetricEventsDropped  = "feedback_events_dropped_total"
	MetricHandlerErrors  = "feedback_handler_errors_total"
)

// Metrics contains Prometheus metrics for the feedback sink.
// All operations are thread-safe.
type Metrics struct {
	eventsAccepted *prometheus.CounterVec
	eventsDropped  prometheus.Counter
	handlerErrors  prometheus.Counter
}

// NewMetrics creates and returns a new Metrics instance with all
// collectors initialized. The metrics are not registered; call Register
// to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		eventsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricEventsAccepted,
			Help: "Total number of engagement events accepted, by kind",
		}, []string{"kind"}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricEventsDropped,
			Help: "Total number of engagement events dropped by a full queue",
		}),
		handlerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricHandlerErrors,
			Help: "Total number of event handler failures",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.eventsAccepted,
		m.eventsDropped,
		m.handlerErrors,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncAccepted records an accepted event.
func (m *Metrics) IncAccepted(kind Kind) {
	m.eventsAccepted.WithLabelValues(string(kind)).Inc()
}

// IncDropped records a dropped event.
func (m *Metrics) IncDropped() {
	m.eventsDropped.Inc()
}

// IncHandlerErrors records a handler failure.
func (m *Metrics) IncHandlerErrors() {
	m.handlerErrors.Inc()
}
