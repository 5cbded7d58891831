package feedback

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultQueueSize bounds the in-flight event queue. A full queue drops
// new events rather than blocking the request path.
const DefaultQueueSize = 1024

// defaultHandleTimeout bounds one handler invocation.
const defaultHandleTimeout = 5 * time.Second

// Handler consumes events off the sink's worker. Handlers are invoked
// from a single goroutine, in arrival order.
type Handler interface {
	Handle(ctx context.Context, e *Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, e *Event) error

// Handle calls the function.
func (f HandlerFunc) Handle(ctx context.Context, e *Event) error {
	return f(ctx, e)
}

// Sink accepts engagement events.
type Sink interface {
	// Record enqueues the event. It never blocks; the return reports
	// whether the event was accepted.
	Record(e *Event) bool
}

// AsyncSinkConfig configures an AsyncSink.
type AsyncSinkConfig struct {
	// QueueSize bounds the event queue. Zero uses DefaultQueueSize.
	QueueSize int

	// HandleTimeout bounds one handler call. Zero uses a 5s default.
	HandleTimeout time.Duration

	// Logger for sink events. Defaults to slog.Default() if nil.
	Logger *slog.Logger

	// Metrics for instrumentation. Optional.
	Metrics *Metrics
}

// AsyncSink queues events onto a single worker that fans them out to its
// handlers. Invalid events are rejected at Record time; handler failures
// are logged and counted, never propagated.
type AsyncSink struct {
	handlers []Handler
	queue    chan *Event
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *Metrics
	stats    *Stats

	mu      sync.Mutex
	running bool
	doneCh  chan struct{}
}

// NewAsyncSink creates an AsyncSink delivering to the given handlers.
func NewAsyncSink(config AsyncSinkConfig, handlers ...Handler) *AsyncSink {
	size := config.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	timeout := config.HandleTimeout
	if timeout <= 0 {
		timeout = defaultHandleTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AsyncSink{
		handlers: handlers,
		queue:    make(chan *Event, size),
		timeout:  timeout,
		logger:   logger,
		metrics:  config.Metrics,
		stats:    NewStats(),
	}
}

// Start launches the worker. Returns false if already running.
func (s *AsyncSink) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.doneCh = make(chan struct{})
	go s.run(ctx)
	return true
}

// Stop drains the queue and waits for the worker to exit. Events
// recorded after Stop are dropped.
func (s *AsyncSink) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.queue)
	done := s.doneCh
	s.mu.Unlock()

	<-done
	s.stats.LogSummary(s.logger)
}

// Record enqueues the event without blocking. Invalid events and events
// arriving on a full or stopped queue are dropped.
func (s *AsyncSink) Record(e *Event) bool {
	if err := e.Validate(); err != nil {
		s.logger.Debug("rejecting invalid event", slog.String("error", err.Error()))
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	select {
	case s.queue <- e:
		s.stats.RecordAccept()
		if s.metrics != nil {
			s.metrics.IncAccepted(e.Kind)
		}
		return true
	default:
		s.stats.RecordDrop()
		if s.metrics != nil {
			s.metrics.IncDropped()
		}
		return false
	}
}

// Stats returns the sink's cumulative counters.
func (s *AsyncSink) Stats() *Stats {
	return s.stats
}

func (s *AsyncSink) run(ctx context.Context) {
	defer close(s.doneCh)

	for e := range s.queue {
		s.dispatch(ctx, e)
	}
}

func (s *AsyncSink) dispatch(parentCtx context.Context, e *Event) {
	ctx, cancel := context.WithTimeout(parentCtx, s.timeout)
	defer cancel()

	for _, h := range s.handlers {
		if err := h.Handle(ctx, e); err != nil {
			if s.metrics != nil {
				s.metrics.IncHandlerErrors()
			}
			s.logger.Error("event handler failed",
				slog.String("content", e.ContentID),
				slog.String("kind", string(e.Kind)),
				slog.String("error", err.Error()))
		}
	}
}
