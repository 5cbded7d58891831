package feedback

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Stats tracks cumulative sink counters.
// All operations are thread-safe using atomic counters.
type Stats struct {
	accepted int64 // Events accepted onto the queue
	dropped  int64 // Events dropped by a full or stopped queue
}

// NewStats creates a new Stats instance.
func NewStats() *Stats {
	return &Stats{}
}

// RecordAccept increments the accepted counter.
func (s *Stats) RecordAccept() {
	atomic.AddInt64(&s.accepted, 1)
}

// RecordDrop increments the dropped counter.
func (s *Stats) RecordDrop() {
	atomic.AddInt64(&s.dropped, 1)
}

// Accepted returns the total number of accepted events.
func (s *Stats) Accepted() int64 {
	return atomic.LoadInt64(&s.accepted)
}

// Dropped returns the total number of dropped events.
func (s *Stats) Dropped() int64 {
	return atomic.LoadInt64(&s.dropped)
}

// Total returns accepted + dropped.
func (s *Stats) Total() int64 {
	return s.Accepted() + s.Dropped()
}

// Reset resets all counters to zero.
func (s *Stats) Reset() {
	atomic.StoreInt64(&s.accepted, 0)
	atomic.StoreInt64(&s.dropped, 0)
}

// String returns a human-readable summary of the statistics.
func (s *Stats) String() string {
	return fmt.Sprintf("accepted=%d dropped=%d total=%d", s.Accepted(), s.Dropped(), s.Total())
}

// LogSummary logs a summary of sink statistics at INFO level.
func (s *Stats) LogSummary(logger *slog.Logger) {
	logger.Info("feedback sink statistics",
		"accepted", s.Accepted(),
		"dropped", s.Dropped(),
		"total", s.Total(),
	)
}
