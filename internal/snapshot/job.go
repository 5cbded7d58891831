package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RefreshJobConfig configures the periodic snapshot refresh job.
type RefreshJobConfig struct {
	// Interval is the duration between refresh cycles.
	Interval time.Duration
	// Logger for job activity.
	Logger *slog.Logger
	// Metrics for performance tracking.
	Metrics *Metrics
	// Timeout for each refresh cycle.
	Timeout time.Duration
}

// DefaultRefreshInterval is the default interval between refresh cycles.
const DefaultRefreshInterval = 5 * time.Minute

// DefaultRefreshTimeout is the default timeout for a single refresh cycle.
const DefaultRefreshTimeout = 2 * time.Minute

// RefreshJob periodically rebuilds and publishes the graph snapshot.
type RefreshJob struct {
	config  RefreshJobConfig
	manager *Manager

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRefreshJob creates a new snapshot refresh job.
func NewRefreshJob(config RefreshJobConfig, manager *Manager) *RefreshJob {
	if config.Interval == 0 {
		config.Interval = DefaultRefreshInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultRefreshTimeout
	}

	return &RefreshJob{
		config:  config,
		manager: manager,
	}
}

// Start begins the periodic refresh job and performs one immediate refresh
// so the manager serves a snapshot as soon as possible.
// Returns immediately; the job runs in a background goroutine.
func (j *RefreshJob) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	go j.run(ctx)
	return nil
}

// Stop signals the refresh job to stop and waits for it to finish.
func (j *RefreshJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	stopCh := j.stopCh
	doneCh := j.doneCh
	j.mu.Unlock()

	close(stopCh)
	<-doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// IsRunning returns whether the job is currently running.
func (j *RefreshJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// run is the main loop for the refresh job.
func (j *RefreshJob) run(ctx context.Context) {
	defer close(j.doneCh)

	j.refresh(ctx)

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.config.Logger.Info("snapshot refresh job stopping due to context cancellation")
			return
		case <-j.stopCh:
			j.config.Logger.Info("snapshot refresh job stopping due to stop signal")
			return
		case <-ticker.C:
			j.refresh(ctx)
		}
	}
}

// refresh runs one refresh cycle under the configured timeout.
func (j *RefreshJob) refresh(parentCtx context.Context) {
	ctx, cancel := context.WithTimeout(parentCtx, j.config.Timeout)
	defer cancel()

	start := time.Now()
	if err := j.manager.Refresh(ctx); err != nil {
		j.config.Logger.Error("snapshot refresh failed",
			"error", err,
			"elapsed", time.Since(start))
		if j.config.Metrics != nil {
			j.config.Metrics.IncRefreshErrors()
		}
		return
	}

	snap, err := j.manager.Current()
	if err != nil {
		return
	}

	duration := time.Since(start).Seconds()
	if j.config.Metrics != nil {
		j.config.Metrics.ObserveRefresh(duration, snap)
	}
	j.config.Logger.Info("snapshot refreshed",
		"duration_seconds", duration,
		"nodes", snap.Graph.NodeCount(),
		"edges", snap.Graph.EdgeCount(),
		"communities", len(snap.Communities))
}

// RefreshNow immediately runs one refresh cycle without waiting for the
// ticker. Useful for testing or forcing an update.
func (j *RefreshJob) RefreshNow() {
	j.refresh(context.Background())
}
