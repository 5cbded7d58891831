package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
)

// counterColumn maps event kinds to content_features counter columns.
// Skip and watch events carry no counter; watch time rolls up separately.
func counterColumn(kind Kind) string {
	switch kind {
	case KindView:
		return "view_count"
	case KindLike:
		return "like_count"
	case KindComment:
		return "comment_count"
	case KindShare:
		return "share_count"
	case KindSave:
		return "save_count"
	default:
		return ""
	}
}

// PostgresRollup increments content engagement counters in place, so the
// next ranking pass sees the updated features.
type PostgresRollup struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRollup creates a PostgresRollup.
func NewPostgresRollup(db *sql.DB, logger *slog.Logger) *PostgresRollup {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRollup{db: db, logger: logger}
}

// Handle applies one event to the content's counters. Events for unknown
// content are ignored.
func (r *PostgresRollup) Handle(ctx context.Context, e *Event) error {
	if e.Kind == KindWatch {
		_, err := r.db.ExecContext(ctx, `
			UPDATE content_features
			SET watch_seconds = watch_seconds + $2
			WHERE content_id = $1
		`, e.ContentID, e.WatchSeconds)
		if err != nil {
			return fmt.Errorf("roll up watch time: %w", err)
		}
		return nil
	}

	column := counterColumn(e.Kind)
	if column == "" {
		return nil
	}

	// The column name comes from the fixed kind table above, never from
	// input.
	query := fmt.Sprintf(`
		UPDATE content_features
		SET %s = %s + 1
		WHERE content_id = $1
	`, column, column)
	if _, err := r.db.ExecContext(ctx, query, e.ContentID); err != nil {
		return fmt.Errorf("roll up %s: %w", column, err)
	}
	return nil
}

// MemoryRollup aggregates engagement counts in memory for tests and
// local development. Safe for concurrent use.
type MemoryRollup struct {
	mu sync.Mutex

	// counts[contentID][kind] is the event count.
	counts map[string]map[Kind]int

	// watch[contentID] is accumulated watch seconds.
	watch map[string]float64
}

// NewMemoryRollup creates an empty MemoryRollup.
func NewMemoryRollup() *MemoryRollup {
	return &MemoryRollup{
		counts: make(map[string]map[Kind]int),
		watch:  make(map[string]float64),
	}
}

// Handle accumulates one event.
func (r *MemoryRollup) Handle(_ context.Context, e *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.Kind == KindWatch {
		r.watch[e.ContentID] += e.WatchSeconds
		return nil
	}
	if r.counts[e.ContentID] == nil {
		r.counts[e.ContentID] = make(map[Kind]int)
	}
	r.counts[e.ContentID][e.Kind]++
	return nil
}

// Count returns how many events of the kind hit the content.
func (r *MemoryRollup) Count(contentID string, kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[contentID][kind]
}

// WatchSeconds returns accumulated watch time for the content.
func (r *MemoryRollup) WatchSeconds(contentID string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watch[contentID]
}
