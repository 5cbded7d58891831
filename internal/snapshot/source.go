package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
)

// MemoryFollowSource is an in-memory FollowSource for tests and local
// development. Safe for concurrent use.
type MemoryFollowSource struct {
	mu    sync.RWMutex
	edges map[string]map[string]struct{}
}

// NewMemoryFollowSource creates an empty MemoryFollowSource.
func NewMemoryFollowSource() *MemoryFollowSource {
	return &MemoryFollowSource{edges: make(map[string]map[string]struct{})}
}

// Follow records a follow edge.
func (s *MemoryFollowSource) Follow(userID, targetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edges[userID] == nil {
		s.edges[userID] = make(map[string]struct{})
	}
	s.edges[userID][targetID] = struct{}{}
}

// Unfollow removes a follow edge.
func (s *MemoryFollowSource) Unfollow(userID, targetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.edges[userID], targetID)
}

// FollowEdges returns a copy of the current adjacency.
func (s *MemoryFollowSource) FollowEdges(_ context.Context) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.edges))
	for user, targets := range s.edges {
		ids := make([]string, 0, len(targets))
		for target := range targets {
			ids = append(ids, target)
		}
		out[user] = ids
	}
	return out, nil
}

// PostgresFollowSource reads follow edges from the follows table.
type PostgresFollowSource struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresFollowSource creates a PostgresFollowSource.
func NewPostgresFollowSource(db *sql.DB, logger *slog.Logger) *PostgresFollowSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFollowSource{db: db, logger: logger}
}

// FollowEdges loads the full follow adjacency in one query. Snapshot
// builds are infrequent, so a full scan is acceptable.
func (s *PostgresFollowSource) FollowEdges(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT follower_id, followed_id
		FROM follows
		WHERE deleted_at IS NULL
	`)
	if err != nil {
		s.logger.Error("follow edge query failed",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("query follow edges: %w", err)
	}
	defer rows.Close()

	edges := make(map[string][]string)
	for rows.Next() {
		var follower, followed string
		if err := rows.Scan(&follower, &followed); err != nil {
			return nil, fmt.Errorf("scan follow edge: %w", err)
		}
		edges[follower] = append(edges[follower], followed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate follow edges: %w", err)
	}
	return edges, nil
}
