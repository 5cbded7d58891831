package profile

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/onnwee/pulse/internal/feed"
)

// PostgresSource loads profiles from the user_profiles table.
type PostgresSource struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSource creates a PostgresSource.
func NewPostgresSource(db *sql.DB, logger *slog.Logger) *PostgresSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSource{db: db, logger: logger}
}

// Profile loads one user's profile. Returns ErrProfileNotFound when the
// user has no profile row.
func (s *PostgresSource) Profile(ctx context.Context, userID string) (*feed.UserProfile, error) {
	p := &feed.UserProfile{}
	var (
		lat, lon    sql.NullFloat64
		activeHours pq.Int64Array
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT user_id,
		       interest_topics, interest_hashtags, interest_creators, interest_sounds,
		       following_ids, follower_ids, friend_ids, group_ids,
		       last_latitude, last_longitude,
		       avg_session_minutes, active_hours, total_watch_time_hours,
		       updated_at
		FROM user_profiles
		WHERE user_id = $1
	`, userID).Scan(
		&p.UserID,
		pq.Array(&p.InterestTopics), pq.Array(&p.InterestHashtags),
		pq.Array(&p.InterestCreators), pq.Array(&p.InterestSounds),
		pq.Array(&p.FollowingIDs), pq.Array(&p.FollowerIDs),
		pq.Array(&p.FriendIDs), pq.Array(&p.GroupIDs),
		&lat, &lon,
		&p.AvgSessionMinutes, &activeHours, &p.TotalWatchTimeHours,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	if err != nil {
		s.logger.Error("failed to load profile",
			slog.String("user", userID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("query profile: %w", err)
	}

	if lat.Valid {
		p.LastLatitude = &lat.Float64
	}
	if lon.Valid {
		p.LastLongitude = &lon.Float64
	}
	if len(activeHours) > 0 {
		p.ActiveHours = make([]int, len(activeHours))
		for i, h := range activeHours {
			p.ActiveHours[i] = int(h)
		}
	}
	return p, nil
}
