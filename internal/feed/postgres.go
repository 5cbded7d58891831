package feed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// PostgresSource implements CandidateSource against the content_features
// table, which is maintained by the offline indexer.
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

// Candidates fetches content matching the query, newest first. Creator and
// group restrictions use array parameters so one round trip covers a whole
// category fetch.
func (s *PostgresSource) Candidates(ctx context.Context, q CandidateQuery) ([]*ContentFeatures, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}

	query := `
		SELECT content_id, kind, creator_id,
		       like_count, comment_count, share_count, save_count, view_count,
		       engagement_rate, viral_score, quality_score,
		       hashtags, topics, sound_id, group_id,
		       creator_follower_count, created_at,
		       latitude, longitude
		FROM content_features
		WHERE ($1::text[] IS NULL OR creator_id = ANY($1))
		  AND ($2::text[] IS NULL OR group_id = ANY($2))
		  AND ($3::float8 <= 0 OR created_at >= now() - ($3 * interval '1 hour'))
		  AND engagement_rate >= $4
		ORDER BY created_at DESC, content_id ASC
		LIMIT $5
	`

	var creators, groups interface{}
	if len(q.CreatorIDs) > 0 {
		creators = pq.Array(q.CreatorIDs)
	}
	if len(q.GroupIDs) > 0 {
		groups = pq.Array(q.GroupIDs)
	}

	rows, err := s.db.QueryContext(ctx, query,
		creators, groups, q.MaxAgeHours, q.MinEngagementRate, limit)
	if err != nil {
		s.logger.Error("candidate query failed",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	var out []*ContentFeatures
	for rows.Next() {
		var c ContentFeatures
		var soundID, groupID sql.NullString
		var lat, lon sql.NullFloat64
		err := rows.Scan(
			&c.ContentID, &c.Kind, &c.CreatorID,
			&c.Likes, &c.Comments, &c.Shares, &c.Saves, &c.Views,
			&c.EngagementRate, &c.ViralScore, &c.QualityScore,
			pq.Array(&c.Hashtags), pq.Array(&c.Topics), &soundID, &groupID,
			&c.CreatorFollowerCount, &c.CreatedAt,
			&lat, &lon,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if soundID.Valid {
			c.SoundID = soundID.String
		}
		if groupID.Valid {
			c.GroupID = groupID.String
		}
		if lat.Valid {
			c.Latitude = &lat.Float64
		}
		if lon.Valid {
			c.Longitude = &lon.Float64
		}
		c.AgeHours = now.Sub(c.CreatedAt).Hours()
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}
