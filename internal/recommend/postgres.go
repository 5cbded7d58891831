package recommend

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
)

// PostgresDirectory implements UserDirectory and CommunityDirectory
// against the users, communities, and community_members tables.
type PostgresDirectory struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresDirectory creates a PostgresDirectory.
func NewPostgresDirectory(db *sql.DB, logger *slog.Logger) *PostgresDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDirectory{db: db, logger: logger}
}

// UserInfo returns account metadata, nil when the user does not exist.
func (d *PostgresDirectory) UserInfo(ctx context.Context, userID string) (*UserInfo, error) {
	var info UserInfo
	err := d.db.QueryRowContext(ctx, `
		SELECT user_id, username, follower_count, post_count, is_verified
		FROM users
		WHERE user_id = $1 AND deleted_at IS NULL
	`, userID).Scan(&info.UserID, &info.Username, &info.FollowerCount, &info.PostCount, &info.Verified)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user info: %w", err)
	}
	return &info, nil
}

// CommunityInfo returns community metadata, nil when the community does
// not exist.
func (d *PostgresDirectory) CommunityInfo(ctx context.Context, communityID string) (*CommunityInfo, error) {
	var info CommunityInfo
	err := d.db.QueryRowContext(ctx, `
		SELECT community_id, name, category, member_count
		FROM communities
		WHERE community_id = $1 AND deleted_at IS NULL
	`, communityID).Scan(&info.CommunityID, &info.Name, &info.Category, &info.MemberCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query community info: %w", err)
	}
	return &info, nil
}

// FriendCommunities counts community memberships among the given friends
// in one array-parameter query.
func (d *PostgresDirectory) FriendCommunities(ctx context.Context, friendIDs []string) (map[string]int, error) {
	if len(friendIDs) == 0 {
		return map[string]int{}, nil
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT community_id, COUNT(*)
		FROM community_members
		WHERE user_id = ANY($1)
		GROUP BY community_id
	`, pq.Array(friendIDs))
	if err != nil {
		return nil, fmt.Errorf("query friend communities: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("scan friend community: %w", err)
		}
		out[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend communities: %w", err)
	}
	return out, nil
}

// InterestCommunities scores communities by topic-tag overlap with the
// given topics.
func (d *PostgresDirectory) InterestCommunities(ctx context.Context, topics []string) (map[string]float64, error) {
	if len(topics) == 0 {
		return map[string]float64{}, nil
	}

	// Overlap fraction relative to the community's own tag count keeps
	// broad communities from matching everything.
	rows, err := d.db.QueryContext(ctx, `
		SELECT community_id,
		       cardinality(ARRAY(SELECT unnest(topics) INTERSECT SELECT unnest($1::text[])))::float8
		           / GREATEST(cardinality(topics), 1)
		FROM communities
		WHERE topics && $1::text[] AND deleted_at IS NULL
	`, pq.Array(topics))
	if err != nil {
		return nil, fmt.Errorf("query interest communities: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var id string
		var match float64
		if err := rows.Scan(&id, &match); err != nil {
			return nil, fmt.Errorf("scan interest community: %w", err)
		}
		out[id] = match
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interest communities: %w", err)
	}
	return out, nil
}

// PopularCommunities returns the largest communities scored by member
// count relative to the largest.
func (d *PostgresDirectory) PopularCommunities(ctx context.Context, limit int) (map[string]float64, error) {
	if limit <= 0 {
		limit = popularCommunityN
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT community_id, member_count
		FROM communities
		WHERE deleted_at IS NULL
		ORDER BY member_count DESC, community_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query popular communities: %w", err)
	}
	defer rows.Close()

	type sized struct {
		id      string
		members int
	}
	var all []sized
	largest := 0
	for rows.Next() {
		var c sized
		if err := rows.Scan(&c.id, &c.members); err != nil {
			return nil, fmt.Errorf("scan popular community: %w", err)
		}
		if c.members > largest {
			largest = c.members
		}
		all = append(all, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate popular communities: %w", err)
	}

	out := make(map[string]float64, len(all))
	if largest == 0 {
		return out, nil
	}
	for _, c := range all {
		out[c.id] = float64(c.members) / float64(largest)
	}
	return out, nil
}
