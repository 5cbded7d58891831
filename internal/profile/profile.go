// Package profile loads and caches viewer profiles: the interest,
// social-graph, and behavior aggregates that feed ranking and
// recommendations. The durable copy lives in Postgres; a Redis cache in
// front keeps the feed hot path off the database.
package profile

import (
	"context"
	"errors"

	"github.com/onnwee/pulse/internal/feed"
)

// ErrProfileNotFound is returned when no profile exists for the user.
var ErrProfileNotFound = errors.New("profile not found")

// Source loads a user's profile. Both the feed and recommendation
// services consume this.
type Source interface {
	Profile(ctx context.Context, userID string) (*feed.UserProfile, error)
}
