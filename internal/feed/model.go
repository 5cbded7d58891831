// Package feed provides the personalized feed ranking engine: candidate
// categorization, multi-signal content scoring, and category-ratio mixing
// with diversity constraints.
package feed

import (
	"errors"
	"time"
)

// Common errors for feed operations.
var (
	ErrEmptyViewerID  = errors.New("viewer id is required")
	ErrUnknownVariant = errors.New("unknown feed variant")
)

// Variant selects which feed algorithm ranks the candidate pool.
type Variant string

const (
	// VariantHome is the unified friends-first feed.
	VariantHome Variant = "home"
	// VariantCircle is the social-graph plus location feed.
	VariantCircle Variant = "circle"
	// VariantDiscover is the balanced-exploration feed.
	VariantDiscover Variant = "discover"
)

// Source labels the bucket a candidate was ranked from. The label is
// returned with each feed item for client display and debugging.
type Source string

const (
	SourceFriends   Source = "friends"
	SourceFollowing Source = "following"
	SourceGroups    Source = "groups"
	SourcePages     Source = "pages"
	SourceInterest  Source = "interest"
	SourceSuggested Source = "suggested"

	// Circle feed sources.
	SourceNearby Source = "nearby"
	SourceMutual Source = "mutual"

	// Discover feed sources.
	SourceKnownInterest Source = "known_interest"
	SourceExploration   Source = "exploration"
	SourceSurprise      Source = "surprise"
)

// ContentKind is the type of a content candidate.
type ContentKind string

const (
	KindPost  ContentKind = "post"
	KindClip  ContentKind = "clip"
	KindStory ContentKind = "story"
)

// UserProfile is an immutable per-request snapshot of the viewer used for
// personalization. It is rebuilt periodically by an external process from
// raw engagement events; the engine only reads it.
type UserProfile struct {
	UserID string `json:"user_id"`

	// Interests extracted from behavior.
	InterestTopics   []string `json:"interest_topics,omitempty"`
	InterestHashtags []string `json:"interest_hashtags,omitempty"`
	InterestCreators []string `json:"interest_creators,omitempty"`
	InterestSounds   []string `json:"interest_sounds,omitempty"`

	// Social graph.
	FollowingIDs []string `json:"following_ids,omitempty"`
	FollowerIDs  []string `json:"follower_ids,omitempty"`
	FriendIDs    []string `json:"friend_ids,omitempty"` // mutual follows
	GroupIDs     []string `json:"group_ids,omitempty"`

	// Last known location, nil when never reported.
	LastLatitude  *float64 `json:"last_latitude,omitempty"`
	LastLongitude *float64 `json:"last_longitude,omitempty"`

	// Behavioral aggregates.
	AvgSessionMinutes   float64 `json:"avg_session_minutes"`
	ActiveHours         []int   `json:"active_hours,omitempty"` // 0-23
	TotalWatchTimeHours float64 `json:"total_watch_time_hours"`

	UpdatedAt time.Time `json:"updated_at"`
}

// FriendSet returns the close-friend ids as a set for O(1) membership checks.
func (p *UserProfile) FriendSet() map[string]struct{} { return toSet(p.FriendIDs) }

// FollowingSet returns the following ids as a set.
func (p *UserProfile) FollowingSet() map[string]struct{} { return toSet(p.FollowingIDs) }

// GroupSet returns the group ids as a set.
func (p *UserProfile) GroupSet() map[string]struct{} { return toSet(p.GroupIDs) }

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// ContentFeatures holds the ranking features of a single candidate.
// Produced by an external content/feature store; read-only to the engine.
type ContentFeatures struct {
	ContentID string      `json:"content_id"`
	Kind      ContentKind `json:"kind"`
	CreatorID string      `json:"creator_id"`

	// Raw engagement counters.
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Shares   int `json:"shares"`
	Saves    int `json:"saves"`
	Views    int `json:"views"`

	// Derived metrics.
	EngagementRate float64 `json:"engagement_rate"`
	ViralScore     float64 `json:"viral_score"`
	QualityScore   float64 `json:"quality_score"`

	// Descriptive tags.
	Hashtags []string `json:"hashtags,omitempty"`
	Topics   []string `json:"topics,omitempty"`
	SoundID  string   `json:"sound_id,omitempty"`
	GroupID  string   `json:"group_id,omitempty"` // set when posted into a group

	// Creator features.
	CreatorFollowerCount int `json:"creator_follower_count"`

	// Temporal.
	CreatedAt time.Time `json:"created_at"`
	AgeHours  float64   `json:"age_hours"`

	// Location, nil when content carries no geo tag.
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// ScoredItem pairs a candidate with its ranking score and source bucket.
// Never mutated after creation; a new scoring run produces new items.
type ScoredItem struct {
	Content    *ContentFeatures `json:"content"`
	Score      float64          `json:"score"`
	Source     Source           `json:"source"`
	DistanceKm *float64         `json:"distance_km,omitempty"`
}

// Request is a single feed ranking request.
type Request struct {
	Variant Variant
	Viewer  *UserProfile

	// SeenIDs are content ids already shown to the viewer; they are
	// excluded before any scoring work.
	SeenIDs map[string]struct{}

	// BlockedCreators are creator ids that must never appear.
	BlockedCreators map[string]struct{}

	// Viewer location override for the circle feed. Falls back to the
	// profile's last known location when nil.
	Latitude  *float64
	Longitude *float64

	Limit  int
	Offset int
}

// Item is a single entry of the ranked output.
type Item struct {
	ContentID  string   `json:"content_id"`
	CreatorID  string   `json:"creator_id"`
	Score      float64  `json:"score"`
	Source     Source   `json:"source"`
	Rank       int      `json:"rank"`
	DistanceKm *float64 `json:"distance_km,omitempty"`

	// Geohash is the content location rounded to a coarse cell. Exact
	// coordinates stay server-side; clients only see the cell.
	Geohash string `json:"geohash,omitempty"`
}

// Response is the ranked, paginated feed output.
type Response struct {
	Variant    Variant `json:"variant"`
	Items      []Item  `json:"items"`
	NextOffset int     `json:"next_offset"`
	HasMore    bool    `json:"has_more"`
}
