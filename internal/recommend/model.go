// Package recommend assembles hybrid social recommendations: people to
// follow, creators to discover, and communities to join. Each request type
// blends graph, collaborative, and popularity signals with its own weight
// table.
package recommend

import (
	"errors"
)

// Common errors for recommendation operations.
var (
	ErrEmptyUserID  = errors.New("user id is required")
	ErrUnknownType  = errors.New("unknown recommendation type")
	ErrNotReady     = errors.New("recommendation indices not built yet")
	ErrBadMixWeight = errors.New("mix weights must sum to 1.0")
)

// Type selects the recommendation surface.
type Type string

const (
	// TypePeople is general "suggested for you" user recommendations.
	TypePeople Type = "people"
	// TypeCreators recommends accounts with an established audience.
	TypeCreators Type = "creators"
	// TypeCommunities recommends communities to join.
	TypeCommunities Type = "communities"
)

// Source labels which signal contributed most to a recommendation.
type Source string

const (
	SourceGraph         Source = "graph"
	SourceCollaborative Source = "collaborative"
	SourcePopularity    Source = "popularity"
	SourceInterest      Source = "interest"
	SourceHybrid        Source = "hybrid"
)

// MixWeights blends the three user-recommendation signals. Each request
// type carries its own table.
type MixWeights struct {
	Graph         float64 `json:"graph"`
	Collaborative float64 `json:"collaborative"`
	Popularity    float64 `json:"popularity"`
}

// CommunityMixWeights blends the community-recommendation signals.
type CommunityMixWeights struct {
	Friends    float64 `json:"friends"`
	Interest   float64 `json:"interest"`
	Popularity float64 `json:"popularity"`
}

// Tunables groups every per-type weight table plus the creator
// eligibility cut-offs.
type Tunables struct {
	People      MixWeights          `json:"people"`
	Creators    MixWeights          `json:"creators"`
	Communities CommunityMixWeights `json:"communities"`

	// CreatorMinFollowers is the audience floor for the creators surface.
	// Verified accounts pass regardless.
	CreatorMinFollowers int `json:"creator_min_followers"`
}

// DefaultTunables returns the default blend: people lean on the social
// graph, creators on collaborative filtering.
func DefaultTunables() Tunables {
	return Tunables{
		People:              MixWeights{Graph: 0.50, Collaborative: 0.30, Popularity: 0.20},
		Creators:            MixWeights{Collaborative: 0.60, Graph: 0.20, Popularity: 0.20},
		Communities:         CommunityMixWeights{Friends: 0.50, Interest: 0.30, Popularity: 0.20},
		CreatorMinFollowers: 1000,
	}
}

const mixSumTolerance = 1e-6

// Validate checks every weight table sums to 1.0.
func (t Tunables) Validate() error {
	sums := []float64{
		t.People.Graph + t.People.Collaborative + t.People.Popularity,
		t.Creators.Graph + t.Creators.Collaborative + t.Creators.Popularity,
		t.Communities.Friends + t.Communities.Interest + t.Communities.Popularity,
	}
	for _, sum := range sums {
		if diff := sum - 1.0; diff > mixSumTolerance || diff < -mixSumTolerance {
			return ErrBadMixWeight
		}
	}
	return nil
}

// Request asks for one page of recommendations.
type Request struct {
	UserID     string
	Type       Type
	ExcludeIDs []string
	Limit      int
	Offset     int
}

// UserRecommendation is one recommended account.
type UserRecommendation struct {
	UserID        string   `json:"user_id"`
	Username      string   `json:"username,omitempty"`
	FollowerCount int      `json:"follower_count"`
	Verified      bool     `json:"is_verified"`
	Score         float64  `json:"score"`
	Source        Source   `json:"source"`
	Reason        string   `json:"reason"`
	MutualCount   int      `json:"mutual_friends_count"`
	MutualFriends []string `json:"mutual_friends,omitempty"`
}

// CommunityRecommendation is one recommended community.
type CommunityRecommendation struct {
	CommunityID   string  `json:"community_id"`
	Name          string  `json:"name,omitempty"`
	Category      string  `json:"category,omitempty"`
	MemberCount   int     `json:"member_count"`
	Score         float64 `json:"score"`
	Source        Source  `json:"source"`
	Reason        string  `json:"reason"`
	MutualMembers int     `json:"mutual_members_count"`
}

// Response is one ranked, paginated page of recommendations. Users is set
// for people and creators, Communities for communities.
type Response struct {
	Type        Type                      `json:"type"`
	Users       []UserRecommendation      `json:"users,omitempty"`
	Communities []CommunityRecommendation `json:"communities,omitempty"`
	NextOffset  int                       `json:"next_offset"`
	HasMore     bool                      `json:"has_more"`
}

// UserInfo is directory metadata about an account.
type UserInfo struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	FollowerCount int    `json:"follower_count"`
	PostCount     int    `json:"post_count"`
	Verified      bool   `json:"is_verified"`
}

// CommunityInfo is directory metadata about a community.
type CommunityInfo struct {
	CommunityID string `json:"community_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	MemberCount int    `json:"member_count"`
}
