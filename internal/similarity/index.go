// Package similarity implements user-user collaborative filtering over the
// follow graph: cosine neighbor search, follow-based user recommendations,
// and affinity prediction.
package similarity

import (
	"errors"
	"math"
	"sort"
	"sync"
)

// Common errors for similarity operations.
var (
	ErrUnknownUser = errors.New("user not in similarity index")
)

// Default neighborhood sizes. Larger values trade latency for recall.
const (
	DefaultTopNeighbors = 100
	affinityNeighbors   = 50
)

// Neighbor is a similar user with its cosine similarity score.
type Neighbor struct {
	UserID     string  `json:"user_id"`
	Similarity float64 `json:"similarity"`
}

// Candidate is a recommended user with its aggregated score and the number
// of neighbors supporting it.
type Candidate struct {
	UserID     string  `json:"user_id"`
	Score      float64 `json:"score"`
	Supporters int     `json:"supporters"`
}

// Index is an immutable user-user interaction index built from follow
// edges. Build once, then share freely: all query methods are read-only
// apart from an internal neighbor cache, which is lock-protected.
type Index struct {
	// follows[u] is the set of users u follows.
	follows map[string]map[string]struct{}

	// followers[v] is the set of users following v.
	followers map[string]map[string]struct{}

	// users is every user id seen on either side of an edge, sorted.
	users []string

	mu            sync.RWMutex
	neighborCache map[string][]Neighbor
}

// NewIndex builds an Index from follow adjacency. Users that appear only
// as follow targets are indexed too, so they can be recommended.
func NewIndex(follows map[string][]string) *Index {
	idx := &Index{
		follows:       make(map[string]map[string]struct{}, len(follows)),
		followers:     make(map[string]map[string]struct{}),
		neighborCache: make(map[string][]Neighbor),
	}

	seen := make(map[string]struct{})
	for user, targets := range follows {
		seen[user] = struct{}{}
		set := make(map[string]struct{}, len(targets))
		for _, target := range targets {
			if target == user {
				continue
			}
			set[target] = struct{}{}
			seen[target] = struct{}{}
			if idx.followers[target] == nil {
				idx.followers[target] = make(map[string]struct{})
			}
			idx.followers[target][user] = struct{}{}
		}
		idx.follows[user] = set
	}

	idx.users = make([]string, 0, len(seen))
	for user := range seen {
		idx.users = append(idx.users, user)
	}
	sort.Strings(idx.users)

	return idx
}

// Size returns the number of indexed users.
func (idx *Index) Size() int { return len(idx.users) }

// Contains reports whether the user appears in the index on either side of
// a follow edge.
func (idx *Index) Contains(userID string) bool {
	if _, ok := idx.follows[userID]; ok {
		return true
	}
	_, ok := idx.followers[userID]
	return ok
}

// Follows reports whether user follows target.
func (idx *Index) Follows(userID, targetID string) bool {
	_, ok := idx.follows[userID][targetID]
	return ok
}

// FollowSet returns the set of users the given user follows. The returned
// map is the index's own; callers must not modify it.
func (idx *Index) FollowSet(userID string) map[string]struct{} {
	return idx.follows[userID]
}

// cosine computes the cosine similarity of two users' binary follow
// vectors: |A ∩ B| / (√|A| · √|B|).
func cosine(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// Iterate the smaller set.
	if len(b) < len(a) {
		a, b = b, a
	}
	overlap := 0
	for v := range a {
		if _, ok := b[v]; ok {
			overlap++
		}
	}
	if overlap == 0 {
		return 0
	}
	return float64(overlap) / (math.Sqrt(float64(len(a))) * math.Sqrt(float64(len(b))))
}

// Jaccard computes |A ∩ B| / |A ∪ B| over two users' follow sets. Either
// user having no follows yields 0.
func (idx *Index) Jaccard(userID, targetID string) float64 {
	a := idx.follows[userID]
	b := idx.follows[targetID]
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	overlap := 0
	for v := range a {
		if _, ok := b[v]; ok {
			overlap++
		}
	}
	union := len(a) + len(b) - overlap
	if union == 0 {
		return 0
	}
	return float64(overlap) / float64(union)
}
