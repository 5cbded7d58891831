package feed

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrSourceUnavailable is returned when the candidate backend cannot be
// reached.
var ErrSourceUnavailable = errors.New("candidate source unavailable")

// CandidateQuery narrows a candidate fetch to one feed category.
type CandidateQuery struct {
	// CreatorIDs restricts candidates to content from these creators.
	// Empty means no creator restriction.
	CreatorIDs []string

	// GroupIDs restricts candidates to content posted in these groups.
	GroupIDs []string

	// MaxAgeHours drops content older than this. Zero means no limit.
	MaxAgeHours float64

	// MinEngagementRate drops content below this engagement rate.
	MinEngagementRate float64

	// Limit caps the number of candidates returned. Zero means the
	// source's own default.
	Limit int
}

// CandidateSource supplies content candidates for feed assembly. The
// service issues one fetch per category; implementations may over-fetch
// since the mixer re-ranks and truncates.
type CandidateSource interface {
	// Candidates returns content matching the query, newest first.
	Candidates(ctx context.Context, q CandidateQuery) ([]*ContentFeatures, error)
}

// defaultCandidateLimit bounds an unlimited query so a hot creator cannot
// flood a single fetch.
const defaultCandidateLimit = 500

// MemorySource is an in-memory CandidateSource for tests and local
// development. Safe for concurrent use.
type MemorySource struct {
	mu      sync.RWMutex
	content map[string]*ContentFeatures
}

// NewMemorySource creates an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{content: make(map[string]*ContentFeatures)}
}

// Put adds or replaces a content item.
func (s *MemorySource) Put(c *ContentFeatures) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[c.ContentID] = c
}

// Candidates returns content matching the query, newest first with content
// id as tie-break.
func (s *MemorySource) Candidates(_ context.Context, q CandidateQuery) ([]*ContentFeatures, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creators := toSet(q.CreatorIDs)
	groups := toSet(q.GroupIDs)

	var out []*ContentFeatures
	for _, c := range s.content {
		if len(creators) > 0 {
			if _, ok := creators[c.CreatorID]; !ok {
				continue
			}
		}
		if len(groups) > 0 {
			if c.GroupID == "" {
				continue
			}
			if _, ok := groups[c.GroupID]; !ok {
				continue
			}
		}
		if q.MaxAgeHours > 0 && c.AgeHours > q.MaxAgeHours {
			continue
		}
		if q.MinEngagementRate > 0 && c.EngagementRate < q.MinEngagementRate {
			continue
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ContentID < out[j].ContentID
	})

	limit := q.Limit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
