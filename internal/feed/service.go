package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onnwee/pulse/internal/geo"
)

// Feed page defaults. Requests outside these bounds are clamped rather
// than rejected.
const (
	DefaultLimit = 20
	MaxLimit     = 100

	// defaultAssemblySize is the minimum ranked-list size the mixer aims
	// for. Category budgets derive from the assembly size, so assembling
	// less than a few pages would starve small-ratio categories.
	defaultAssemblySize = 50

	// homeCandidateAgeHours bounds the general candidate fetch for the
	// home and discover feeds.
	homeCandidateAgeHours = 72.0
)

// Service assembles ranked feeds from a candidate source. Safe for
// concurrent use; all mutable ranking state lives per request.
type Service struct {
	source     CandidateSource
	scorer     *Scorer
	classifier *Classifier
	mixer      *Mixer
	metrics    *Metrics
	logger     *slog.Logger
}

// NewService creates a feed Service. A nil metrics disables instrumentation.
func NewService(source CandidateSource, weights *Weights, metrics *Metrics, logger *slog.Logger) *Service {
	if weights == nil {
		weights = DefaultWeights()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source:     source,
		scorer:     NewScorer(weights),
		classifier: NewClassifier(weights.Thresholds),
		mixer:      NewMixer(weights),
		metrics:    metrics,
		logger:     logger,
	}
}

// Build assembles the requested feed variant. Under-filled pages are
// returned as-is; the service never pads with unranked filler.
func (s *Service) Build(ctx context.Context, req *Request) (*Response, error) {
	if req.Viewer == nil || req.Viewer.UserID == "" {
		return nil, ErrEmptyViewerID
	}
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	start := time.Now()

	var ranked []ScoredItem
	var err error
	switch req.Variant {
	case VariantHome, "":
		req.Variant = VariantHome
		ranked, err = s.buildHome(ctx, req)
	case VariantCircle:
		ranked, err = s.buildCircle(ctx, req)
	case VariantDiscover:
		ranked, err = s.buildDiscover(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, req.Variant)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncError(req.Variant)
		}
		return nil, err
	}

	resp := paginate(req, ranked)

	if s.metrics != nil {
		s.metrics.ObserveRequest(req.Variant, time.Since(start).Seconds(), len(resp.Items))
	}
	s.logger.Debug("feed assembled",
		slog.String("viewer", req.Viewer.UserID),
		slog.String("variant", string(req.Variant)),
		slog.Int("ranked", len(ranked)),
		slog.Int("returned", len(resp.Items)),
		slog.Duration("elapsed", time.Since(start)))

	return resp, nil
}

// assemblySize is how many ranked items a build aims to produce before
// pagination, never less than defaultAssemblySize.
func assemblySize(req *Request) int {
	n := req.Offset + req.Limit
	if n < defaultAssemblySize {
		return defaultAssemblySize
	}
	return n
}

// paginate slices the ranked list into the requested page. Rank numbers
// are absolute positions in the full ranked ordering, starting at 1.
func paginate(req *Request, ranked []ScoredItem) *Response {
	resp := &Response{Variant: req.Variant}

	if req.Offset >= len(ranked) {
		resp.NextOffset = req.Offset
		return resp
	}

	end := req.Offset + req.Limit
	if end > len(ranked) {
		end = len(ranked)
	}

	for i, item := range ranked[req.Offset:end] {
		out := Item{
			ContentID:  item.Content.ContentID,
			CreatorID:  item.Content.CreatorID,
			Score:      item.Score,
			Source:     item.Source,
			Rank:       req.Offset + i + 1,
			DistanceKm: item.DistanceKm,
		}
		if item.Content.Latitude != nil && item.Content.Longitude != nil {
			out.Geohash = geo.Encode(*item.Content.Latitude, *item.Content.Longitude, geo.DefaultPrecision)
		}
		resp.Items = append(resp.Items, out)
	}
	resp.NextOffset = end
	resp.HasMore = end < len(ranked)
	return resp
}

// admissible reports whether the candidate may enter any category:
// unseen, not blocked, and not the viewer's own content.
func admissible(req *Request, c *ContentFeatures) bool {
	if c.CreatorID == req.Viewer.UserID {
		return false
	}
	if _, seen := req.SeenIDs[c.ContentID]; seen {
		return false
	}
	if _, blocked := req.BlockedCreators[c.CreatorID]; blocked {
		return false
	}
	return true
}

func (s *Service) fetch(ctx context.Context, cat Source, q CandidateQuery) ([]*ContentFeatures, error) {
	candidates, err := s.source.Candidates(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch %s candidates: %w", cat, err)
	}
	if s.metrics != nil {
		s.metrics.AddCandidates(cat, len(candidates))
	}
	return candidates, nil
}

// buildHome assembles the ratio-mixed home feed. Friends, following, and
// group content comes from targeted fetches; pages, interest, and
// discovery categories are classified out of a general pool.
func (s *Service) buildHome(ctx context.Context, req *Request) ([]ScoredItem, error) {
	viewer := req.Viewer
	sets := newViewerSets(viewer)
	target := assemblySize(req)

	var cats HomeCategories
	added := make(map[string]struct{})

	if len(viewer.FriendIDs) > 0 {
		pool, err := s.fetch(ctx, SourceFriends, CandidateQuery{CreatorIDs: viewer.FriendIDs})
		if err != nil {
			return nil, err
		}
		for _, c := range pool {
			if !admissible(req, c) {
				continue
			}
			added[c.ContentID] = struct{}{}
			cats.Friends = append(cats.Friends, ScoredItem{
				Content: c,
				Score:   s.scorer.ScoreFriends(viewer, c),
				Source:  SourceFriends,
			})
		}
	}

	// Following-only creators: followed accounts that are not mutuals.
	var followingOnly []string
	for _, id := range viewer.FollowingIDs {
		if _, friend := sets.friends[id]; !friend {
			followingOnly = append(followingOnly, id)
		}
	}
	if len(followingOnly) > 0 {
		pool, err := s.fetch(ctx, SourceFollowing, CandidateQuery{CreatorIDs: followingOnly})
		if err != nil {
			return nil, err
		}
		for _, c := range pool {
			if !admissible(req, c) {
				continue
			}
			if _, dup := added[c.ContentID]; dup {
				continue
			}
			added[c.ContentID] = struct{}{}
			cats.Following = append(cats.Following, ScoredItem{
				Content: c,
				Score:   s.scorer.ScoreFollowing(viewer, c),
				Source:  SourceFollowing,
			})
		}
	}

	if len(viewer.GroupIDs) > 0 {
		pool, err := s.fetch(ctx, SourceGroups, CandidateQuery{GroupIDs: viewer.GroupIDs})
		if err != nil {
			return nil, err
		}
		for _, c := range pool {
			if !admissible(req, c) {
				continue
			}
			if _, dup := added[c.ContentID]; dup {
				continue
			}
			added[c.ContentID] = struct{}{}
			cats.Groups = append(cats.Groups, ScoredItem{
				Content: c,
				Score:   s.scorer.ScoreGroups(viewer, c),
				Source:  SourceGroups,
			})
		}
	}

	general, err := s.fetch(ctx, SourceSuggested, CandidateQuery{MaxAgeHours: homeCandidateAgeHours})
	if err != nil {
		return nil, err
	}
	for _, c := range general {
		if !admissible(req, c) {
			continue
		}
		if _, dup := added[c.ContentID]; dup {
			continue
		}
		interestMatch := InterestMatchScore(viewer, c)
		switch s.classifier.Classify(viewer, sets, c, interestMatch) {
		case SourcePages:
			cats.Pages = append(cats.Pages, ScoredItem{
				Content: c,
				Score:   s.scorer.ScorePages(viewer, c),
				Source:  SourcePages,
			})
		case SourceInterest:
			cats.Interest = append(cats.Interest, ScoredItem{
				Content: c,
				Score:   s.scorer.ScoreInterest(viewer, c),
				Source:  SourceInterest,
			})
		case SourceSuggested:
			cats.Discovery = append(cats.Discovery, ScoredItem{
				Content: c,
				Score:   s.scorer.ScoreDiscovery(viewer, c),
				Source:  SourceSuggested,
			})
		default:
			// Friends, following, and group content is served by the
			// targeted fetches above; classified duplicates are skipped.
		}
	}

	return s.mixer.MixHome(cats, target), nil
}

// buildCircle assembles the social-plus-location feed: friend content
// scored on closeness and, when the viewer has a location, nearby content
// scored on proximity.
func (s *Service) buildCircle(ctx context.Context, req *Request) ([]ScoredItem, error) {
	viewer := req.Viewer

	lat, lon := req.Latitude, req.Longitude
	if lat == nil || lon == nil {
		lat, lon = viewer.LastLatitude, viewer.LastLongitude
	}

	var items []ScoredItem
	added := make(map[string]struct{})

	if len(viewer.FriendIDs) > 0 {
		pool, err := s.fetch(ctx, SourceMutual, CandidateQuery{CreatorIDs: viewer.FriendIDs})
		if err != nil {
			return nil, err
		}
		for _, c := range pool {
			if !admissible(req, c) {
				continue
			}
			added[c.ContentID] = struct{}{}
			score, dist := s.scorer.ScoreCircle(viewer, c, lat, lon)
			items = append(items, ScoredItem{
				Content:    c,
				Score:      score,
				Source:     SourceMutual,
				DistanceKm: dist,
			})
		}
	}

	// Nearby content requires a viewer location; without one the circle
	// feed degrades to friends only.
	if lat != nil && lon != nil {
		pool, err := s.fetch(ctx, SourceNearby, CandidateQuery{MaxAgeHours: homeCandidateAgeHours})
		if err != nil {
			return nil, err
		}
		for _, c := range pool {
			if !admissible(req, c) {
				continue
			}
			if _, dup := added[c.ContentID]; dup {
				continue
			}
			score, dist := s.scorer.ScoreCircle(viewer, c, lat, lon)
			if dist == nil {
				continue
			}
			items = append(items, ScoredItem{
				Content:    c,
				Score:      score,
				Source:     SourceNearby,
				DistanceKm: dist,
			})
		}
	}

	return s.mixer.MixRanked(items), nil
}

// buildDiscover assembles the balanced-exploration feed by splitting the
// general pool on interest match: strong matches are known interest,
// adjacent matches are exploration, and the rest surface as surprise.
func (s *Service) buildDiscover(ctx context.Context, req *Request) ([]ScoredItem, error) {
	viewer := req.Viewer
	target := assemblySize(req)

	pool, err := s.fetch(ctx, SourceKnownInterest, CandidateQuery{MaxAgeHours: homeCandidateAgeHours})
	if err != nil {
		return nil, err
	}

	var cats DiscoverCategories
	for _, c := range pool {
		if !admissible(req, c) {
			continue
		}
		match := InterestMatchScore(viewer, c)
		switch {
		case match > s.scorer.Weights().Thresholds.InterestMatch:
			cats.Known = append(cats.Known, ScoredItem{
				Content: c,
				Score:   s.scorer.ScoreKnownInterest(viewer, c),
				Source:  SourceKnownInterest,
			})
		case AdjacencyScore(match) > 0:
			cats.Exploration = append(cats.Exploration, ScoredItem{
				Content: c,
				Score:   s.scorer.ScoreExploration(viewer, c),
				Source:  SourceExploration,
			})
		default:
			cats.Surprise = append(cats.Surprise, ScoredItem{
				Content: c,
				Score:   s.scorer.ScoreSurprise(c),
				Source:  SourceSurprise,
			})
		}
	}

	return s.mixer.MixDiscover(cats, target), nil
}
