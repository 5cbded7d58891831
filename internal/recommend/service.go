package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/onnwee/pulse/internal/feed"
	"github.com/onnwee/pulse/internal/snapshot"
)

// Request bounds, matching the feed service.
const (
	DefaultLimit = 20
	MaxLimit     = 100

	// Component fetch sizes. Over-fetching lets the blend re-rank before
	// pagination cuts the page.
	peopleFoFCap      = 50
	creatorsFoFCap    = 30
	peopleCollabN     = 30
	creatorsCollabN   = 40
	popularityTopK    = 20
	mutualFriendsCap  = 5
	popularCommunityN = 20
)

// SnapshotProvider supplies the current graph snapshot. *snapshot.Manager
// satisfies it.
type SnapshotProvider interface {
	Current() (*snapshot.Snapshot, error)
}

// ProfileSource supplies viewer profiles.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (*feed.UserProfile, error)
}

// UserDirectory supplies account metadata for recommendation hydration
// and creator eligibility.
type UserDirectory interface {
	// UserInfo returns metadata for the user, or nil when unknown.
	UserInfo(ctx context.Context, userID string) (*UserInfo, error)
}

// CommunityDirectory supplies community candidates and metadata.
type CommunityDirectory interface {
	// FriendCommunities returns community id to how many of the given
	// friends are members.
	FriendCommunities(ctx context.Context, friendIDs []string) (map[string]int, error)

	// InterestCommunities returns community id to interest match score in
	// [0, 1] for the given topics.
	InterestCommunities(ctx context.Context, topics []string) (map[string]float64, error)

	// PopularCommunities returns up to limit communities with a
	// popularity score.
	PopularCommunities(ctx context.Context, limit int) (map[string]float64, error)

	// CommunityInfo returns metadata for the community, or nil when
	// unknown.
	CommunityInfo(ctx context.Context, communityID string) (*CommunityInfo, error)
}

// Service generates hybrid recommendations. Safe for concurrent use.
type Service struct {
	snapshots   SnapshotProvider
	profiles    ProfileSource
	users       UserDirectory
	communities CommunityDirectory
	tunables    Tunables
	metrics     *Metrics
	logger      *slog.Logger
}

// NewService creates a recommendation Service. The tunables must already
// be validated; use Tunables.Validate at construction time. A nil metrics
// disables instrumentation.
func NewService(
	snapshots SnapshotProvider,
	profiles ProfileSource,
	users UserDirectory,
	communities CommunityDirectory,
	tunables Tunables,
	metrics *Metrics,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		snapshots:   snapshots,
		profiles:    profiles,
		users:       users,
		communities: communities,
		tunables:    tunables,
		metrics:     metrics,
		logger:      logger,
	}
}

// Recommend produces one page of recommendations for the request type.
func (s *Service) Recommend(ctx context.Context, req *Request) (*Response, error) {
	if req.UserID == "" {
		return nil, ErrEmptyUserID
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

	snap, err := s.snapshots.Current()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
	}

	profile, err := s.profiles.Profile(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	start := time.Now()

	var resp *Response
	switch req.Type {
	case TypePeople, "":
		req.Type = TypePeople
		resp, err = s.recommendUsers(ctx, req, profile, snap, false)
	case TypeCreators:
		resp, err = s.recommendUsers(ctx, req, profile, snap, true)
	case TypeCommunities:
		resp, err = s.recommendCommunities(ctx, req, profile)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncError(req.Type)
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveRequest(req.Type, time.Since(start).Seconds())
	}
	s.logger.Debug("recommendations generated",
		slog.String("user", req.UserID),
		slog.String("type", string(req.Type)),
		slog.Int("users", len(resp.Users)),
		slog.Int("communities", len(resp.Communities)),
		slog.Duration("elapsed", time.Since(start)))

	return resp, nil
}

// blended accumulates a candidate's weighted score across components. The
// first contributing source becomes the surfaced primary source.
type blended struct {
	id      string
	score   float64
	sources []Source
	mutuals int
}

func (b *blended) add(weighted float64, source Source) {
	b.score += weighted
	b.sources = append(b.sources, source)
}

func (b *blended) primary() Source {
	if len(b.sources) == 0 {
		return SourceHybrid
	}
	return b.sources[0]
}

// recommendUsers handles both the people and creators surfaces; they share
// machinery and differ in weights, component order, and the creator
// eligibility filter.
func (s *Service) recommendUsers(ctx context.Context, req *Request, profile *feed.UserProfile, snap *snapshot.Snapshot, creators bool) (*Response, error) {
	exclude := make(map[string]struct{}, len(req.ExcludeIDs)+len(profile.FollowingIDs)+1)
	exclude[req.UserID] = struct{}{}
	for _, id := range req.ExcludeIDs {
		exclude[id] = struct{}{}
	}
	for _, id := range profile.FollowingIDs {
		exclude[id] = struct{}{}
	}

	weights := s.tunables.People
	fofCap, collabN := peopleFoFCap, peopleCollabN
	if creators {
		weights = s.tunables.Creators
		fofCap, collabN = creatorsFoFCap, creatorsCollabN
	}

	fof := snap.Graph.FriendsOfFriends(req.UserID, 0, exclude)
	if len(fof) > fofCap {
		fof = fof[:fofCap]
	}
	collab := snap.Similarity.RecommendUsers(req.UserID, collabN, exclude)
	popular := snap.Graph.RecommendByPopularity(req.UserID, snap.Ranks, popularityTopK, exclude)

	candidates := make(map[string]*blended)
	get := func(id string) *blended {
		b, ok := candidates[id]
		if !ok {
			b = &blended{id: id}
			candidates[id] = b
		}
		return b
	}

	addGraph := func() {
		for _, c := range fof {
			b := get(c.UserID)
			b.add(weights.Graph/float64(c.Distance), SourceGraph)
			b.mutuals = c.Mutuals
		}
	}
	addCollab := func() {
		max := 0.0
		for _, c := range collab {
			if c.Score > max {
				max = c.Score
			}
		}
		if max == 0 {
			return
		}
		for _, c := range collab {
			get(c.UserID).add(weights.Collaborative*c.Score/max, SourceCollaborative)
		}
	}
	addPopular := func() {
		max := 0.0
		for _, c := range popular {
			if c.Score > max {
				max = c.Score
			}
		}
		if max == 0 {
			return
		}
		for _, c := range popular {
			get(c.UserID).add(weights.Popularity*c.Score/max, SourcePopularity)
		}
	}

	// Component order sets the primary source label: the creators surface
	// leads with collaborative filtering, people with the social graph.
	if creators {
		addCollab()
		addGraph()
		addPopular()
	} else {
		addGraph()
		addCollab()
		addPopular()
	}

	ranked := rankBlended(candidates)

	// Eligibility runs after scoring so a filtered creator frees its slot
	// for the next candidate instead of leaving a hole in the page.
	hydrated := make([]UserRecommendation, 0, len(ranked))
	for _, b := range ranked {
		info, err := s.userInfo(ctx, b.id)
		if err != nil {
			return nil, err
		}
		if creators && !s.eligibleCreator(info) {
			continue
		}

		rec := UserRecommendation{
			UserID:      b.id,
			Score:       b.score,
			Source:      b.primary(),
			Reason:      userReason(b.primary(), b.mutuals, creators),
			MutualCount: b.mutuals,
		}
		if info != nil {
			rec.Username = info.Username
			rec.FollowerCount = info.FollowerCount
			rec.Verified = info.Verified
		}
		mutuals := snap.Graph.MutualFriends(req.UserID, b.id)
		if len(mutuals) > mutualFriendsCap {
			mutuals = mutuals[:mutualFriendsCap]
		}
		rec.MutualFriends = mutuals

		hydrated = append(hydrated, rec)
	}

	resp := &Response{Type: req.Type}
	end := req.Offset + req.Limit
	if req.Offset < len(hydrated) {
		if end > len(hydrated) {
			end = len(hydrated)
		}
		resp.Users = hydrated[req.Offset:end]
	}
	resp.NextOffset = req.Offset + len(resp.Users)
	resp.HasMore = end < len(hydrated)
	return resp, nil
}

func (s *Service) recommendCommunities(ctx context.Context, req *Request, profile *feed.UserProfile) (*Response, error) {
	exclude := make(map[string]struct{}, len(req.ExcludeIDs)+len(profile.GroupIDs))
	for _, id := range req.ExcludeIDs {
		exclude[id] = struct{}{}
	}
	for _, id := range profile.GroupIDs {
		exclude[id] = struct{}{}
	}

	weights := s.tunables.Communities

	friendComms, err := s.communities.FriendCommunities(ctx, profile.FriendIDs)
	if err != nil {
		return nil, fmt.Errorf("friend communities: %w", err)
	}
	interestComms, err := s.communities.InterestCommunities(ctx, profile.InterestTopics)
	if err != nil {
		return nil, fmt.Errorf("interest communities: %w", err)
	}
	popularComms, err := s.communities.PopularCommunities(ctx, popularCommunityN)
	if err != nil {
		return nil, fmt.Errorf("popular communities: %w", err)
	}

	candidates := make(map[string]*blended)
	get := func(id string) *blended {
		b, ok := candidates[id]
		if !ok {
			b = &blended{id: id}
			candidates[id] = b
		}
		return b
	}

	for id, count := range friendComms {
		if _, skip := exclude[id]; skip {
			continue
		}
		// Ten friends saturate the membership signal.
		signal := float64(count) / 10.0
		if signal > 1.0 {
			signal = 1.0
		}
		b := get(id)
		b.add(weights.Friends*signal, SourceGraph)
		b.mutuals = count
	}
	for id, match := range interestComms {
		if _, skip := exclude[id]; skip {
			continue
		}
		get(id).add(weights.Interest*match, SourceInterest)
	}
	maxPop := 0.0
	for _, score := range popularComms {
		if score > maxPop {
			maxPop = score
		}
	}
	if maxPop > 0 {
		for id, score := range popularComms {
			if _, skip := exclude[id]; skip {
				continue
			}
			get(id).add(weights.Popularity*score/maxPop, SourcePopularity)
		}
	}

	ranked := rankBlended(candidates)

	hydrated := make([]CommunityRecommendation, 0, len(ranked))
	for _, b := range ranked {
		var info *CommunityInfo
		if s.communities != nil {
			info, err = s.communities.CommunityInfo(ctx, b.id)
			if err != nil {
				return nil, fmt.Errorf("community info: %w", err)
			}
		}

		rec := CommunityRecommendation{
			CommunityID:   b.id,
			Score:         b.score,
			Source:        b.primary(),
			Reason:        communityReason(b.primary(), b.mutuals),
			MutualMembers: b.mutuals,
		}
		if info != nil {
			rec.Name = info.Name
			rec.Category = info.Category
			rec.MemberCount = info.MemberCount
		}
		hydrated = append(hydrated, rec)
	}

	resp := &Response{Type: req.Type}
	end := req.Offset + req.Limit
	if req.Offset < len(hydrated) {
		if end > len(hydrated) {
			end = len(hydrated)
		}
		resp.Communities = hydrated[req.Offset:end]
	}
	resp.NextOffset = req.Offset + len(resp.Communities)
	resp.HasMore = end < len(hydrated)
	return resp, nil
}

// rankBlended orders candidates by score descending, ties by id.
func rankBlended(candidates map[string]*blended) []*blended {
	ranked := make([]*blended, 0, len(candidates))
	for _, b := range candidates {
		ranked = append(ranked, b)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	return ranked
}

func (s *Service) userInfo(ctx context.Context, userID string) (*UserInfo, error) {
	if s.users == nil {
		return nil, nil
	}
	info, err := s.users.UserInfo(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user info: %w", err)
	}
	return info, nil
}

// eligibleCreator reports whether the account qualifies for the creators
// surface. Without directory data nothing qualifies.
func (s *Service) eligibleCreator(info *UserInfo) bool {
	if info == nil {
		return false
	}
	return info.Verified || info.FollowerCount >= s.tunables.CreatorMinFollowers
}

func userReason(source Source, mutuals int, creators bool) string {
	switch {
	case source == SourceGraph && mutuals == 1:
		return "1 mutual friend"
	case source == SourceGraph && mutuals > 1:
		return fmt.Sprintf("%d mutual friends", mutuals)
	case source == SourceCollaborative:
		return "Similar to creators you follow"
	case source == SourcePopularity && creators:
		return "Popular creator"
	case source == SourcePopularity:
		return "Popular on the platform"
	default:
		return "Suggested for you"
	}
}

func communityReason(source Source, mutuals int) string {
	switch {
	case mutuals == 1:
		return "1 friend is a member"
	case mutuals > 1:
		return fmt.Sprintf("%d friends are members", mutuals)
	case source == SourceInterest:
		return "Matches your interests"
	default:
		return "Popular community"
	}
}
