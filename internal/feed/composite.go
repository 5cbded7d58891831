package feed

// Scorer computes composite per-category scores from the pure sub-score
// functions. Scorers are stateless beyond their weight table and are safe
// for concurrent use across candidates and requests.
type Scorer struct {
	weights *Weights
}

// NewScorer creates a Scorer. The weights must already be validated; use
// Weights.Validate at construction time.
func NewScorer(weights *Weights) *Scorer {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Scorer{weights: weights}
}

// Weights returns the scorer's weight table.
func (s *Scorer) Weights() *Weights { return s.weights }

// ScoreFriends scores close-friend content. Recency dominates: a friend's
// post should surface while it is still fresh.
func (s *Scorer) ScoreFriends(viewer *UserProfile, c *ContentFeatures) float64 {
	w := s.weights.Friends
	t := s.weights.Targets

	recency := RecencyScore(c.AgeHours, t.FriendsTauHours)
	engagement := EngagementScore(c.Likes, c.Comments, c.Shares, c.Views, t.FriendsEngagementRate)
	// Relationship strength defaults high for classified friends; a future
	// interaction-history signal slots in here.
	relationship := 1.0
	meaningful := engagement

	return w.Recency*recency + w.Engagement*engagement +
		w.Relationship*relationship + w.Meaningful*meaningful
}

// ScoreFollowing scores content from followed creators.
func (s *Scorer) ScoreFollowing(viewer *UserProfile, c *ContentFeatures) float64 {
	w := s.weights.Following
	t := s.weights.Targets

	recency := RecencyScore(c.AgeHours, t.FriendsTauHours)
	engagement := EngagementScore(c.Likes, c.Comments, c.Shares, c.Views, t.FriendsEngagementRate)
	interest := InterestMatchScore(viewer, c)

	return w.Recency*recency + w.Engagement*engagement + w.Interest*interest
}

// ScoreGroups scores content from the viewer's groups.
func (s *Scorer) ScoreGroups(viewer *UserProfile, c *ContentFeatures) float64 {
	w := s.weights.Groups
	t := s.weights.Targets

	recency := RecencyScore(c.AgeHours, t.FriendsTauHours)
	engagement := EngagementScore(c.Likes, c.Comments, c.Shares, c.Views, t.FriendsEngagementRate)
	interest := InterestMatchScore(viewer, c)

	return w.Recency*recency + w.Engagement*engagement + w.Interest*interest
}

// ScorePages scores page content, where production quality matters more
// than freshness.
func (s *Scorer) ScorePages(viewer *UserProfile, c *ContentFeatures) float64 {
	w := s.weights.Pages
	t := s.weights.Targets

	quality := QualityScore(c.Saves, c.Comments, c.Views, c.CreatorFollowerCount, s.weights.Quality)
	interest := InterestMatchScore(viewer, c)
	engagement := EngagementScore(c.Likes, c.Comments, c.Shares, c.Views, t.FriendsEngagementRate)

	return w.Quality*quality + w.Interest*interest + w.Engagement*engagement
}

// ScoreInterest scores interest-matched content.
func (s *Scorer) ScoreInterest(viewer *UserProfile, c *ContentFeatures) float64 {
	w := s.weights.Interest
	t := s.weights.Targets

	interest := InterestMatchScore(viewer, c)
	quality := QualityScore(c.Saves, c.Comments, c.Views, c.CreatorFollowerCount, s.weights.Quality)
	viral := ViralScore(c.Likes, c.Comments, c.Shares, c.Views, c.ViralScore, t.ViralEngagementRate)

	return w.Interest*interest + w.Quality*quality + w.Viral*viral
}

// ScoreDiscovery scores suggested content for the home feed's discovery
// slots.
func (s *Scorer) ScoreDiscovery(viewer *UserProfile, c *ContentFeatures) float64 {
	w := s.weights.Discovery
	t := s.weights.Targets

	viral := ViralScore(c.Likes, c.Comments, c.Shares, c.Views, c.ViralScore, t.ViralEngagementRate)
	quality := QualityScore(c.Saves, c.Comments, c.Views, c.CreatorFollowerCount, s.weights.Quality)
	novelty := NoveltyScore(viewer, c)

	return w.Viral*viral + w.Quality*quality + w.Novelty*novelty
}

// ScoreCircle scores a candidate for the circle feed and returns the
// distance between viewer and content when both carry coordinates.
func (s *Scorer) ScoreCircle(viewer *UserProfile, c *ContentFeatures, lat, lon *float64) (float64, *float64) {
	w := s.weights.Circle
	t := s.weights.Targets

	distance := HaversineKm(lat, lon, c.Latitude, c.Longitude)
	social := SocialScore(viewer, c.CreatorID)
	proximity := ProximityScore(distance)
	engagement := EngagementScore(c.Likes, c.Comments, c.Shares, c.Views, t.CircleEngagementRate)
	recency := RecencyScore(c.AgeHours, t.DiscoveryTauHours)

	score := w.Social*social + w.Proximity*proximity +
		w.Engagement*engagement + w.Recency*recency
	return score, distance
}

// ScoreKnownInterest scores curated known-interest items for the discover
// feed.
func (s *Scorer) ScoreKnownInterest(viewer *UserProfile, c *ContentFeatures) float64 {
	w := s.weights.KnownInterest
	t := s.weights.Targets

	interest := InterestMatchScore(viewer, c)
	quality := QualityScore(c.Saves, c.Comments, c.Views, c.CreatorFollowerCount, s.weights.Quality)
	recency := RecencyScore(c.AgeHours, t.DiscoveryTauHours)

	return w.Interest*interest + w.Quality*quality + w.Recency*recency
}

// ScoreExploration scores adjacent-interest items for the discover feed.
func (s *Scorer) ScoreExploration(viewer *UserProfile, c *ContentFeatures) float64 {
	w := s.weights.Exploration
	t := s.weights.Targets

	adjacency := AdjacencyScore(InterestMatchScore(viewer, c))
	quality := QualityScore(c.Saves, c.Comments, c.Views, c.CreatorFollowerCount, s.weights.Quality)
	viral := ViralScore(c.Likes, c.Comments, c.Shares, c.Views, c.ViralScore, t.ViralEngagementRate)

	return w.Adjacency*adjacency + w.Quality*quality + w.Viral*viral
}

// ScoreSurprise scores surprise viral items for the discover feed.
func (s *Scorer) ScoreSurprise(c *ContentFeatures) float64 {
	w := s.weights.Surprise
	t := s.weights.Targets

	viral := ViralScore(c.Likes, c.Comments, c.Shares, c.Views, c.ViralScore, t.ViralEngagementRate)
	quality := QualityScore(c.Saves, c.Comments, c.Views, c.CreatorFollowerCount, s.weights.Quality)

	return w.Viral*viral + w.Quality*quality
}
