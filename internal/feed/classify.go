package feed

// Classifier assigns each candidate to a source bucket using relationship
// and feature lookups. Classification is a pure function of the viewer sets
// and the candidate; there is no state beyond the configured thresholds.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier creates a Classifier with the given thresholds.
func NewClassifier(thresholds Thresholds) *Classifier {
	return &Classifier{thresholds: thresholds}
}

// viewerSets caches the viewer's membership sets so a batch of candidates
// is classified without rebuilding them per candidate.
type viewerSets struct {
	friends   map[string]struct{}
	following map[string]struct{}
	groups    map[string]struct{}
}

func newViewerSets(viewer *UserProfile) viewerSets {
	return viewerSets{
		friends:   viewer.FriendSet(),
		following: viewer.FollowingSet(),
		groups:    viewer.GroupSet(),
	}
}

// Classify determines the source bucket for a candidate. The precedence
// order is fixed: friends, following, groups, pages, interest, suggested.
// Reordering would change which bucket (and thus which score formula and
// budget) a borderline candidate falls into.
func (c *Classifier) Classify(viewer *UserProfile, sets viewerSets, content *ContentFeatures, interestScore float64) Source {
	if _, ok := sets.friends[content.CreatorID]; ok {
		return SourceFriends
	}
	if _, ok := sets.following[content.CreatorID]; ok {
		return SourceFollowing
	}
	if content.GroupID != "" {
		if _, ok := sets.groups[content.GroupID]; ok {
			return SourceGroups
		}
	}
	if content.CreatorFollowerCount > c.thresholds.PageFollowerCount {
		return SourcePages
	}
	if interestScore > c.thresholds.InterestMatch {
		return SourceInterest
	}
	return SourceSuggested
}
