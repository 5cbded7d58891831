package feed

import (
	"math"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// clamp01 clamps v to the [0, 1] range. Every sub-score passes through
// this before weighting.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RecencyScore computes an exponential-decay freshness score.
//
// Parameters:
//   - ageHours: content age in hours
//   - tauHours: decay constant; smaller values favor fresher content
//     (e.g. 12h for close-friend content, 24h for general discovery)
//
// Returns a value in (0, 1]: 1.0 for brand-new content, approaching 0 as
// content ages. Negative ages are treated as zero.
func RecencyScore(ageHours, tauHours float64) float64 {
	if ageHours < 0 {
		ageHours = 0
	}
	if tauHours <= 0 {
		return 1.0
	}
	return math.Exp(-ageHours / tauHours)
}

// EngagementScore normalizes the engagement rate against a target rate.
//
// rate = (likes + comments + shares) / views, capped at 1.0 after dividing
// by targetRate. Zero views returns 0, never a division by zero.
func EngagementScore(likes, comments, shares, views int, targetRate float64) float64 {
	if views == 0 || targetRate <= 0 {
		return 0
	}
	rate := float64(likes+comments+shares) / float64(views)
	return clamp01(rate / targetRate)
}

// QualityScore blends normalized save-rate, comment-rate, and creator
// follower count into a single content quality signal.
//
// Each rate term is min(raw/target, 1). The creator term normalizes the
// follower count against followerScale (followers at or above the scale
// count as 1.0). Zero views yields 0 for both rate terms.
func QualityScore(saves, comments, views, followerCount int, w QualityWeights) float64 {
	var saveTerm, commentTerm float64
	if views > 0 {
		saveTerm = clamp01(float64(saves) / float64(views) / w.TargetSaveRate)
		commentTerm = clamp01(float64(comments) / float64(views) / w.TargetCommentRate)
	}
	creatorTerm := clamp01(float64(followerCount) / w.FollowerScale)

	return w.Save*saveTerm + w.Comment*commentTerm + w.Creator*creatorTerm
}

// ViralScore combines normalized engagement with an externally computed
// viral-velocity signal: 0.6·engagement + 0.4·min(viralSignal, 1).
// Zero views means the engagement term contributes 0.
func ViralScore(likes, comments, shares, views int, viralSignal, targetRate float64) float64 {
	engagement := EngagementScore(likes, comments, shares, views, targetRate)
	return 0.6*engagement + 0.4*clamp01(viralSignal)
}

// InterestMatchScore measures how well content tags match the viewer's
// recorded interests.
//
// Up to four dimensions contribute: hashtag overlap, topic overlap, a fixed
// 1.0 when the creator is in the viewer's preferred-creator set, and a fixed
// 0.8 for a preferred sound. Each set dimension contributes
// |intersection| / |userSet|. The result is the average over dimensions that
// had viewer-side data; dimensions with an empty viewer-side set are skipped
// entirely, not counted as zero. Returns 0 when no dimension had data.
func InterestMatchScore(viewer *UserProfile, content *ContentFeatures) float64 {
	score := 0.0
	dims := 0

	if len(viewer.InterestHashtags) > 0 && len(content.Hashtags) > 0 {
		overlap := intersectCount(viewer.InterestHashtags, content.Hashtags)
		score += float64(overlap) / float64(len(viewer.InterestHashtags))
		dims++
	}

	if len(viewer.InterestTopics) > 0 && len(content.Topics) > 0 {
		overlap := intersectCount(viewer.InterestTopics, content.Topics)
		score += float64(overlap) / float64(len(viewer.InterestTopics))
		dims++
	}

	if len(viewer.InterestCreators) > 0 {
		if containsID(viewer.InterestCreators, content.CreatorID) {
			score += 1.0
			dims++
		}
	}

	if content.SoundID != "" && len(viewer.InterestSounds) > 0 {
		if containsID(viewer.InterestSounds, content.SoundID) {
			score += 0.8
			dims++
		}
	}

	if dims == 0 {
		return 0
	}
	return clamp01(score / float64(dims))
}

// NoveltyScore measures how different content topics are from the viewer's
// usual interests: 1 − overlap/|userTopics|, clamped to ≥ 0. A viewer with
// no recorded topics gets 1.0: everything is novel to an unprofiled user.
func NoveltyScore(viewer *UserProfile, content *ContentFeatures) float64 {
	if len(viewer.InterestTopics) == 0 {
		return 1.0
	}
	overlap := intersectCount(viewer.InterestTopics, content.Topics)
	novelty := 1.0 - float64(overlap)/float64(len(viewer.InterestTopics))
	if novelty < 0 {
		return 0
	}
	return novelty
}

// AdjacencyScore rewards content that is somewhat related to the viewer's
// interests but not identical, the exploration band. The function is
// triangular: 1.0 for interestMatch in [0.2, 0.6], scaling linearly to 0
// outside the band on both sides.
func AdjacencyScore(interestMatch float64) float64 {
	switch {
	case interestMatch >= 0.2 && interestMatch <= 0.6:
		return 1.0
	case interestMatch < 0.2:
		return interestMatch / 0.2
	default:
		return (1.0 - interestMatch) / 0.4
	}
}

// ProximityScore converts a distance to a banded [0, 1] score:
// <1km → 1.0, <5km → 0.8, <25km → 0.5, <100km → 0.2, else 0.
// A nil distance (missing coordinates on either side) scores 0.
func ProximityScore(distanceKm *float64) float64 {
	if distanceKm == nil {
		return 0
	}
	d := *distanceKm
	switch {
	case d < 1:
		return 1.0
	case d < 5:
		return 0.8
	case d < 25:
		return 0.5
	case d < 100:
		return 0.2
	default:
		return 0
	}
}

// HaversineKm computes the great-circle distance between two points in
// kilometers. Returns nil when any coordinate is missing; callers must
// distinguish "0 km away" from "no location data".
func HaversineKm(lat1, lon1, lat2, lon2 *float64) *float64 {
	if lat1 == nil || lon1 == nil || lat2 == nil || lon2 == nil {
		return nil
	}

	rlat1 := *lat1 * math.Pi / 180
	rlat2 := *lat2 * math.Pi / 180
	dlat := (*lat2 - *lat1) * math.Pi / 180
	dlon := (*lon2 - *lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	d := earthRadiusKm * c
	return &d
}

// SocialScore rates the viewer's relationship to the content creator:
// close friend 1.0, following 0.8, follower-of-viewer 0.6, stranger 0.1.
func SocialScore(viewer *UserProfile, creatorID string) float64 {
	if containsID(viewer.FriendIDs, creatorID) {
		return 1.0
	}
	if containsID(viewer.FollowingIDs, creatorID) {
		return 0.8
	}
	if containsID(viewer.FollowerIDs, creatorID) {
		return 0.6
	}
	return 0.1
}

// intersectCount counts elements present in both slices.
func intersectCount(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	count := 0
	for _, v := range b {
		if _, ok := set[v]; ok {
			count++
			delete(set, v) // count duplicates once
		}
	}
	return count
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
