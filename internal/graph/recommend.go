package graph

import (
	"sort"
)

// DefaultFoFDistance is how many hops friends-of-friends discovery
// explores by default.
const DefaultFoFDistance = 2

// FoFCandidate is a friends-of-friends discovery result.
type FoFCandidate struct {
	UserID   string `json:"user_id"`
	Distance int    `json:"distance"`
	Mutuals  int    `json:"mutuals"`
}

// FriendsOfFriends finds users reachable within maxDistance hops that the
// user does not already follow. Each candidate carries its hop distance
// and the number of the user's direct follows that follow it. Results
// order by distance ascending, then mutuals descending, then user id.
// Raising maxDistance only ever adds candidates.
func (g *Graph) FriendsOfFriends(userID string, maxDistance int, exclude map[string]struct{}) []FoFCandidate {
	if maxDistance <= 0 {
		maxDistance = DefaultFoFDistance
	}
	if !g.Contains(userID) {
		return nil
	}

	direct := g.out[userID]

	// BFS records the minimum hop distance per reachable user.
	distance := map[string]int{userID: 0}
	frontier := []string{userID}
	for depth := 1; depth <= maxDistance && len(frontier) > 0; depth++ {
		var next []string
		for _, current := range frontier {
			for neighbor := range g.out[current] {
				if _, ok := distance[neighbor]; ok {
					continue
				}
				distance[neighbor] = depth
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	var candidates []FoFCandidate
	for user, dist := range distance {
		if user == userID {
			continue
		}
		if _, followed := direct[user]; followed {
			continue
		}
		if _, excluded := exclude[user]; excluded {
			continue
		}

		mutuals := 0
		for friend := range direct {
			if g.HasEdge(friend, user) {
				mutuals++
			}
		}
		candidates = append(candidates, FoFCandidate{UserID: user, Distance: dist, Mutuals: mutuals})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		if candidates[i].Mutuals != candidates[j].Mutuals {
			return candidates[i].Mutuals > candidates[j].Mutuals
		}
		return candidates[i].UserID < candidates[j].UserID
	})

	return candidates
}

// RankedUser pairs a user with an influence score.
type RankedUser struct {
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
}

// RecommendByPopularity returns the most influential users the given user
// does not already follow, by the provided rank scores (see
// InfluenceRank). Self and excluded users are skipped; ties order by
// user id.
func (g *Graph) RecommendByPopularity(userID string, ranks map[string]float64, topK int, exclude map[string]struct{}) []RankedUser {
	follows := g.out[userID]

	candidates := make([]RankedUser, 0, len(ranks))
	for user, score := range ranks {
		if user == userID {
			continue
		}
		if _, followed := follows[user]; followed {
			continue
		}
		if _, excluded := exclude[user]; excluded {
			continue
		}
		candidates = append(candidates, RankedUser{UserID: user, Score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].UserID < candidates[j].UserID
	})
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

// closenessRankScale lifts typical PageRank magnitudes into the same range
// as the path and overlap terms before averaging.
const closenessRankScale = 10.0

// SocialCloseness scores how socially close target is to user, in [0, 1].
// Three equally weighted terms: inverse shortest-path distance, jaccard
// overlap of follow sets, and the target's scaled influence rank. Unknown
// users score 0.
func (g *Graph) SocialCloseness(userID, targetID string, ranks map[string]float64) float64 {
	if !g.Contains(userID) || !g.Contains(targetID) {
		return 0
	}

	score := 0.0

	if pathLen, ok := g.ShortestPathLength(userID, targetID); ok && pathLen > 0 {
		score += 1.0 / float64(pathLen)
	}

	a := g.out[userID]
	b := g.out[targetID]
	if len(a) > 0 && len(b) > 0 {
		overlap := len(g.MutualFriends(userID, targetID))
		union := len(a) + len(b) - overlap
		if union > 0 {
			score += float64(overlap) / float64(union)
		}
	}

	score += ranks[targetID] * closenessRankScale

	closeness := score / 3.0
	if closeness > 1.0 {
		return 1.0
	}
	return closeness
}
