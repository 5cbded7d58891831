package similarity

import (
	"fmt"
	"sort"
)

// TopNeighbors returns up to k users most similar to the given user by
// cosine similarity of follow vectors. Zero-similarity users and the user
// itself are excluded. Ties order by user id so results are deterministic.
// A user with no follows has no neighbors.
func (idx *Index) TopNeighbors(userID string, k int) []Neighbor {
	if k <= 0 {
		k = DefaultTopNeighbors
	}

	cacheKey := fmt.Sprintf("%s:%d", userID, k)
	idx.mu.RLock()
	if cached, ok := idx.neighborCache[cacheKey]; ok {
		idx.mu.RUnlock()
		return cached
	}
	idx.mu.RUnlock()

	own := idx.follows[userID]
	if len(own) == 0 {
		return nil
	}

	var neighbors []Neighbor
	for other, theirs := range idx.follows {
		if other == userID {
			continue
		}
		sim := cosine(own, theirs)
		if sim > 0 {
			neighbors = append(neighbors, Neighbor{UserID: other, Similarity: sim})
		}
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Similarity != neighbors[j].Similarity {
			return neighbors[i].Similarity > neighbors[j].Similarity
		}
		return neighbors[i].UserID < neighbors[j].UserID
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}

	idx.mu.Lock()
	idx.neighborCache[cacheKey] = neighbors
	idx.mu.Unlock()

	return neighbors
}

// RecommendUsers suggests users to follow based on what the user's
// neighbors follow. Each candidate's score is the sum of the similarities
// of the neighbors following it; ties break by supporter count, then by
// user id. The user's existing follows, the excluded ids, and the user
// itself never appear.
func (idx *Index) RecommendUsers(userID string, n int, exclude map[string]struct{}) []Candidate {
	neighbors := idx.TopNeighbors(userID, DefaultTopNeighbors)
	if len(neighbors) == 0 {
		return nil
	}

	own := idx.follows[userID]

	scores := make(map[string]float64)
	supporters := make(map[string]int)
	for _, neighbor := range neighbors {
		for followed := range idx.follows[neighbor.UserID] {
			if followed == userID {
				continue
			}
			if _, already := own[followed]; already {
				continue
			}
			if _, excluded := exclude[followed]; excluded {
				continue
			}
			scores[followed] += neighbor.Similarity
			supporters[followed]++
		}
	}

	candidates := make([]Candidate, 0, len(scores))
	for id, score := range scores {
		candidates = append(candidates, Candidate{
			UserID:     id,
			Score:      score,
			Supporters: supporters[id],
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Supporters != candidates[j].Supporters {
			return candidates[i].Supporters > candidates[j].Supporters
		}
		return candidates[i].UserID < candidates[j].UserID
	})
	if n > 0 && len(candidates) > n {
		candidates = candidates[:n]
	}

	return candidates
}

// PredictAffinity estimates how likely the user is to follow the target.
// Returns (score, confidence), both in [0, 1]. An existing follow predicts
// (1, 1). Otherwise the score is the similarity mass of neighbors who
// follow the target, normalized by neighborhood size, and confidence is
// the fraction of neighbors that follow the target.
func (idx *Index) PredictAffinity(userID, targetID string) (float64, float64) {
	if !idx.Contains(userID) || !idx.Contains(targetID) {
		return 0, 0
	}
	if idx.Follows(userID, targetID) {
		return 1, 1
	}

	neighbors := idx.TopNeighbors(userID, affinityNeighbors)
	if len(neighbors) == 0 {
		return 0, 0
	}

	score := 0.0
	supporting := 0
	for _, neighbor := range neighbors {
		if idx.Follows(neighbor.UserID, targetID) {
			score += neighbor.Similarity
			supporting++
		}
	}

	score /= float64(len(neighbors))
	confidence := float64(supporting) / float64(len(neighbors))
	return score, confidence
}

// SimilarByAudience finds users whose follower sets most resemble the
// target's, the "users who follow A also follow B" signal. Cosine over
// follower vectors, same ordering rules as TopNeighbors.
func (idx *Index) SimilarByAudience(targetID string, k int) []Neighbor {
	if k <= 0 {
		k = affinityNeighbors
	}

	own := idx.followers[targetID]
	if len(own) == 0 {
		return nil
	}

	var similar []Neighbor
	for other, theirs := range idx.followers {
		if other == targetID {
			continue
		}
		sim := cosine(own, theirs)
		if sim > 0 {
			similar = append(similar, Neighbor{UserID: other, Similarity: sim})
		}
	}

	sort.Slice(similar, func(i, j int) bool {
		if similar[i].Similarity != similar[j].Similarity {
			return similar[i].Similarity > similar[j].Similarity
		}
		return similar[i].UserID < similar[j].UserID
	})
	if len(similar) > k {
		similar = similar[:k]
	}
	return similar
}
