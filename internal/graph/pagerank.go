package graph

// PageRank parameters. The damping factor matches the standard choice;
// iteration stops at convergence or after maxRankIterations.
const (
	DefaultDamping     = 0.85
	maxRankIterations  = 100
	rankConvergenceEps = 1e-6
)

// InfluenceRank computes PageRank scores over the follow graph with the
// given damping factor (pass 0 for the default). A follow is an
// endorsement: influence flows from follower to followed. Scores sum
// to 1 across all nodes; an empty graph returns an empty map.
func (g *Graph) InfluenceRank(damping float64) map[string]float64 {
	if damping <= 0 || damping >= 1 {
		damping = DefaultDamping
	}

	n := len(g.nodes)
	if n == 0 {
		return map[string]float64{}
	}

	ranks := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for _, node := range g.nodes {
		ranks[node] = initial
	}

	base := (1.0 - damping) / float64(n)

	for iter := 0; iter < maxRankIterations; iter++ {
		next := make(map[string]float64, n)

		// Rank mass of nodes with no outgoing edges redistributes
		// uniformly, keeping the total at 1.
		dangling := 0.0
		for _, node := range g.nodes {
			if len(g.out[node]) == 0 {
				dangling += ranks[node]
			}
		}
		danglingShare := damping * dangling / float64(n)

		for _, node := range g.nodes {
			sum := 0.0
			for follower := range g.in[node] {
				sum += ranks[follower] / float64(len(g.out[follower]))
			}
			next[node] = base + danglingShare + damping*sum
		}

		delta := 0.0
		for _, node := range g.nodes {
			diff := next[node] - ranks[node]
			if diff < 0 {
				diff = -diff
			}
			delta += diff
		}
		ranks = next
		if delta < rankConvergenceEps {
			break
		}
	}

	return ranks
}
