package graph

import (
	"sort"
)

// maxLabelIterations bounds label propagation; small social graphs
// converge in a handful of sweeps.
const maxLabelIterations = 20

// Communities partitions the graph into communities using synchronous
// label propagation over the undirected version of the follow graph.
// Every user starts with its own id as label and repeatedly adopts the
// most common label among its neighbors, ties resolving to the smallest
// label so runs are deterministic. Returns community label to sorted
// member list.
func (g *Graph) Communities() map[string][]string {
	// Undirected neighborhoods.
	neighbors := make(map[string]map[string]struct{}, len(g.nodes))
	for _, node := range g.nodes {
		set := make(map[string]struct{})
		for v := range g.out[node] {
			set[v] = struct{}{}
		}
		for v := range g.in[node] {
			set[v] = struct{}{}
		}
		neighbors[node] = set
	}

	labels := make(map[string]string, len(g.nodes))
	for _, node := range g.nodes {
		labels[node] = node
	}

	for iter := 0; iter < maxLabelIterations; iter++ {
		changed := false
		for _, node := range g.nodes {
			best := dominantLabel(labels, neighbors[node], labels[node])
			if best != labels[node] {
				labels[node] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	communities := make(map[string][]string)
	for _, node := range g.nodes {
		label := labels[node]
		communities[label] = append(communities[label], node)
	}
	for _, members := range communities {
		sort.Strings(members)
	}
	return communities
}

// dominantLabel returns the most frequent label among the neighbor set,
// preferring the smallest label on ties. An isolated node keeps its own.
func dominantLabel(labels map[string]string, neighbors map[string]struct{}, own string) string {
	if len(neighbors) == 0 {
		return own
	}

	counts := make(map[string]int, len(neighbors))
	for neighbor := range neighbors {
		counts[labels[neighbor]]++
	}

	best := ""
	bestCount := 0
	for label, count := range counts {
		if count > bestCount || (count == bestCount && label < best) {
			best = label
			bestCount = count
		}
	}
	return best
}

// CommonCommunities returns the community labels shared by two users,
// sorted. With label propagation each user holds exactly one label, so
// the result has at most one element; the slice form keeps parity with
// callers that also consult externally supplied groupings.
func (g *Graph) CommonCommunities(userID, targetID string, communities map[string][]string) []string {
	var common []string
	for label, members := range communities {
		if containsSorted(members, userID) && containsSorted(members, targetID) {
			common = append(common, label)
		}
	}
	sort.Strings(common)
	return common
}

func containsSorted(sorted []string, id string) bool {
	i := sort.SearchStrings(sorted, id)
	return i < len(sorted) && sorted[i] == id
}
