// Package graph provides social graph analysis over follow edges:
// influence ranking, friends-of-friends discovery, closeness scoring, and
// community detection.
package graph

import (
	"sort"
)

// Graph is an immutable directed follow graph. Build once with New and
// share freely; all methods are read-only.
type Graph struct {
	// out[u] is the set of users u follows.
	out map[string]map[string]struct{}

	// in[v] is the set of users following v.
	in map[string]map[string]struct{}

	// nodes is every user id, sorted for deterministic iteration.
	nodes []string
}

// New builds a Graph from follow adjacency. Users appearing only as
// targets become nodes too. Self-edges are dropped.
func New(follows map[string][]string) *Graph {
	g := &Graph{
		out: make(map[string]map[string]struct{}, len(follows)),
		in:  make(map[string]map[string]struct{}),
	}

	seen := make(map[string]struct{})
	for user, targets := range follows {
		seen[user] = struct{}{}
		if g.out[user] == nil {
			g.out[user] = make(map[string]struct{}, len(targets))
		}
		for _, target := range targets {
			if target == user {
				continue
			}
			seen[target] = struct{}{}
			g.out[user][target] = struct{}{}
			if g.in[target] == nil {
				g.in[target] = make(map[string]struct{})
			}
			g.in[target][user] = struct{}{}
		}
	}

	g.nodes = make([]string, 0, len(seen))
	for node := range seen {
		g.nodes = append(g.nodes, node)
	}
	sort.Strings(g.nodes)

	return g
}

// NodeCount returns the number of users in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of follow edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, targets := range g.out {
		n += len(targets)
	}
	return n
}

// Contains reports whether the user is a node.
func (g *Graph) Contains(userID string) bool {
	if _, ok := g.out[userID]; ok {
		return true
	}
	_, ok := g.in[userID]
	return ok
}

// Successors returns the set of users the given user follows. The returned
// map is the graph's own; callers must not modify it.
func (g *Graph) Successors(userID string) map[string]struct{} {
	return g.out[userID]
}

// Predecessors returns the set of users following the given user.
func (g *Graph) Predecessors(userID string) map[string]struct{} {
	return g.in[userID]
}

// HasEdge reports whether user follows target.
func (g *Graph) HasEdge(userID, targetID string) bool {
	_, ok := g.out[userID][targetID]
	return ok
}

// MutualFriends returns the users both user and target follow, sorted.
func (g *Graph) MutualFriends(userID, targetID string) []string {
	a := g.out[userID]
	b := g.out[targetID]
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	if len(b) < len(a) {
		a, b = b, a
	}

	var mutual []string
	for v := range a {
		if _, ok := b[v]; ok {
			mutual = append(mutual, v)
		}
	}
	sort.Strings(mutual)
	return mutual
}

// ShortestPathLength returns the number of hops from user to target along
// follow edges, and false when no path exists. A user is zero hops from
// itself.
func (g *Graph) ShortestPathLength(userID, targetID string) (int, bool) {
	if !g.Contains(userID) || !g.Contains(targetID) {
		return 0, false
	}
	if userID == targetID {
		return 0, true
	}

	visited := map[string]struct{}{userID: {}}
	frontier := []string{userID}
	depth := 0

	for len(frontier) > 0 {
		depth++
		var next []string
		for _, current := range frontier {
			for neighbor := range g.out[current] {
				if neighbor == targetID {
					return depth, true
				}
				if _, ok := visited[neighbor]; ok {
					continue
				}
				visited[neighbor] = struct{}{}
				next = append(next, neighbor)
			}
		}
		frontier = next
	}
	return 0, false
}
