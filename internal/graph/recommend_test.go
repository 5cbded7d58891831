package graph

import (
	"testing"
)

// fofGraph: u follows f1 and f2; f1 and f2 both follow shared; f2 follows
// distant-chain start d1; d1 follows d2.
func fofGraph() *Graph {
	return New(map[string][]string{
		"u":      {"f1", "f2"},
		"f1":     {"shared"},
		"f2":     {"shared", "d1"},
		"d1":     {"d2"},
		"shared": {},
	})
}

// TestFriendsOfFriends tests BFS discovery, ordering, and exclusions.
func TestFriendsOfFriends(t *testing.T) {
	g := fofGraph()

	t.Run("two hop discovery", func(t *testing.T) {
		fof := g.FriendsOfFriends("u", 2, nil)
		if len(fof) != 2 {
			t.Fatalf("expected 2 candidates, got %d: %v", len(fof), fof)
		}
		// shared has two mutuals, d1 one; both at distance 2.
		if fof[0].UserID != "shared" || fof[0].Mutuals != 2 || fof[0].Distance != 2 {
			t.Errorf("expected shared with 2 mutuals at distance 2, got %+v", fof[0])
		}
		if fof[1].UserID != "d1" || fof[1].Mutuals != 1 {
			t.Errorf("expected d1 with 1 mutual, got %+v", fof[1])
		}
	})

	t.Run("direct follows and self are never candidates", func(t *testing.T) {
		for _, c := range g.FriendsOfFriends("u", 3, nil) {
			if c.UserID == "u" || c.UserID == "f1" || c.UserID == "f2" {
				t.Errorf("unexpected candidate %s", c.UserID)
			}
		}
	})

	t.Run("raising distance only adds candidates", func(t *testing.T) {
		two := g.FriendsOfFriends("u", 2, nil)
		three := g.FriendsOfFriends("u", 3, nil)
		if len(three) <= len(two) {
			t.Fatalf("expected more candidates at distance 3: %d vs %d", len(three), len(two))
		}
		found := make(map[string]struct{})
		for _, c := range three {
			found[c.UserID] = struct{}{}
		}
		for _, c := range two {
			if _, ok := found[c.UserID]; !ok {
				t.Errorf("candidate %s disappeared at larger distance", c.UserID)
			}
		}
	})

	t.Run("exclude set is honored", func(t *testing.T) {
		fof := g.FriendsOfFriends("u", 2, map[string]struct{}{"shared": {}})
		for _, c := range fof {
			if c.UserID == "shared" {
				t.Error("excluded user was recommended")
			}
		}
	})

	t.Run("unknown user gets nothing", func(t *testing.T) {
		if fof := g.FriendsOfFriends("ghost", 2, nil); len(fof) != 0 {
			t.Errorf("expected no candidates, got %d", len(fof))
		}
	})
}

// TestRecommendByPopularity tests influence-based recommendations.
func TestRecommendByPopularity(t *testing.T) {
	g := New(map[string][]string{
		"u": {"followed"},
		"a": {"star", "followed"},
		"b": {"star"},
		"c": {"star"},
	})
	ranks := g.InfluenceRank(0)

	recs := g.RecommendByPopularity("u", ranks, 10, nil)
	if len(recs) == 0 {
		t.Fatal("expected recommendations")
	}
	if recs[0].UserID != "star" {
		t.Errorf("expected star first, got %s", recs[0].UserID)
	}
	for _, rec := range recs {
		if rec.UserID == "u" {
			t.Error("recommended the user to themselves")
		}
		if rec.UserID == "followed" {
			t.Error("recommended an existing follow")
		}
	}

	t.Run("topK truncates", func(t *testing.T) {
		if recs := g.RecommendByPopularity("u", ranks, 1, nil); len(recs) != 1 {
			t.Errorf("expected 1 recommendation, got %d", len(recs))
		}
	})

	t.Run("exclude set is honored", func(t *testing.T) {
		recs := g.RecommendByPopularity("u", ranks, 10, map[string]struct{}{"star": {}})
		for _, rec := range recs {
			if rec.UserID == "star" {
				t.Error("excluded user was recommended")
			}
		}
	})
}

// TestSocialCloseness tests the blended closeness score.
func TestSocialCloseness(t *testing.T) {
	g := New(map[string][]string{
		"u":        {"friend", "x"},
		"friend":   {"x", "far"},
		"far":      {"faraway"},
		"stranger": {"q"},
	})
	ranks := g.InfluenceRank(0)

	t.Run("unknown users score zero", func(t *testing.T) {
		if s := g.SocialCloseness("u", "ghost", ranks); s != 0 {
			t.Errorf("expected 0, got %f", s)
		}
	})

	t.Run("directly followed beats distant", func(t *testing.T) {
		near := g.SocialCloseness("u", "friend", ranks)
		distant := g.SocialCloseness("u", "faraway", ranks)
		if near <= distant {
			t.Errorf("expected friend closer than faraway: %f vs %f", near, distant)
		}
	})

	t.Run("bounded to one", func(t *testing.T) {
		for _, target := range []string{"friend", "x", "far", "stranger"} {
			if s := g.SocialCloseness("u", target, ranks); s < 0 || s > 1 {
				t.Errorf("closeness for %s out of range: %f", target, s)
			}
		}
	})
}
