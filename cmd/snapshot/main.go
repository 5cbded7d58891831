// Package main is an offline tool that builds a social-graph snapshot
// and prints its indices. It is meant for inspecting what the API's
// periodic refresh job would compute, without running the server.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	_ "github.com/lib/pq"

	"github.com/onnwee/pulse/internal/middleware"
	"github.com/onnwee/pulse/internal/snapshot"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	follows := flag.String("follows", "", "path to a JSON file of follow edges (user -> [followed users])")
	userID := flag.String("user", "", "print detail for a single user")
	top := flag.Int("top", 10, "number of entries to print per index")
	flag.Parse()

	if *help {
		fmt.Println("Pulse Snapshot Inspector")
		fmt.Println()
		fmt.Println("Builds the influence, community, and similarity indices from the")
		fmt.Println("follow graph and prints a summary. Reads edges from DATABASE_URL,")
		fmt.Println("or from a JSON file via -follows.")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	source, cleanup, err := openSource(*follows)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	started := time.Now()
	snap, err := snapshot.Build(ctx, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: snapshot build failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("snapshot built in %s\n", time.Since(started).Round(time.Millisecond))
	fmt.Printf("  users:       %d\n", snap.Graph.NodeCount())
	fmt.Printf("  follows:     %d\n", snap.Graph.EdgeCount())
	fmt.Printf("  communities: %d\n", len(snap.Communities))
	fmt.Println()

	printTopRanks(snap, *top)
	printCommunities(snap, *top)

	if *userID != "" {
		printUserDetail(snap, *userID, *top)
	}
}

// openSource returns a follow-edge source from the -follows fixture file
// when given, otherwise from the DATABASE_URL Postgres instance.
func openSource(followsPath string) (snapshot.FollowSource, func(), error) {
	if followsPath != "" {
		data, err := os.ReadFile(followsPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read follows file: %w", err)
		}
		var edges map[string][]string
		if err := json.Unmarshal(data, &edges); err != nil {
			return nil, nil, fmt.Errorf("failed to parse follows file: %w", err)
		}
		source := snapshot.NewMemoryFollowSource()
		for user, targets := range edges {
			for _, target := range targets {
				source.Follow(user, target)
			}
		}
		return source, func() {}, nil
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required when -follows is not set")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return snapshot.NewPostgresFollowSource(db, middleware.NewLogger(os.Getenv("PULSE_ENV"))), func() { db.Close() }, nil
}

func printTopRanks(snap *snapshot.Snapshot, top int) {
	type rankedUser struct {
		userID string
		rank   float64
	}
	ranked := make([]rankedUser, 0, len(snap.Ranks))
	for id, rank := range snap.Ranks {
		ranked = append(ranked, rankedUser{userID: id, rank: rank})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].rank != ranked[j].rank {
			return ranked[i].rank > ranked[j].rank
		}
		return ranked[i].userID < ranked[j].userID
	})
	if len(ranked) > top {
		ranked = ranked[:top]
	}

	fmt.Println("top influence:")
	for _, r := range ranked {
		fmt.Printf("  %-30s %.6f\n", r.userID, r.rank)
	}
	fmt.Println()
}

func printCommunities(snap *snapshot.Snapshot, top int) {
	type community struct {
		label string
		size  int
	}
	communities := make([]community, 0, len(snap.Communities))
	for label, members := range snap.Communities {
		communities = append(communities, community{label: label, size: len(members)})
	}
	sort.Slice(communities, func(i, j int) bool {
		if communities[i].size != communities[j].size {
			return communities[i].size > communities[j].size
		}
		return communities[i].label < communities[j].label
	})
	if len(communities) > top {
		communities = communities[:top]
	}

	fmt.Println("largest communities:")
	for _, c := range communities {
		fmt.Printf("  %-30s %d members\n", c.label, c.size)
	}
	fmt.Println()
}

func printUserDetail(snap *snapshot.Snapshot, userID string, top int) {
	fmt.Printf("user %s:\n", userID)
	if !snap.Graph.Contains(userID) {
		fmt.Println("  not present in the follow graph")
		return
	}

	fmt.Printf("  influence:  %.6f\n", snap.Ranks[userID])
	fmt.Printf("  following:  %d\n", len(snap.Graph.Successors(userID)))
	fmt.Printf("  followers:  %d\n", len(snap.Graph.Predecessors(userID)))

	fmt.Println("  similar-audience neighbors:")
	for _, n := range snap.Similarity.SimilarByAudience(userID, top) {
		fmt.Printf("    %-28s %.4f\n", n.UserID, n.Similarity)
	}
}
