// Package snapshot builds and publishes immutable social-graph snapshots.
// A snapshot bundles the follow graph, its influence ranks, its community
// partition, and the collaborative-filtering index, all built from one
// consistent fetch of follow edges.
package snapshot

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/onnwee/pulse/internal/graph"
	"github.com/onnwee/pulse/internal/similarity"
)

// Common errors for snapshot operations.
var (
	// ErrNotReady is returned before the first snapshot has been built.
	ErrNotReady = errors.New("no snapshot published yet")
)

// FollowSource supplies the follow edges a snapshot is built from.
type FollowSource interface {
	// FollowEdges returns the full follow adjacency: user id to the ids
	// they follow.
	FollowEdges(ctx context.Context) (map[string][]string, error)
}

// Snapshot is one immutable build of all graph-derived indices. Readers
// may hold a snapshot for the length of a request; a concurrent refresh
// never mutates it.
type Snapshot struct {
	Graph       *graph.Graph
	Ranks       map[string]float64
	Communities map[string][]string
	Similarity  *similarity.Index
	BuiltAt     time.Time
}

// Build constructs a Snapshot from a single follow-edge fetch, so all
// indices describe the same state of the social graph.
func Build(ctx context.Context, source FollowSource) (*Snapshot, error) {
	edges, err := source.FollowEdges(ctx)
	if err != nil {
		return nil, err
	}

	g := graph.New(edges)
	return &Snapshot{
		Graph:       g,
		Ranks:       g.InfluenceRank(0),
		Communities: g.Communities(),
		Similarity:  similarity.NewIndex(edges),
		BuiltAt:     time.Now(),
	}, nil
}

// Manager holds the current snapshot behind an atomic pointer. Refresh
// builds off to the side and swaps in one step, so readers always see a
// complete snapshot.
type Manager struct {
	source  FollowSource
	current atomic.Pointer[Snapshot]
}

// NewManager creates a Manager. No snapshot is available until the first
// Refresh completes.
func NewManager(source FollowSource) *Manager {
	return &Manager{source: source}
}

// Current returns the latest published snapshot, or ErrNotReady before
// the first successful refresh.
func (m *Manager) Current() (*Snapshot, error) {
	snap := m.current.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	return snap, nil
}

// Ready reports whether a snapshot has been published.
func (m *Manager) Ready() bool {
	return m.current.Load() != nil
}

// Refresh builds a fresh snapshot and publishes it. On failure the
// previous snapshot stays in place.
func (m *Manager) Refresh(ctx context.Context) error {
	snap, err := Build(ctx, m.source)
	if err != nil {
		return err
	}
	m.current.Store(snap)
	return nil
}
