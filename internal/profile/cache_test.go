package profile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/pulse/internal/feed"
)

// memoryCache is a Cache test double without expiry.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return val, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

// failingCache always errors, standing in for an unreachable Redis.
type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

// countingSource wraps a MemoryStore and counts loads.
type countingSource struct {
	store *MemoryStore
	loads int
}

func (s *countingSource) Profile(ctx context.Context, userID string) (*feed.UserProfile, error) {
	s.loads++
	return s.store.Profile(ctx, userID)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	store.Put(&feed.UserProfile{UserID: "u1", InterestTopics: []string{"music"}})

	p, err := store.Profile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.UserID != "u1" || len(p.InterestTopics) != 1 {
		t.Errorf("unexpected profile %+v", p)
	}

	_, err = store.Profile(context.Background(), "missing")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestCachedSourceReadThrough(t *testing.T) {
	store := NewMemoryStore()
	store.Put(&feed.UserProfile{UserID: "u1", FollowingIDs: []string{"u2"}})
	inner := &countingSource{store: store}
	cache := newMemoryCache()
	src := NewCachedSource(inner, cache, 0, nil, nil)

	p, err := src.Profile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.UserID != "u1" {
		t.Errorf("unexpected profile %+v", p)
	}
	if inner.loads != 1 {
		t.Fatalf("expected 1 load after miss, got %d", inner.loads)
	}

	// Second read is served from the cache.
	p, err = src.Profile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.FollowingIDs) != 1 || p.FollowingIDs[0] != "u2" {
		t.Errorf("cached profile lost fields: %+v", p)
	}
	if inner.loads != 1 {
		t.Errorf("expected cache hit, inner loaded %d times", inner.loads)
	}
}

func TestCachedSourceCorruptEntry(t *testing.T) {
	store := NewMemoryStore()
	store.Put(&feed.UserProfile{UserID: "u1"})
	inner := &countingSource{store: store}
	cache := newMemoryCache()
	cache.entries[cacheKey("u1")] = []byte("{not json")

	src := NewCachedSource(inner, cache, 0, nil, nil)
	p, err := src.Profile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.UserID != "u1" {
		t.Errorf("unexpected profile %+v", p)
	}
	if inner.loads != 1 {
		t.Errorf("expected reload past corrupt entry, got %d loads", inner.loads)
	}
}

func TestCachedSourceDegradesOnCacheFailure(t *testing.T) {
	store := NewMemoryStore()
	store.Put(&feed.UserProfile{UserID: "u1"})
	inner := &countingSource{store: store}

	src := NewCachedSource(inner, failingCache{}, 0, nil, nil)
	p, err := src.Profile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected degraded read, got %v", err)
	}
	if p.UserID != "u1" {
		t.Errorf("unexpected profile %+v", p)
	}
}

func TestCachedSourceMissingProfileNotCached(t *testing.T) {
	inner := &countingSource{store: NewMemoryStore()}
	cache := newMemoryCache()
	src := NewCachedSource(inner, cache, 0, nil, nil)

	_, err := src.Profile(context.Background(), "ghost")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	if len(cache.entries) != 0 {
		t.Errorf("missing profile should not be cached, got %d entries", len(cache.entries))
	}

	_, _ = src.Profile(context.Background(), "ghost")
	if inner.loads != 2 {
		t.Errorf("expected both lookups to reach the source, got %d", inner.loads)
	}
}
