package profile

import (
	"context"
	"fmt"
	"sync"

	"github.com/onnwee/pulse/internal/feed"
)

// MemoryStore is an in-memory Source for tests and local development.
// Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*feed.UserProfile
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*feed.UserProfile)}
}

// Put adds or replaces a profile.
func (s *MemoryStore) Put(p *feed.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

// Profile returns the stored profile or ErrProfileNotFound.
func (s *MemoryStore) Profile(_ context.Context, userID string) (*feed.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	return p, nil
}
