package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onnwee/pulse/internal/feed"
)

// DefaultCacheTTL is how long a cached profile stays fresh. Profiles
// change slowly, so a short TTL mostly bounds staleness after a follow.
const DefaultCacheTTL = 10 * time.Minute

// ErrCacheMiss is returned by a Cache when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a byte-level cache with per-key expiry. RedisCache is the
// production implementation.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache implements Cache on a Redis client.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a RedisCache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns the cached value or ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores the value with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// CachedSource wraps a Source with a read-through cache. Cache failures
// degrade to the underlying source, never to an error.
type CachedSource struct {
	inner   Source
	cache   Cache
	ttl     time.Duration
	metrics *Metrics
	logger  *slog.Logger
}

// NewCachedSource creates a CachedSource. A zero ttl uses
// DefaultCacheTTL; a nil metrics disables instrumentation.
func NewCachedSource(inner Source, cache Cache, ttl time.Duration, metrics *Metrics, logger *slog.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{
		inner:   inner,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

func cacheKey(userID string) string {
	return "profile:" + userID
}

// Profile returns the cached profile when fresh, loading and caching it
// otherwise. A missing profile is not cached.
func (s *CachedSource) Profile(ctx context.Context, userID string) (*feed.UserProfile, error) {
	key := cacheKey(userID)

	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var p feed.UserProfile
		if err := json.Unmarshal(raw, &p); err == nil {
			if s.metrics != nil {
				s.metrics.IncHits()
			}
			return &p, nil
		}
		// A corrupt entry falls through to a reload.
		s.logger.Warn("discarding corrupt cached profile", slog.String("user", userID))
	case errors.Is(err, ErrCacheMiss):
		if s.metrics != nil {
			s.metrics.IncMisses()
		}
	default:
		if s.metrics != nil {
			s.metrics.IncErrors()
		}
		s.logger.Warn("profile cache read failed",
			slog.String("user", userID),
			slog.String("error", err.Error()))
	}

	p, err := s.inner.Profile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if raw, err := json.Marshal(p); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			if s.metrics != nil {
				s.metrics.IncErrors()
			}
			s.logger.Warn("profile cache write failed",
				slog.String("user", userID),
				slog.String("error", err.Error()))
		}
	}
	return p, nil
}
