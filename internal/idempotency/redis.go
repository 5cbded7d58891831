package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces idempotency records in Redis.
const redisKeyPrefix = "idem:"

// RedisRepository implements Repository on a Redis client. Records
// expire through Redis TTLs, so DeleteOlderThan is a no-op. Use this
// backend when the API runs more than one replica.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRepository creates a RedisRepository. A non-positive ttl
// falls back to DefaultExpiry.
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	if ttl <= 0 {
		ttl = DefaultExpiry
	}
	return &RedisRepository{client: client, ttl: ttl}
}

// Get retrieves a record by key.
// Returns ErrKeyNotFound if the key doesn't exist.
func (r *RedisRepository) Get(ctx context.Context, key string) (*Record, error) {
	val, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency key: %w", err)
	}

	var record Record
	if err := json.Unmarshal(val, &record); err != nil {
		return nil, fmt.Errorf("failed to decode idempotency record: %w", err)
	}
	return &record, nil
}

// Store saves a new record with the repository TTL.
// Returns ErrKeyExists if the key already exists.
func (r *RedisRepository) Store(ctx context.Context, record *Record) error {
	if err := ValidateKey(record.Key); err != nil {
		return err
	}

	copied := *record
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}
	data, err := json.Marshal(&copied)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency record: %w", err)
	}

	// SetNX keeps first-writer-wins semantics across replicas.
	set, err := r.client.SetNX(ctx, redisKeyPrefix+record.Key, data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	if !set {
		return ErrKeyExists
	}
	return nil
}

// DeleteOlderThan is a no-op; Redis TTLs expire records natively.
func (r *RedisRepository) DeleteOlderThan(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}
