// Package idempotency suppresses duplicate engagement submissions.
// Clients may send an Idempotency-Key header with POST /v1/feedback;
// replays of the same key are acknowledged without re-enqueueing the
// event, and a reused key with a different payload is rejected.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrKeyNotFound is returned when an idempotency key is not found.
	ErrKeyNotFound = errors.New("idempotency key not found")

	// ErrKeyExists is returned when attempting to store a duplicate key.
	ErrKeyExists = errors.New("idempotency key already exists")

	// ErrInvalidKey is returned when the key is empty.
	ErrInvalidKey = errors.New("invalid idempotency key")

	// ErrKeyTooLong is returned when the key exceeds MaxKeyLength.
	ErrKeyTooLong = errors.New("idempotency key exceeds maximum length of 64 characters")
)

// MaxKeyLength is the maximum allowed length for an idempotency key.
const MaxKeyLength = 64

// Record is a stored idempotency key with the hash of the payload it
// was first seen with. The hash distinguishes a genuine replay from a
// key reused for different content.
type Record struct {
	Key         string    `json:"key"`
	PayloadHash string    `json:"payload_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// ValidateKey checks that a client-supplied key is usable.
// Returns ErrInvalidKey for an empty key and ErrKeyTooLong past MaxKeyLength.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	return nil
}

// HashPayload computes the SHA256 hex digest of a request body.
func HashPayload(body []byte) string {
	hash := sha256.Sum256(body)
	return hex.EncodeToString(hash[:])
}

// Repository defines idempotency record persistence.
type Repository interface {
	// Get retrieves a record by key.
	// Returns ErrKeyNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (*Record, error)

	// Store saves a new record.
	// Returns ErrKeyExists if the key already exists.
	Store(ctx context.Context, record *Record) error

	// DeleteOlderThan removes records older than the given duration and
	// reports how many were removed. Backends with native expiry may
	// make this a no-op.
	DeleteOlderThan(ctx context.Context, duration time.Duration) (int64, error)
}
