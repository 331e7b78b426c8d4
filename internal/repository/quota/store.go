// Package quota persists detector usage counters in the key-value store.
package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/scanguard/internal/db"
)

// store is the consumer interface for counter operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store implements counters on top of the KV store (INCRBY + GET with TTL).
type Store struct {
	store store
	ttl   time.Duration
}

// New creates a counter store. ttl is applied once per key (recommended: 48h for daily keys).
func New(s store, ttl time.Duration) *Store {
	return &Store{store: s, ttl: ttl}
}

// IncrBy atomically increments the key and sets its TTL on first write.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if _, err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("quota INCRBY %s: %w", key, err)
	}

	// NX: repeated increments must not extend the key's lifetime.
	if err := s.store.Expire(ctx, key, s.ttl, true); err != nil {
		return fmt.Errorf("quota EXPIRE %s: %w", key, err)
	}
	return nil
}

// Get returns the current counter value. Returns 0 if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("quota GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("quota GET %s parse: %w", key, err)
	}
	return val, nil
}
