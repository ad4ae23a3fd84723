package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "event:idempotency:"

// RedisIdempotencyStore shares processed event IDs across instances
type RedisIdempotencyStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisIdempotencyStore creates a store on a shared Redis client
func NewRedisIdempotencyStore(client redis.UniversalClient) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, prefix: idempotencyKeyPrefix}
}

// MarkProcessed uses SET NX so that exactly one caller wins per event ID
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+eventID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event as processed: %w", err)
	}
	return ok, nil
}

// IsProcessed checks if an event has already been processed
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if event is processed: %w", err)
	}
	return n > 0, nil
}

// Release deletes the claim on an event ID
func (s *RedisIdempotencyStore) Release(ctx context.Context, eventID string) error {
	if err := s.client.Del(ctx, s.prefix+eventID).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Close is a no-op; the shared client is closed by its owner
func (s *RedisIdempotencyStore) Close() error {
	return nil
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)

// InMemoryIdempotencyStore keeps processed event IDs in process memory
type InMemoryIdempotencyStore struct {
	*ttlMap
}

// NewInMemoryIdempotencyStore creates a store with a background janitor
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{ttlMap: newTTLMap(5 * time.Minute)}
}

// MarkProcessed returns true if the event was newly marked
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	return s.setNX(eventID, nil, ttl), nil
}

// IsProcessed checks if an event has already been processed
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	_, ok := s.get(eventID)
	return ok, nil
}

// Release forgets an event ID
func (s *InMemoryIdempotencyStore) Release(_ context.Context, eventID string) error {
	s.delete(eventID)
	return nil
}

// Size returns the number of tracked entries
func (s *InMemoryIdempotencyStore) Size() int {
	return s.len()
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
