package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeStore keeps short-lived one-time codes (email verification, password recovery)
type CodeStore interface {
	// Put stores value under key for ttl, replacing any previous value
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the value without consuming it
	Get(ctx context.Context, key string) (string, bool, error)
	// Take returns the value and deletes the key in one step
	Take(ctx context.Context, key string) (string, bool, error)
	// Delete removes the key
	Delete(ctx context.Context, key string) error
}

// RedisCodeStore stores codes as plain Redis strings with expiry
type RedisCodeStore struct {
	client redis.UniversalClient
}

// NewRedisCodeStore creates a code store on a shared Redis client
func NewRedisCodeStore(client redis.UniversalClient) *RedisCodeStore {
	return &RedisCodeStore{client: client}
}

func (s *RedisCodeStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	return nil
}

func (s *RedisCodeStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read code: %w", err)
	}
	return value, true, nil
}

// Take uses GETDEL so that a code can be redeemed only once
func (s *RedisCodeStore) Take(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("consume code: %w", err)
	}
	return value, true, nil
}

func (s *RedisCodeStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete code: %w", err)
	}
	return nil
}

var _ CodeStore = (*RedisCodeStore)(nil)

// InMemoryCodeStore keeps codes in process memory
type InMemoryCodeStore struct {
	*ttlMap
}

// NewInMemoryCodeStore creates an in-memory code store
func NewInMemoryCodeStore() *InMemoryCodeStore {
	return &InMemoryCodeStore{ttlMap: newTTLMap(time.Minute)}
}

func (s *InMemoryCodeStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	s.set(key, []byte(value), ttl)
	return nil
}

func (s *InMemoryCodeStore) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := s.get(key)
	return string(value), ok, nil
}

func (s *InMemoryCodeStore) Take(_ context.Context, key string) (string, bool, error) {
	value, ok := s.take(key)
	return string(value), ok, nil
}

func (s *InMemoryCodeStore) Delete(_ context.Context, key string) error {
	s.delete(key)
	return nil
}

var _ CodeStore = (*InMemoryCodeStore)(nil)
