package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Cache is a byte-oriented cache with prefix invalidation
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// RedisCache stores values as Redis strings
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache creates a cache on a shared Redis client
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// DeletePrefix removes matching keys with SCAN so Redis is never blocked by KEYS
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.Delete(ctx, batch...); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan %s: %w", prefix, err)
	}
	return c.Delete(ctx, batch...)
}

var _ Cache = (*RedisCache)(nil)

// InMemoryCache keeps values in process memory
type InMemoryCache struct {
	*ttlMap
}

// NewInMemoryCache creates an in-memory cache
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{ttlMap: newTTLMap(time.Minute)}
}

func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := c.get(key)
	return value, ok, nil
}

func (c *InMemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.set(key, value, ttl)
	return nil
}

func (c *InMemoryCache) Delete(_ context.Context, keys ...string) error {
	c.delete(keys...)
	return nil
}

func (c *InMemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.deletePrefix(prefix)
	return nil
}

var _ Cache = (*InMemoryCache)(nil)

// ReadThrough serves key from the cache, loading and storing it on a miss.
// Cache failures degrade to a direct load; load errors are never cached.
func ReadThrough[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if c != nil {
		if raw, ok, err := c.Get(ctx, key); err == nil && ok {
			var cached T
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if c != nil {
		if raw, err := json.Marshal(value); err == nil {
			_ = c.Set(ctx, key, raw, ttl)
		}
	}
	return value, nil
}
