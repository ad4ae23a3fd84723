package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/neuronek/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func withClock(m *ttlMap) *fakeClock {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	m.now = clock.Now
	return clock
}

func TestInMemoryCodeStore(t *testing.T) {
	ctx := context.Background()

	t.Run("put then take consumes the code", func(t *testing.T) {
		store := NewInMemoryCodeStore()
		defer store.Close()

		require.NoError(t, store.Put(ctx, "verify:a", "123456", time.Minute))

		value, ok, err := store.Take(ctx, "verify:a")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "123456", value)

		_, ok, err = store.Take(ctx, "verify:a")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("get does not consume", func(t *testing.T) {
		store := NewInMemoryCodeStore()
		defer store.Close()

		require.NoError(t, store.Put(ctx, "k", "v", time.Minute))
		for i := 0; i < 2; i++ {
			value, ok, err := store.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v", value)
		}
	})

	t.Run("expired code is gone", func(t *testing.T) {
		store := NewInMemoryCodeStore()
		defer store.Close()
		clock := withClock(store.ttlMap)

		require.NoError(t, store.Put(ctx, "k", "v", time.Minute))
		clock.Advance(61 * time.Second)

		_, ok, err := store.Take(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("put replaces previous code", func(t *testing.T) {
		store := NewInMemoryCodeStore()
		defer store.Close()

		require.NoError(t, store.Put(ctx, "k", "old", time.Minute))
		require.NoError(t, store.Put(ctx, "k", "new", time.Minute))

		value, _, _ := store.Get(ctx, "k")
		assert.Equal(t, "new", value)

		require.NoError(t, store.Delete(ctx, "k"))
		_, ok, _ := store.Get(ctx, "k")
		assert.False(t, ok)
	})

	t.Run("concurrent take redeems once", func(t *testing.T) {
		store := NewInMemoryCodeStore()
		defer store.Close()
		require.NoError(t, store.Put(ctx, "k", "v", time.Minute))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok, _ := store.Take(ctx, "k"); ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})
}

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	defer c.Close()
	clock := withClock(c.ttlMap)

	require.NoError(t, c.Set(ctx, "substance:name:caffeine", []byte("a"), 5*time.Minute))
	require.NoError(t, c.Set(ctx, "substance:name:lsd", []byte("b"), 5*time.Minute))
	require.NoError(t, c.Set(ctx, "route:list", []byte("c"), 0))

	value, ok, err := c.Get(ctx, "substance:name:caffeine")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), value)

	require.NoError(t, c.DeletePrefix(ctx, "substance:"))
	_, ok, _ = c.Get(ctx, "substance:name:lsd")
	assert.False(t, ok)

	clock.Advance(24 * time.Hour)
	_, ok, _ = c.Get(ctx, "route:list")
	assert.True(t, ok, "zero ttl never expires")
}

func TestReadThrough(t *testing.T) {
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}

	t.Run("loads once then serves from cache", func(t *testing.T) {
		c := NewInMemoryCache()
		defer c.Close()

		calls := 0
		load := func(context.Context) (payload, error) {
			calls++
			return payload{Name: "caffeine"}, nil
		}

		for i := 0; i < 3; i++ {
			got, err := ReadThrough(ctx, c, "k", time.Minute, load)
			require.NoError(t, err)
			assert.Equal(t, "caffeine", got.Name)
		}
		assert.Equal(t, 1, calls)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		c := NewInMemoryCache()
		defer c.Close()

		boom := errors.New("boom")
		_, err := ReadThrough(ctx, c, "k", time.Minute, func(context.Context) (payload, error) {
			return payload{}, boom
		})
		assert.ErrorIs(t, err, boom)

		_, ok, _ := c.Get(ctx, "k")
		assert.False(t, ok)
	})

	t.Run("nil cache loads directly", func(t *testing.T) {
		got, err := ReadThrough(ctx, nil, "k", time.Minute, func(context.Context) (payload, error) {
			return payload{Name: "lsd"}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "lsd", got.Name)
	})
}

func TestInMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	clock := withClock(store.ttlMap)

	first, err := store.MarkProcessed(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.MarkProcessed(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, second)

	processed, err := store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, 1, store.Size())

	clock.Advance(2 * time.Hour)
	processed, _ = store.IsProcessed(ctx, "evt-1")
	assert.False(t, processed)

	again, _ := store.MarkProcessed(ctx, "evt-1", time.Hour)
	assert.True(t, again)

	require.NoError(t, store.Release(ctx, "evt-1"))
	reclaimed, _ := store.MarkProcessed(ctx, "evt-1", time.Hour)
	assert.True(t, reclaimed)
}

func TestTTLMapSweep(t *testing.T) {
	m := newTTLMap(0)
	defer m.Close()
	clock := withClock(m)

	m.set("a", nil, time.Second)
	m.set("b", nil, time.Hour)
	clock.Advance(time.Minute)
	m.sweep()

	assert.Equal(t, 1, m.len())
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestNewStores_DisabledUsesMemory(t *testing.T) {
	stores, err := NewStores(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	defer stores.Close()

	assert.False(t, stores.Distributed())
	assert.IsType(t, &InMemoryCache{}, stores.Cache)
	assert.IsType(t, &InMemoryCodeStore{}, stores.Codes)
	assert.IsType(t, &InMemoryIdempotencyStore{}, stores.Idempotency)
}

func TestNewStores_UnreachableFallsBack(t *testing.T) {
	cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	stores, err := NewStores(context.Background(), cfg, WithInMemoryFallback(true))
	require.NoError(t, err)
	defer stores.Close()
	assert.False(t, stores.Distributed())

	_, err = NewStores(context.Background(), cfg, WithInMemoryFallback(false))
	assert.Error(t, err)
}
