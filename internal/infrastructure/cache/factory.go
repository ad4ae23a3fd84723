package cache

import (
	"context"

	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores groups the cache-backed stores the application wires at startup
type Stores struct {
	// Client is nil when the in-memory fallback is active
	Client      redis.UniversalClient
	Cache       Cache
	Codes       CodeStore
	Idempotency shared.IdempotencyStore
	closers     []func() error
}

// Distributed reports whether the stores are shared across instances
func (s *Stores) Distributed() bool {
	return s.Client != nil
}

// Close releases every store and the Redis connection if any
func (s *Stores) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// FactoryOption configures NewStores
type FactoryOption func(*factoryOptions)

type factoryOptions struct {
	logger           *zap.Logger
	inMemoryFallback bool
}

// WithLogger sets the logger used to report backend selection
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(o *factoryOptions) {
		o.logger = logger
	}
}

// WithInMemoryFallback switches to in-memory stores when Redis is unreachable
// instead of failing startup
func WithInMemoryFallback(enabled bool) FactoryOption {
	return func(o *factoryOptions) {
		o.inMemoryFallback = enabled
	}
}

// NewStores builds Redis-backed stores when Redis is enabled and reachable,
// and in-memory stores otherwise
func NewStores(ctx context.Context, cfg config.RedisConfig, opts ...FactoryOption) (*Stores, error) {
	o := &factoryOptions{logger: zap.NewNop(), inMemoryFallback: true}
	for _, opt := range opts {
		opt(o)
	}

	if !cfg.Enabled {
		o.logger.Info("Redis disabled, using in-memory stores")
		return NewInMemoryStores(), nil
	}

	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		if !o.inMemoryFallback {
			return nil, err
		}
		o.logger.Warn("Redis unavailable, falling back to in-memory stores",
			zap.String("addr", cfg.Addr()),
			zap.Error(err))
		return NewInMemoryStores(), nil
	}

	o.logger.Info("Connected to Redis", zap.String("addr", cfg.Addr()), zap.Int("db", cfg.DB))
	return &Stores{
		Client:      client,
		Cache:       NewRedisCache(client),
		Codes:       NewRedisCodeStore(client),
		Idempotency: NewRedisIdempotencyStore(client),
		closers:     []func() error{client.Close},
	}, nil
}

// NewInMemoryStores builds process-local stores
func NewInMemoryStores() *Stores {
	c := NewInMemoryCache()
	codes := NewInMemoryCodeStore()
	idem := NewInMemoryIdempotencyStore()
	return &Stores{
		Cache:       c,
		Codes:       codes,
		Idempotency: idem,
		closers:     []func() error{c.Close, codes.Close, idem.Close},
	}
}
