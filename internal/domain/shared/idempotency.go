package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys for a bounded time. Event handlers key it
// by event ID and the HTTP layer by client-supplied Idempotency-Key.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. It reports false when the key was
	// already claimed and has not expired.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Release drops a claim so the key can be claimed again
	Release(ctx context.Context, key string) error
	Close() error
}
