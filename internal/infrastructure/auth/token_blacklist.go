package auth

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist revokes tokens before they expire
type TokenBlacklist interface {
	// Revoke blacklists a single token by its JTI for ttl (the token's remaining lifetime)
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	// IsRevoked reports whether the JTI is blacklisted
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// RevokeAccount invalidates every token of the account issued up to now
	RevokeAccount(ctx context.Context, accountID string, ttl time.Duration) error
	// IsAccountRevoked reports whether a token issued at issuedAt predates the account's revocation.
	// Token timestamps have second precision, so tokens issued within the revocation second stay valid.
	IsAccountRevoked(ctx context.Context, accountID string, issuedAt time.Time) (bool, error)
}

const blacklistKeyPrefix = "token:blacklist:"

// RedisTokenBlacklist stores revocations in Redis with the token lifetime as TTL
type RedisTokenBlacklist struct {
	client redis.UniversalClient
}

// NewRedisTokenBlacklist creates a blacklist on a shared Redis client
func NewRedisTokenBlacklist(client redis.UniversalClient) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client}
}

func jtiKey(jti string) string { return blacklistKeyPrefix + "jti:" + jti }
func accountKey(accountID string) string { return blacklistKeyPrefix + "account:" + accountID }

// Revoke blacklists a token's JTI
func (b *RedisTokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, jtiKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to add token to blacklist: %w", err)
	}
	return nil
}

// IsRevoked checks whether a JTI is blacklisted
func (b *RedisTokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := b.client.Exists(ctx, jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return exists > 0, nil
}

// RevokeAccount stores the revocation timestamp; older tokens are rejected
func (b *RedisTokenBlacklist) RevokeAccount(ctx context.Context, accountID string, ttl time.Duration) error {
	if err := b.client.Set(ctx, accountKey(accountID), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke account tokens: %w", err)
	}
	return nil
}

// IsAccountRevoked compares the token's issue time with the revocation timestamp
func (b *RedisTokenBlacklist) IsAccountRevoked(ctx context.Context, accountID string, issuedAt time.Time) (bool, error) {
	raw, err := b.client.Get(ctx, accountKey(accountID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check account revocation: %w", err)
	}
	revokedAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse revocation timestamp: %w", err)
	}
	return issuedAt.Unix() < revokedAt, nil
}

var _ TokenBlacklist = (*RedisTokenBlacklist)(nil)

// InMemoryTokenBlacklist keeps revocations in process memory.
// Only suitable for a single instance and for tests.
type InMemoryTokenBlacklist struct {
	mu       sync.Mutex
	jtis     map[string]time.Time // JTI -> entry expiry
	accounts map[string]time.Time // accountID -> revocation time
	now      func() time.Time
}

// NewInMemoryTokenBlacklist creates an empty in-memory blacklist
func NewInMemoryTokenBlacklist() *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{
		jtis:     make(map[string]time.Time),
		accounts: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Revoke blacklists a token's JTI until ttl elapses
func (b *InMemoryTokenBlacklist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jtis[jti] = b.now().Add(ttl)
	return nil
}

// IsRevoked checks whether a JTI is blacklisted and drops expired entries
func (b *InMemoryTokenBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	expiry, ok := b.jtis[jti]
	if !ok {
		return false, nil
	}
	if b.now().After(expiry) {
		delete(b.jtis, jti)
		return false, nil
	}
	return true, nil
}

// RevokeAccount records the revocation time of the account
func (b *InMemoryTokenBlacklist) RevokeAccount(_ context.Context, accountID string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[accountID] = b.now()
	return nil
}

// IsAccountRevoked reports whether issuedAt falls in a second before the revocation
func (b *InMemoryTokenBlacklist) IsAccountRevoked(_ context.Context, accountID string, issuedAt time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	revokedAt, ok := b.accounts[accountID]
	if !ok {
		return false, nil
	}
	return issuedAt.Unix() < revokedAt.Unix(), nil
}

var _ TokenBlacklist = (*InMemoryTokenBlacklist)(nil)
