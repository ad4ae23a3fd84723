package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvent struct {
	BaseDomainEvent
}

func newEntry() *OutboxEntry {
	e := &stubEvent{BaseDomainEvent: NewBaseDomainEvent("stash.withdrawn", "Stash", uuid.New())}
	return NewOutboxEntry(e, []byte(`{}`))
}

func TestNewOutboxEntry(t *testing.T) {
	entry := newEntry()

	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, "stash.withdrawn", entry.EventType)
	assert.Equal(t, "Stash", entry.AggregateType)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
	assert.Zero(t, entry.RetryCount)
	assert.Equal(t, entry.CreatedAt, entry.UpdatedAt)
}

func TestOutboxEntry_MarkFailedUntilDead(t *testing.T) {
	entry := newEntry()
	entry.MaxRetries = 3

	entry.MarkFailed("broker down")
	assert.Equal(t, OutboxStatusFailed, entry.Status)
	require.NotNil(t, entry.NextRetryAt)
	assert.WithinDuration(t, time.Now().Add(2*time.Second), *entry.NextRetryAt, 200*time.Millisecond)

	entry.MarkFailed("broker down")
	assert.Equal(t, OutboxStatusFailed, entry.Status)
	assert.WithinDuration(t, time.Now().Add(4*time.Second), *entry.NextRetryAt, 200*time.Millisecond)

	entry.MarkFailed("still down")
	assert.True(t, entry.IsDead())
	assert.Nil(t, entry.NextRetryAt)
	assert.Equal(t, 3, entry.RetryCount)
	assert.Equal(t, "still down", entry.LastError)
}

func TestOutboxEntry_MarkSent(t *testing.T) {
	entry := newEntry()
	entry.MarkSent()

	assert.Equal(t, OutboxStatusSent, entry.Status)
	require.NotNil(t, entry.ProcessedAt)
	assert.False(t, entry.IsDead())
}

func TestOutboxEntry_ResetForRetry(t *testing.T) {
	entry := newEntry()
	entry.MaxRetries = 1
	entry.MarkFailed("x")
	require.True(t, entry.IsDead())

	require.NoError(t, entry.ResetForRetry())
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Zero(t, entry.RetryCount)
	assert.Empty(t, entry.LastError)
	assert.Nil(t, entry.NextRetryAt)

	for _, status := range []OutboxStatus{OutboxStatusPending, OutboxStatusProcessing, OutboxStatusSent, OutboxStatusFailed} {
		entry.Status = status
		assert.ErrorIs(t, entry.ResetForRetry(), ErrOutboxNotDead, status)
	}
}

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, time.Second, RetryBackoff(0))
	assert.Equal(t, 2*time.Second, RetryBackoff(1))
	assert.Equal(t, 8*time.Second, RetryBackoff(3))
	assert.Equal(t, 32*time.Second, RetryBackoff(5))
	assert.Equal(t, MaxBackoff, RetryBackoff(30))
}
