package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry
type OutboxStatus string

// An entry starts PENDING, is claimed as PROCESSING and ends SENT. Failed
// deliveries go to FAILED until MaxRetries is reached and then to DEAD,
// where they stay until an operator resets them.
const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

// Retry policy for new entries
const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	MaxBackoff         = 10 * time.Minute
)

// ErrOutboxNotDead is returned when resetting an entry that is not dead
var ErrOutboxNotDead = errors.New("outbox: only dead entries can be reset")

// OutboxEntry is a serialized domain event awaiting relay to the bus
type OutboxEntry struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry wraps an already serialized event
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MarkSent records a successful relay
func (e *OutboxEntry) MarkSent() {
	now := time.Now()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a failed relay. The entry is scheduled again after
// RetryBackoff or becomes dead once its retries are used up.
func (e *OutboxEntry) MarkFailed(cause string) {
	now := time.Now()
	e.RetryCount++
	e.LastError = cause
	e.UpdatedAt = now

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	next := now.Add(RetryBackoff(e.RetryCount))
	e.NextRetryAt = &next
}

// RetryBackoff is 2^retries times DefaultBaseBackoff, capped at MaxBackoff
func RetryBackoff(retries int) time.Duration {
	backoff := DefaultBaseBackoff
	for i := 0; i < retries; i++ {
		backoff *= 2
		if backoff >= MaxBackoff {
			return MaxBackoff
		}
	}
	return backoff
}

// ResetForRetry puts a dead entry back in the queue with a fresh budget
func (e *OutboxEntry) ResetForRetry() error {
	if !e.IsDead() {
		return ErrOutboxNotDead
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = time.Now()
	return nil
}

// IsDead reports whether the entry exhausted its retries
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository persists outbox entries
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// FindRetryable returns failed entries whose NextRetryAt is before the given time
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)
	// MarkProcessing claims entries for one processor; entries claimed
	// concurrently by another processor are left out of the result
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	// DeleteOlderThan removes sent entries processed before the given time
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
