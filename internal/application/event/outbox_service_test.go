package event

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryOutbox is an in-memory shared.OutboxRepository
type memoryOutbox struct {
	entries map[uuid.UUID]*shared.OutboxEntry
	updates int
}

func newMemoryOutbox() *memoryOutbox {
	return &memoryOutbox{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *memoryOutbox) add(status shared.OutboxStatus, eventType string) *shared.OutboxEntry {
	now := time.Now()
	e := &shared.OutboxEntry{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     eventType,
		AggregateID:   uuid.New(),
		AggregateType: "Ingestion",
		Status:        status,
		MaxRetries:    shared.DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if status == shared.OutboxStatusDead {
		e.RetryCount = shared.DefaultMaxRetries
		e.LastError = "kafka: broker unreachable"
	}
	r.entries[e.ID] = e
	return e
}

func (r *memoryOutbox) Save(_ context.Context, entries ...*shared.OutboxEntry) error {
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *memoryOutbox) FindPending(context.Context, int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memoryOutbox) FindRetryable(context.Context, time.Time, int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memoryOutbox) FindDead(_ context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	var dead []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusDead {
			dead = append(dead, e)
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i].ID.String() < dead[j].ID.String() })

	start := (page - 1) * pageSize
	if start >= len(dead) {
		return nil, int64(len(dead)), nil
	}
	end := min(start+pageSize, len(dead))
	return dead[start:end], int64(len(dead)), nil
}

func (r *memoryOutbox) FindByID(_ context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryOutbox) MarkProcessing(context.Context, []uuid.UUID) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memoryOutbox) Update(_ context.Context, entry *shared.OutboxEntry) error {
	r.updates++
	r.entries[entry.ID] = entry
	return nil
}

func (r *memoryOutbox) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *memoryOutbox) CountByStatus(context.Context) (map[shared.OutboxStatus]int64, error) {
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func TestOutboxService_ListDead(t *testing.T) {
	repo := newMemoryOutbox()
	service := NewOutboxService(repo, zap.NewNop())
	for range 5 {
		repo.add(shared.OutboxStatusDead, "ingestion.logged")
	}
	repo.add(shared.OutboxStatusPending, "stash.created")

	result, err := service.ListDead(context.Background(), OutboxFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Total)
	assert.Equal(t, 3, result.TotalPages)
	require.Len(t, result.Entries, 2)
	for _, entry := range result.Entries {
		assert.Equal(t, "DEAD", entry.Status)
		assert.Equal(t, "kafka: broker unreachable", entry.LastError)
	}

	result, err = service.ListDead(context.Background(), OutboxFilter{PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, result.PageSize)
	assert.Equal(t, 1, result.Page)
}

func TestOutboxService_Retry(t *testing.T) {
	repo := newMemoryOutbox()
	service := NewOutboxService(repo, zap.NewNop())
	dead := repo.add(shared.OutboxStatusDead, "account.deleted")

	result, err := service.Retry(context.Background(), dead.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", result.Status)
	assert.Zero(t, result.RetryCount)
	assert.Empty(t, result.LastError)
	assert.Equal(t, 1, repo.updates)
}

func TestOutboxService_Retry_Rejects(t *testing.T) {
	repo := newMemoryOutbox()
	service := NewOutboxService(repo, zap.NewNop())

	_, err := service.Retry(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrEntryNotFound)

	pending := repo.add(shared.OutboxStatusPending, "stash.created")
	_, err = service.Retry(context.Background(), pending.ID)
	assert.ErrorIs(t, err, ErrEntryNotDead)
	assert.Zero(t, repo.updates)
}

func TestOutboxService_RetryAllDead(t *testing.T) {
	repo := newMemoryOutbox()
	service := NewOutboxService(repo, zap.NewNop())
	for range retryBatchSize + 7 {
		repo.add(shared.OutboxStatusDead, "ingestion.logged")
	}
	pending := repo.add(shared.OutboxStatusPending, "stash.created")

	count, err := service.RetryAllDead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(retryBatchSize+7), count)

	for _, entry := range repo.entries {
		assert.Equal(t, shared.OutboxStatusPending, entry.Status)
		if entry.ID != pending.ID {
			assert.Zero(t, entry.RetryCount)
		}
	}
}

func TestOutboxService_Stats(t *testing.T) {
	repo := newMemoryOutbox()
	service := NewOutboxService(repo, zap.NewNop())
	for _, status := range []shared.OutboxStatus{
		shared.OutboxStatusPending,
		shared.OutboxStatusPending,
		shared.OutboxStatusProcessing,
		shared.OutboxStatusSent,
		shared.OutboxStatusSent,
		shared.OutboxStatusSent,
		shared.OutboxStatusFailed,
		shared.OutboxStatusDead,
	} {
		repo.add(status, "ingestion.logged")
	}

	stats, err := service.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Processing)
	assert.Equal(t, int64(3), stats.Sent)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Dead)
	assert.Equal(t, int64(8), stats.Total)
}
