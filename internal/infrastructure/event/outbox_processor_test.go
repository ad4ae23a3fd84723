package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type outcomeRecorder struct {
	outcomes map[shared.OutboxStatus]int
}

func (r *outcomeRecorder) OutboxEntryProcessed(_ string, status shared.OutboxStatus) {
	r.outcomes[status]++
}

func newProcessorFixture(t *testing.T, opts ...BusOption) (*OutboxProcessor, *GormOutboxRepository, *EventSerializer, *InMemoryEventBus) {
	t.Helper()
	repo := NewGormOutboxRepository(setupSQLiteDB(t))
	serializer := NewEventSerializer()
	serializer.Register("account.registered", &testEvent{})
	bus := NewInMemoryEventBus(zap.NewNop(), opts...)
	cfg := DefaultOutboxProcessorConfig()
	cfg.MaxRetries = 2
	return NewOutboxProcessor(repo, bus, serializer, cfg, zap.NewNop()), repo, serializer, bus
}

func saveEvent(t *testing.T, repo *GormOutboxRepository, s *EventSerializer, e shared.DomainEvent) *shared.OutboxEntry {
	t.Helper()
	payload, err := s.Serialize(e)
	require.NoError(t, err)
	entry := shared.NewOutboxEntry(e, payload)
	require.NoError(t, repo.Save(context.Background(), entry))
	return entry
}

func TestOutboxProcessor_RelaysPendingEntries(t *testing.T) {
	p, repo, s, bus := newProcessorFixture(t)
	recorder := &outcomeRecorder{outcomes: map[shared.OutboxStatus]int{}}
	p.SetMetrics(recorder)

	h := &testHandler{types: []string{"account.registered"}}
	bus.Subscribe(h)

	entry := saveEvent(t, repo, s, newTestEvent("account.registered"))

	assert.Equal(t, 1, p.ProcessOnce(context.Background()))
	assert.Equal(t, 1, h.count())
	assert.Equal(t, 1, recorder.outcomes[shared.OutboxStatusSent])

	stored, err := repo.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusSent, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)

	assert.Equal(t, 0, p.ProcessOnce(context.Background()), "sent entries are not relayed again")
}

func TestOutboxProcessor_UnknownTypeGoesDead(t *testing.T) {
	p, repo, s, _ := newProcessorFixture(t)
	entry := saveEvent(t, repo, s, newTestEvent("never.registered"))
	ctx := context.Background()

	p.ProcessOnce(ctx)
	stored, err := repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, "unknown event type")

	// force the backoff to elapse
	past := time.Now().Add(-time.Minute)
	stored.NextRetryAt = &past
	require.NoError(t, repo.Update(ctx, stored))

	p.ProcessOnce(ctx)
	stored, err = repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusDead, stored.Status)
	assert.Equal(t, 2, stored.RetryCount)
}

func TestOutboxProcessor_OutboundFailureIsRetried(t *testing.T) {
	var trace []string
	sink := &recordingOutbox{trace: &trace, outboundErr: errors.New("broker unavailable")}
	p, repo, s, _ := newProcessorFixture(t, WithOutbox(sink))
	entry := saveEvent(t, repo, s, newTestEvent("account.registered"))

	p.ProcessOnce(context.Background())

	stored, err := repo.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	require.NotNil(t, stored.NextRetryAt)
	assert.True(t, stored.NextRetryAt.After(time.Now()))
}

func TestOutboxProcessor_StartStop(t *testing.T) {
	p, repo, s, bus := newProcessorFixture(t)
	p.config.PollInterval = 10 * time.Millisecond
	h := &testHandler{}
	bus.Subscribe(h)
	saveEvent(t, repo, s, newTestEvent("account.registered"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Start(ctx))

	assert.Eventually(t, func() bool { return h.count() == 1 }, time.Second, 10*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, p.Stop(stopCtx))
}

func TestOutboxProcessor_Cleanup(t *testing.T) {
	p, repo, s, _ := newProcessorFixture(t)
	p.config.CleanupRetention = -time.Minute
	ctx := context.Background()

	entry := saveEvent(t, repo, s, newTestEvent("account.registered"))
	p.ProcessOnce(ctx)

	deleted, err := p.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByID(ctx, entry.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOutboxProcessorConfigFrom(t *testing.T) {
	cfg := OutboxProcessorConfigFrom(config.EventConfig{
		BatchSize:        25,
		PollInterval:     time.Second,
		MaxRetries:       7,
		CleanupEnabled:   true,
		CleanupRetention: time.Hour,
	}, true)

	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, time.Hour, cfg.CleanupRetention)
	assert.False(t, cfg.CleanupEnabled, "scheduler owns cleanup")

	assert.True(t, OutboxProcessorConfigFrom(config.EventConfig{CleanupEnabled: true}, false).CleanupEnabled)
	assert.Equal(t, 100, OutboxProcessorConfigFrom(config.EventConfig{}, false).BatchSize)
}
