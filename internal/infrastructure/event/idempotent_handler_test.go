package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockEventHandler struct {
	mock.Mock
}

func (m *MockEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventHandler) EventTypes() []string {
	return m.Called().Get(0).([]string)
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

// outcomeCounter is a DeliveryRecorder keyed by outcome
type outcomeCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *outcomeCounter) EventDelivered(_, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[outcome]++
}

func (c *outcomeCounter) get(outcome string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[outcome]
}

func TestIdempotentHandler_DeliversOnce(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := new(MockEventHandler)
	event := newTestEvent("account.registered")
	inner.On("Handle", mock.Anything, event).Return(nil).Once()

	outcomes := &outcomeCounter{}
	h := NewIdempotentHandler(inner, store, zap.NewNop(), WithDeliveryRecorder(outcomes))
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	inner.AssertExpectations(t)
	assert.Equal(t, 1, outcomes.get(DeliveryHandled))
	assert.Equal(t, 1, outcomes.get(DeliveryDuplicate))
}

func TestIdempotentHandler_DistinctEventsBothDelivered(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := new(MockEventHandler)
	inner.On("Handle", mock.Anything, mock.Anything).Return(nil).Twice()

	h := NewIdempotentHandler(inner, store, zap.NewNop())
	require.NoError(t, h.Handle(context.Background(), newTestEvent("stash.created")))
	require.NoError(t, h.Handle(context.Background(), newTestEvent("stash.created")))

	inner.AssertExpectations(t)
}

func TestIdempotentHandler_FailureReleasesClaim(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	boom := errors.New("mailer down")
	inner := new(MockEventHandler)
	event := newTestEvent("account.registered")
	inner.On("Handle", mock.Anything, event).Return(boom).Once()
	inner.On("Handle", mock.Anything, event).Return(nil).Once()

	outcomes := &outcomeCounter{}
	h := NewIdempotentHandler(inner, store, zap.NewNop(), WithDeliveryRecorder(outcomes))
	assert.ErrorIs(t, h.Handle(context.Background(), event), boom)
	assert.NoError(t, h.Handle(context.Background(), event), "redelivery runs the handler again")
	assert.NoError(t, h.Handle(context.Background(), event))

	inner.AssertExpectations(t)
	assert.Equal(t, 1, outcomes.get(DeliveryFailed))
	assert.Equal(t, 1, outcomes.get(DeliveryHandled))
	assert.Equal(t, 1, outcomes.get(DeliveryDuplicate))
}

func TestIdempotentHandler_StoreErrorStillDelivers(t *testing.T) {
	store := new(MockIdempotencyStore)
	event := newTestEvent("ingestion.logged")
	store.On("MarkProcessed", mock.Anything, event.EventID().String(), time.Hour).
		Return(false, errors.New("redis unavailable"))

	inner := new(MockEventHandler)
	inner.On("Handle", mock.Anything, event).Return(nil).Once()

	h := NewIdempotentHandler(inner, store, zap.NewNop(), WithDedupWindow(time.Hour))
	require.NoError(t, h.Handle(context.Background(), event))

	inner.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestIdempotentHandler_ZeroWindowDisables(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := new(MockEventHandler)
	event := newTestEvent("ingestion.logged")
	inner.On("Handle", mock.Anything, event).Return(nil).Twice()

	h := NewIdempotentHandler(inner, store, zap.NewNop(), WithDedupWindow(0))
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	inner.AssertExpectations(t)
	store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdempotentHandler_ConcurrentRedelivery(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := new(MockEventHandler)
	event := newTestEvent("stash.withdrawn")
	inner.On("Handle", mock.Anything, event).Return(nil).Once()

	outcomes := &outcomeCounter{}
	h := NewIdempotentHandler(inner, store, zap.NewNop(), WithDeliveryRecorder(outcomes))

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.Handle(context.Background(), event))
		}()
	}
	wg.Wait()

	inner.AssertExpectations(t)
	assert.Equal(t, 1, outcomes.get(DeliveryHandled))
	assert.Equal(t, n-1, outcomes.get(DeliveryDuplicate))
}

func TestIdempotentHandler_ForwardsEventTypes(t *testing.T) {
	inner := new(MockEventHandler)
	inner.On("EventTypes").Return([]string{"account.registered"})

	h := NewIdempotentHandler(inner, new(MockIdempotencyStore), zap.NewNop())
	assert.Equal(t, []string{"account.registered"}, h.EventTypes())
}
