package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
		Data:            "payload",
	}
}

type testHandler struct {
	mu      sync.Mutex
	types   []string
	handled []shared.DomainEvent
	err     error
	panics  bool
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panics {
		panic("handler exploded")
	}
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.types }

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

// recordingOutbox logs hook calls into a shared trace
type recordingOutbox struct {
	trace       *[]string
	inboundErr  error
	outboundErr error
}

func (o *recordingOutbox) Inbound(_ context.Context, e shared.DomainEvent) error {
	*o.trace = append(*o.trace, "inbound:"+e.EventType())
	return o.inboundErr
}

func (o *recordingOutbox) Outbound(_ context.Context, e shared.DomainEvent) error {
	*o.trace = append(*o.trace, "outbound:"+e.EventType())
	return o.outboundErr
}

type traceHandler struct {
	trace *[]string
}

func (h *traceHandler) Handle(_ context.Context, e shared.DomainEvent) error {
	*h.trace = append(*h.trace, "handle:"+e.EventType())
	return nil
}

func (h *traceHandler) EventTypes() []string { return nil }

type countingMetrics struct {
	published map[string]int
	failed    map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{published: map[string]int{}, failed: map[string]int{}}
}

func (m *countingMetrics) EventPublished(t string) { m.published[t]++ }
func (m *countingMetrics) HandlerFailed(t string)  { m.failed[t]++ }

func TestInMemoryEventBus_DispatchesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	registered := &testHandler{types: []string{"account.registered"}}
	all := &testHandler{}
	bus.Subscribe(registered)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent("account.registered"),
		newTestEvent("stash.created"),
	))

	assert.Equal(t, 1, registered.count())
	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_OutboxHooksWrapHandlers(t *testing.T) {
	var trace []string
	bus := NewInMemoryEventBus(zap.NewNop(), WithOutbox(&recordingOutbox{trace: &trace}))
	bus.Subscribe(&traceHandler{trace: &trace}, "ingestion.logged")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("ingestion.logged")))

	assert.Equal(t, []string{
		"inbound:ingestion.logged",
		"handle:ingestion.logged",
		"outbound:ingestion.logged",
	}, trace)
}

func TestInMemoryEventBus_InboundErrorSkipsHandlers(t *testing.T) {
	var trace []string
	boom := errors.New("inbound rejected")
	bus := NewInMemoryEventBus(zap.NewNop(), WithOutbox(&recordingOutbox{trace: &trace, inboundErr: boom}))
	h := &testHandler{}
	bus.Subscribe(h)

	err := bus.Publish(context.Background(), newTestEvent("stash.created"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, h.count())
}

func TestInMemoryEventBus_HandlerErrorsAreSwallowed(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	metrics := newCountingMetrics()
	bus := NewInMemoryEventBus(zap.New(core), WithMetrics(metrics))

	failing := &testHandler{err: errors.New("nope")}
	panicking := &testHandler{panics: true}
	healthy := &testHandler{}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("role.created")))

	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, 2, metrics.failed["role.created"])
	assert.Equal(t, 1, metrics.published["role.created"])
	assert.Equal(t, 1, logs.FilterMessage("handler panicked").Len())
}

func TestInMemoryEventBus_WarnsWithoutSubscribers(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("stash.expired")))

	entries := logs.FilterMessage("no handler subscribed for event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "stash.expired", entries[0].ContextMap()["event_type"])
}

func TestInMemoryEventBus_PublishAllStopsAtFirstFailure(t *testing.T) {
	var trace []string
	outbox := &recordingOutbox{trace: &trace, outboundErr: errors.New("sink down")}
	bus := NewInMemoryEventBus(zap.NewNop(), WithOutbox(outbox))

	err := bus.PublishAll(context.Background(), []shared.DomainEvent{
		newTestEvent("a"),
		newTestEvent("b"),
	})
	require.Error(t, err)
	assert.Equal(t, []string{"inbound:a", "outbound:a"}, trace)

	trace = trace[:0]
	err = bus.Publish(context.Background(), newTestEvent("a"), newTestEvent("b"))
	require.Error(t, err)
	assert.Equal(t, []string{"inbound:a", "outbound:a", "inbound:b", "outbound:b"}, trace)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &testHandler{}
	fn := &shared.EventHandlerFunc{Fn: func(context.Context, shared.DomainEvent) error { return nil }}
	bus.Subscribe(h, "x", "y")
	bus.Subscribe(fn)

	bus.Unsubscribe(h)
	bus.Unsubscribe(fn)
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("x")))

	assert.Equal(t, 0, h.count())
	assert.False(t, bus.registry.HasSubscribers("x"))
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	assert.True(t, bus.Running())
	require.NoError(t, bus.Stop(context.Background()))
	assert.False(t, bus.Running())
}
