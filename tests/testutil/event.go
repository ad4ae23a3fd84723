package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neuronek/backend/internal/domain/shared"
)

// RecordingHandler is a shared.EventHandler that keeps every event it sees
type RecordingHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewRecordingHandler creates a handler subscribed to the given event types
func NewRecordingHandler(eventTypes ...string) *RecordingHandler {
	return &RecordingHandler{eventTypes: eventTypes}
}

// EventTypes returns the event types this handler subscribes to.
func (h *RecordingHandler) EventTypes() []string {
	return h.eventTypes
}

// Handle records the event and returns the configured error
func (h *RecordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

// Handled returns a copy of the recorded events
func (h *RecordingHandler) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]shared.DomainEvent, len(h.handled))
	copy(out, h.handled)
	return out
}

// HandledTypes returns the types of the recorded events in order
func (h *RecordingHandler) HandledTypes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.handled))
	for _, e := range h.handled {
		out = append(out, e.EventType())
	}
	return out
}

// HandledCount returns the number of recorded events
func (h *RecordingHandler) HandledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

// SetError makes subsequent Handle calls fail with err
func (h *RecordingHandler) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// Reset clears the recorded events and the configured error
func (h *RecordingHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = nil
	h.err = nil
}

// TestEvent is a minimal domain event
type TestEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

// NewTestEvent creates an event of the given type on a fresh aggregate
func NewTestEvent(eventType string) *TestEvent {
	return NewTestEventWithID(uuid.New(), eventType)
}

// NewTestEventWithID creates an event with a fixed event ID, useful for
// exercising idempotent handlers
func NewTestEventWithID(eventID uuid.UUID, eventType string) *TestEvent {
	return &TestEvent{
		BaseDomainEvent: shared.BaseDomainEvent{
			ID:        eventID,
			Type:      eventType,
			Timestamp: time.Now(),
			AggID:     uuid.New(),
			AggType:   "TestAggregate",
		},
		Data: "test-data",
	}
}
