package event

import (
	"context"
	"time"

	"github.com/neuronek/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultDedupWindow is how long a delivered event ID is remembered
const DefaultDedupWindow = 24 * time.Hour

// Delivery outcomes reported to a DeliveryRecorder
const (
	DeliveryHandled   = "handled"
	DeliveryDuplicate = "duplicate"
	DeliveryFailed    = "failed"
)

// DeliveryRecorder observes what the deduplicating wrapper did with an event
type DeliveryRecorder interface {
	EventDelivered(eventType, outcome string)
}

// IdempotentHandler passes each event ID to the wrapped handler at most once
// per dedup window. The outbox relay redelivers after crashes and the bus may
// run several processors, so handlers with side effects (mail, cascades)
// sit behind it.
type IdempotentHandler struct {
	next     shared.EventHandler
	store    shared.IdempotencyStore
	window   time.Duration
	recorder DeliveryRecorder
	logger   *zap.Logger
}

// IdempotentOption configures an IdempotentHandler
type IdempotentOption func(*IdempotentHandler)

// WithDedupWindow overrides DefaultDedupWindow; zero turns deduplication off
func WithDedupWindow(window time.Duration) IdempotentOption {
	return func(h *IdempotentHandler) {
		h.window = window
	}
}

// WithDeliveryRecorder reports every outcome to r
func WithDeliveryRecorder(r DeliveryRecorder) IdempotentOption {
	return func(h *IdempotentHandler) {
		h.recorder = r
	}
}

// NewIdempotentHandler wraps next with an event-ID check against store
func NewIdempotentHandler(next shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentOption) *IdempotentHandler {
	h := &IdempotentHandler{
		next:   next,
		store:  store,
		window: DefaultDedupWindow,
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes forwards the wrapped handler's subscriptions
func (h *IdempotentHandler) EventTypes() []string {
	return h.next.EventTypes()
}

// Handle claims the event ID and delivers the event if the claim is new.
// A failing store lets the event through. A failing handler gives its claim
// back so a redelivery runs it again.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.window <= 0 {
		return h.next.Handle(ctx, event)
	}

	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
	}

	claimed, err := h.store.MarkProcessed(ctx, event.EventID().String(), h.window)
	switch {
	case err != nil:
		h.logger.Warn("Dedup store unavailable, delivering anyway", append(fields, zap.Error(err))...)
	case !claimed:
		h.record(event, DeliveryDuplicate)
		h.logger.Debug("Duplicate event dropped", fields...)
		return nil
	}

	if err := h.next.Handle(ctx, event); err != nil {
		h.record(event, DeliveryFailed)
		h.logger.Error("Event handler failed", append(fields, zap.Error(err))...)
		if claimed {
			if rerr := h.store.Release(context.WithoutCancel(ctx), event.EventID().String()); rerr != nil {
				h.logger.Warn("Failed to release dedup claim", append(fields, zap.Error(rerr))...)
			}
		}
		return err
	}
	h.record(event, DeliveryHandled)
	return nil
}

func (h *IdempotentHandler) record(event shared.DomainEvent, outcome string) {
	if h.recorder != nil {
		h.recorder.EventDelivered(event.EventType(), outcome)
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
