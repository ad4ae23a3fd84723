package event

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/neuronek/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Metrics receives bus-level counters. telemetry.BusinessMetrics implements it.
type Metrics interface {
	EventPublished(eventType string)
	HandlerFailed(eventType string)
}

type noopMetrics struct{}

func (noopMetrics) EventPublished(string) {}
func (noopMetrics) HandlerFailed(string)  {}

// InMemoryEventBus dispatches events synchronously to subscribed handlers.
// There is no retry and no ordering guarantee beyond the order of Publish calls.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	outboxes []shared.TransactionalOutbox
	metrics  Metrics
	logger   *zap.Logger
	running  atomic.Bool
}

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithOutbox attaches transactional outboxes whose hooks run around every emission
func WithOutbox(outboxes ...shared.TransactionalOutbox) BusOption {
	return func(b *InMemoryEventBus) {
		for _, o := range outboxes {
			if o != nil {
				b.outboxes = append(b.outboxes, o)
			}
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) BusOption {
	return func(b *InMemoryEventBus) {
		if m != nil {
			b.metrics = m
		}
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	b := &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		metrics:  noopMetrics{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish emits each event. Handler failures are logged and swallowed;
// outbox hook failures are collected and returned.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var errs []error
	for _, event := range events {
		if err := b.emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishAll emits events in order and stops at the first failure
func (b *InMemoryEventBus) PublishAll(ctx context.Context, events []shared.DomainEvent) error {
	for _, event := range events {
		if err := b.emit(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (b *InMemoryEventBus) emit(ctx context.Context, event shared.DomainEvent) error {
	for _, o := range b.outboxes {
		if err := o.Inbound(ctx, event); err != nil {
			return fmt.Errorf("outbox inbound %s: %w", event.EventType(), err)
		}
	}

	handlers := b.registry.Handlers(event.EventType())
	if len(handlers) == 0 {
		b.logger.Warn("no handler subscribed for event",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()),
		)
	}

	for _, handler := range handlers {
		if err := b.dispatch(ctx, handler, event); err != nil {
			b.metrics.HandlerFailed(event.EventType())
			b.logger.Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
		}
	}

	for _, o := range b.outboxes {
		if err := o.Outbound(ctx, event); err != nil {
			return fmt.Errorf("outbox outbound %s: %w", event.EventType(), err)
		}
	}

	b.metrics.EventPublished(event.EventType())
	return nil
}

// Subscribe registers a handler. Without explicit types the handler's own EventTypes are used.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start marks the bus as running
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started", zap.Int("outboxes", len(b.outboxes)))
	return nil
}

// Stop marks the bus as stopped. Dispatch is synchronous so nothing is in flight.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)
	b.logger.Info("event bus stopped")
	return nil
}

// Running reports whether Start has been called without a matching Stop
func (b *InMemoryEventBus) Running() bool {
	return b.running.Load()
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
