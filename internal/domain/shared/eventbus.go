package shared

import "context"

// EventHandler handles domain events
type EventHandler interface {
	// Handle processes a domain event
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes returns the event types this handler is interested in
	// An empty slice means the handler receives all events
	EventTypes() []string
}

// EventHandlerFunc adapts a function to the EventHandler interface.
// Subscribe it by pointer so that Unsubscribe can find it again.
type EventHandlerFunc struct {
	Types []string
	Fn    func(ctx context.Context, event DomainEvent) error
}

// Handle calls the wrapped function
func (f *EventHandlerFunc) Handle(ctx context.Context, event DomainEvent) error {
	return f.Fn(ctx, event)
}

// EventTypes returns the configured event types
func (f *EventHandlerFunc) EventTypes() []string {
	return f.Types
}

// EventPublisher publishes domain events
type EventPublisher interface {
	// Publish publishes one or more domain events
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber subscribes to domain events
type EventSubscriber interface {
	// Subscribe registers a handler for specific event types
	// If no event types are provided, the handler receives all events
	Subscribe(handler EventHandler, eventTypes ...string)
	// Unsubscribe removes a handler from the subscription list
	Unsubscribe(handler EventHandler)
}

// EventBus combines publisher and subscriber capabilities
type EventBus interface {
	EventPublisher
	EventSubscriber
	// PublishAll publishes events one after another and stops at the first failure
	PublishAll(ctx context.Context, events []DomainEvent) error
	// Start starts the event bus (e.g., background processing)
	Start(ctx context.Context) error
	// Stop gracefully stops the event bus
	Stop(ctx context.Context) error
}

// TransactionalOutbox is notified around every emission on the bus.
// Inbound runs before handlers see the event, Outbound after they returned.
type TransactionalOutbox interface {
	Inbound(ctx context.Context, event DomainEvent) error
	Outbound(ctx context.Context, event DomainEvent) error
}

// OutboxEventSaver saves domain events to the outbox table within a transaction
type OutboxEventSaver interface {
	// SaveEvents saves domain events to the outbox table within the current transaction
	// The txProvider should be a *gorm.DB transaction
	SaveEvents(ctx context.Context, txProvider any, events ...DomainEvent) error
}

// EventRecorder collects the domain events raised inside a unit of work
type EventRecorder interface {
	Record(ctx context.Context, events ...DomainEvent) error
}

// PublishingRecorder records events by publishing them right away
type PublishingRecorder struct {
	Publisher EventPublisher
}

// Record publishes events when a publisher is set
func (r PublishingRecorder) Record(ctx context.Context, events ...DomainEvent) error {
	if r.Publisher == nil || len(events) == 0 {
		return nil
	}
	return r.Publisher.Publish(ctx, events...)
}
