package event

import (
	"context"
	"fmt"

	"github.com/neuronek/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher writes domain events to the outbox inside a business transaction
type OutboxPublisher struct {
	serializer *EventSerializer
}

// NewOutboxPublisher creates a new outbox publisher
func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{
		serializer: serializer,
	}
}

// PublishWithTx stores events with tx so they commit or roll back with the aggregate changes
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return err
		}
		entries = append(entries, shared.NewOutboxEntry(event, payload))
	}

	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

// SaveEvents implements shared.OutboxEventSaver; txProvider must be a *gorm.DB
func (p *OutboxPublisher) SaveEvents(ctx context.Context, txProvider any, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("txProvider must be a *gorm.DB, got %T", txProvider)
	}
	return p.PublishWithTx(ctx, tx, events...)
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)
