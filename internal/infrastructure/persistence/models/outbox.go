package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/shared"
)

// OutboxEntryModel maps the outbox_events table. Its fields mirror
// shared.OutboxEntry one to one so the two convert directly.
type OutboxEntryModel struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	EventID       uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex"`
	EventType     string              `gorm:"type:varchar(255);not null"`
	AggregateID   uuid.UUID           `gorm:"type:uuid;not null;index"`
	AggregateType string              `gorm:"type:varchar(255);not null"`
	Payload       []byte              `gorm:"type:jsonb;not null"`
	Status        shared.OutboxStatus `gorm:"type:varchar(20);default:PENDING;index:idx_outbox_status_created,priority:1"`
	RetryCount    int                 `gorm:"default:0"`
	MaxRetries    int                 `gorm:"default:5"`
	LastError     string              `gorm:"type:text"`
	NextRetryAt   *time.Time          `gorm:"index:idx_outbox_next_retry"`
	ProcessedAt   *time.Time
	CreatedAt     time.Time           `gorm:"not null;index:idx_outbox_status_created,priority:2"`
	UpdatedAt     time.Time           `gorm:"not null"`
}

func (OutboxEntryModel) TableName() string {
	return "outbox_events"
}

func (m *OutboxEntryModel) ToDomain() *shared.OutboxEntry {
	e := shared.OutboxEntry(*m)
	return &e
}

func (m *OutboxEntryModel) FromDomain(e *shared.OutboxEntry) {
	*m = OutboxEntryModel(*e)
}

// OutboxEntryModelFromDomain copies a domain entry into a new model
func OutboxEntryModelFromDomain(e *shared.OutboxEntry) *OutboxEntryModel {
	m := OutboxEntryModel(*e)
	return &m
}

// OutboxEntriesToDomain converts a slice of models
func OutboxEntriesToDomain(ms []OutboxEntryModel) []*shared.OutboxEntry {
	out := make([]*shared.OutboxEntry, len(ms))
	for i := range ms {
		out[i] = ms[i].ToDomain()
	}
	return out
}
