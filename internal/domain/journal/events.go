package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/domain/substance"
)

// Aggregate types of journal events
const (
	AggregateTypeIngestion = "Ingestion"
	AggregateTypeStash     = "Stash"
)

// Journal domain event types
const (
	EventTypeIngestionLogged  = "ingestion.logged"
	EventTypeIngestionUpdated = "ingestion.updated"
	EventTypeIngestionDeleted = "ingestion.deleted"
	EventTypeStashCreated     = "stash.created"
	EventTypeStashWithdrawn   = "stash.withdrawn"
	EventTypeStashDeposited   = "stash.deposited"
	EventTypeStashExpired     = "stash.expired"
	EventTypeStashDeleted     = "stash.deleted"
)

// IngestionEvent is published when a journal entry changes
type IngestionEvent struct {
	shared.BaseDomainEvent
	AccountID     uuid.UUID       `json:"account_id"`
	SubstanceName string          `json:"substance_name"`
	Route         substance.Route `json:"route"`
	Dosage        substance.Mass  `json:"dosage"`
	IngestedAt    time.Time       `json:"ingested_at"`
}

// NewIngestionLoggedEvent creates an ingestion.logged event
func NewIngestionLoggedEvent(i *Ingestion) *IngestionEvent {
	return newIngestionEvent(EventTypeIngestionLogged, i)
}

// NewIngestionUpdatedEvent creates an ingestion.updated event
func NewIngestionUpdatedEvent(i *Ingestion) *IngestionEvent {
	return newIngestionEvent(EventTypeIngestionUpdated, i)
}

// NewIngestionDeletedEvent creates an ingestion.deleted event
func NewIngestionDeletedEvent(i *Ingestion) *IngestionEvent {
	return newIngestionEvent(EventTypeIngestionDeleted, i)
}

func newIngestionEvent(eventType string, i *Ingestion) *IngestionEvent {
	return &IngestionEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeIngestion, i.ID),
		AccountID:       i.AccountID,
		SubstanceName:   i.SubstanceName,
		Route:           i.Route,
		Dosage:          i.Dosage,
		IngestedAt:      i.IngestedAt,
	}
}

// StashEvent is published when a stash changes; Delta is set for withdrawals and deposits
type StashEvent struct {
	shared.BaseDomainEvent
	AccountID     uuid.UUID       `json:"account_id"`
	SubstanceName string          `json:"substance_name"`
	Amount        substance.Mass  `json:"amount"`
	Delta         *substance.Mass `json:"delta,omitempty"`
}

// NewStashCreatedEvent creates a stash.created event
func NewStashCreatedEvent(s *Stash) *StashEvent {
	return newStashEvent(EventTypeStashCreated, s, nil)
}

// NewStashWithdrawnEvent creates a stash.withdrawn event
func NewStashWithdrawnEvent(s *Stash, m substance.Mass) *StashEvent {
	return newStashEvent(EventTypeStashWithdrawn, s, &m)
}

// NewStashDepositedEvent creates a stash.deposited event
func NewStashDepositedEvent(s *Stash, m substance.Mass) *StashEvent {
	return newStashEvent(EventTypeStashDeposited, s, &m)
}

// NewStashExpiredEvent creates a stash.expired event
func NewStashExpiredEvent(s *Stash) *StashEvent {
	return newStashEvent(EventTypeStashExpired, s, nil)
}

// NewStashDeletedEvent creates a stash.deleted event
func NewStashDeletedEvent(s *Stash) *StashEvent {
	return newStashEvent(EventTypeStashDeleted, s, nil)
}

func newStashEvent(eventType string, s *Stash, delta *substance.Mass) *StashEvent {
	return &StashEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeStash, s.ID),
		AccountID:       s.AccountID,
		SubstanceName:   s.SubstanceName,
		Amount:          s.Amount,
		Delta:           delta,
	}
}
