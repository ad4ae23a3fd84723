package substance

import "github.com/neuronek/backend/internal/domain/shared"

// AggregateTypeSubstance is the aggregate type of Substance events
const AggregateTypeSubstance = "Substance"

// Substance domain event types
const (
	EventTypeSubstanceCreated = "substance.created"
	EventTypeSubstanceUpdated = "substance.updated"
	EventTypeSubstanceDeleted = "substance.deleted"
)

// SubstanceEvent is published when a catalogue entry changes
type SubstanceEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
}

// NewSubstanceCreatedEvent creates a substance.created event
func NewSubstanceCreatedEvent(s *Substance) *SubstanceEvent {
	return newSubstanceEvent(EventTypeSubstanceCreated, s)
}

// NewSubstanceUpdatedEvent creates a substance.updated event
func NewSubstanceUpdatedEvent(s *Substance) *SubstanceEvent {
	return newSubstanceEvent(EventTypeSubstanceUpdated, s)
}

// NewSubstanceDeletedEvent creates a substance.deleted event
func NewSubstanceDeletedEvent(s *Substance) *SubstanceEvent {
	return newSubstanceEvent(EventTypeSubstanceDeleted, s)
}

func newSubstanceEvent(eventType string, s *Substance) *SubstanceEvent {
	return &SubstanceEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeSubstance, s.ID),
		Name:            s.Name,
	}
}
