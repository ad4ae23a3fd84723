package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries identity and audit timestamps
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity stamps a fresh identity at the current time
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// AggregateRoot records the domain events raised by a consistency boundary
// until the unit of work drains them
type AggregateRoot interface {
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
	PullDomainEvents() []DomainEvent
}

// BaseAggregateRoot is embedded by every aggregate. Version starts at 1 and
// moves with each mutation. Repositories update a row only while it still
// carries the persisted version.
type BaseAggregateRoot struct {
	BaseEntity
	Version   int
	persisted int
	pending   []DomainEvent
}

func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

func (a *BaseAggregateRoot) GetVersion() int { return a.Version }

// PersistedVersion is the version storage held when the aggregate was last
// loaded or written; zero until then
func (a *BaseAggregateRoot) PersistedVersion() int { return a.persisted }

// MarkPersisted records that storage now holds the current version
func (a *BaseAggregateRoot) MarkPersisted() { a.persisted = a.Version }

// Touch marks a mutation made at now
func (a *BaseAggregateRoot) Touch(now time.Time) {
	a.UpdatedAt = now
	a.Version++
}

func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// GetDomainEvents returns the pending events without clearing them
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent { return a.pending }

func (a *BaseAggregateRoot) ClearDomainEvents() { a.pending = nil }

// PullDomainEvents hands the pending events over and clears them
func (a *BaseAggregateRoot) PullDomainEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}
