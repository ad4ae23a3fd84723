package journal

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/domain/substance"
)

// MaxFutureSkew is how far ahead of now an ingestion may be scheduled
const MaxFutureSkew = 24 * time.Hour

// Ingestion is a journal entry recording that an account took a dose
type Ingestion struct {
	shared.BaseAggregateRoot
	AccountID               uuid.UUID
	SubstanceID             uuid.UUID
	SubstanceName           string
	Route                   substance.Route
	Dosage                  substance.Mass
	IsEstimatedDosage       bool
	DosageStandardDeviation *substance.Mass
	IngestedAt              time.Time
	StashID                 *uuid.UUID
	Notes                   string
}

// IngestionParams carries the fields of a new or updated ingestion
type IngestionParams struct {
	Route                   substance.Route
	Dosage                  substance.Mass
	IsEstimatedDosage       bool
	DosageStandardDeviation *substance.Mass
	IngestedAt              *time.Time // defaults to now
	Notes                   string
}

// NewIngestion records an ingestion of sub by accountID
func NewIngestion(accountID uuid.UUID, sub *substance.Substance, stashID *uuid.UUID, p IngestionParams, now time.Time) (*Ingestion, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}

	i := &Ingestion{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		AccountID:         accountID,
		SubstanceID:       sub.ID,
		SubstanceName:     sub.Name,
		StashID:           stashID,
	}
	if err := i.apply(p, now); err != nil {
		return nil, err
	}

	i.AddDomainEvent(NewIngestionLoggedEvent(i))

	return i, nil
}

// Update replaces the editable fields
func (i *Ingestion) Update(p IngestionParams, now time.Time) error {
	if err := i.apply(p, now); err != nil {
		return err
	}
	i.Touch(now)

	i.AddDomainEvent(NewIngestionUpdatedEvent(i))

	return nil
}

func (i *Ingestion) apply(p IngestionParams, now time.Time) error {
	route := p.Route
	if route == "" {
		route = substance.DefaultRoute
	}
	if !route.IsValid() {
		return substance.ErrInvalidRoute
	}
	if p.Dosage.Milligrams().IsNegative() || p.Dosage.IsZero() {
		return shared.NewDomainError("INVALID_DOSAGE", "Dosage must be greater than zero")
	}
	if p.DosageStandardDeviation != nil && p.DosageStandardDeviation.Milligrams().IsNegative() {
		return shared.NewDomainError("INVALID_DOSAGE", "Dosage deviation cannot be negative")
	}

	ingestedAt := now
	if p.IngestedAt != nil {
		ingestedAt = *p.IngestedAt
	}
	if ingestedAt.After(now.Add(MaxFutureSkew)) {
		return ErrIngestionInFuture
	}

	notes := strings.TrimSpace(p.Notes)
	if err := validateNotes(notes); err != nil {
		return err
	}

	i.Route = route
	i.Dosage = p.Dosage
	i.IsEstimatedDosage = p.IsEstimatedDosage
	i.DosageStandardDeviation = p.DosageStandardDeviation
	if !p.IsEstimatedDosage {
		i.DosageStandardDeviation = nil
	}
	i.IngestedAt = ingestedAt.UTC()
	i.Notes = notes
	return nil
}

// IsOwnedBy reports whether accountID logged the ingestion
func (i *Ingestion) IsOwnedBy(accountID uuid.UUID) bool {
	return i.AccountID == accountID
}

// MarkDeleted records the deletion of the ingestion
func (i *Ingestion) MarkDeleted() {
	i.AddDomainEvent(NewIngestionDeletedEvent(i))
}
