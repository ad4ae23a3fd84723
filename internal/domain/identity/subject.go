package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var (
	maxWeightKg = decimal.NewFromInt(700)
	maxHeightCm = decimal.NewFromInt(300)
)

// Subject is the physiological profile of the person behind an account
type Subject struct {
	shared.BaseEntity
	AccountID   uuid.UUID
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	Weight      *decimal.Decimal // kilograms
	Height      *decimal.Decimal // centimetres
}

// NewSubject creates an empty profile for an account
func NewSubject(accountID uuid.UUID) *Subject {
	return &Subject{
		BaseEntity: shared.NewBaseEntity(),
		AccountID:  accountID,
	}
}

// SubjectUpdate carries the editable profile fields
type SubjectUpdate struct {
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	Weight      *decimal.Decimal
	Height      *decimal.Decimal
}

// Apply validates and applies an update
func (s *Subject) Apply(u SubjectUpdate) error {
	if len(u.FirstName) > 100 || len(u.LastName) > 100 {
		return shared.NewDomainError("INVALID_SUBJECT", "Names cannot exceed 100 characters")
	}
	if u.DateOfBirth != nil && u.DateOfBirth.After(time.Now()) {
		return shared.NewDomainError("INVALID_SUBJECT", "Date of birth cannot be in the future")
	}
	if u.Weight != nil && (!u.Weight.IsPositive() || u.Weight.GreaterThan(maxWeightKg)) {
		return shared.NewDomainError("INVALID_SUBJECT", "Weight must be between 0 and 700 kg")
	}
	if u.Height != nil && (!u.Height.IsPositive() || u.Height.GreaterThan(maxHeightCm)) {
		return shared.NewDomainError("INVALID_SUBJECT", "Height must be between 0 and 300 cm")
	}

	s.FirstName = u.FirstName
	s.LastName = u.LastName
	s.DateOfBirth = u.DateOfBirth
	s.Weight = u.Weight
	s.Height = u.Height
	s.UpdatedAt = time.Now()

	return nil
}

// WeightKg returns the weight when known
func (s *Subject) WeightKg() (decimal.Decimal, bool) {
	if s == nil || s.Weight == nil {
		return decimal.Zero, false
	}
	return *s.Weight, true
}
