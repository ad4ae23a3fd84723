package journal

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Stash is an account's supply of a substance
type Stash struct {
	shared.BaseAggregateRoot
	AccountID     uuid.UUID
	SubstanceID   uuid.UUID
	SubstanceName string
	Amount        substance.Mass
	Purity        *decimal.Decimal // percent
	ExpiresAt     *time.Time
	ExpiredAt     *time.Time // set once the expiry sweep has seen the stash
	Notes         string
}

// StashParams carries the editable fields of a stash
type StashParams struct {
	Purity    *decimal.Decimal
	ExpiresAt *time.Time
	Notes     string
}

// NewStash creates a stash holding amount of sub
func NewStash(accountID uuid.UUID, sub *substance.Substance, amount substance.Mass, p StashParams) (*Stash, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if amount.Milligrams().IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Stash amount cannot be negative")
	}

	s := &Stash{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		AccountID:         accountID,
		SubstanceID:       sub.ID,
		SubstanceName:     sub.Name,
		Amount:            amount,
	}
	if err := s.apply(p); err != nil {
		return nil, err
	}

	s.AddDomainEvent(NewStashCreatedEvent(s))

	return s, nil
}

// Update replaces purity, expiry and notes
func (s *Stash) Update(p StashParams) error {
	if err := s.apply(p); err != nil {
		return err
	}
	s.touch()
	return nil
}

func (s *Stash) apply(p StashParams) error {
	if p.Purity != nil && (!p.Purity.IsPositive() || p.Purity.GreaterThan(hundred)) {
		return shared.NewDomainError("INVALID_PURITY", "Purity must be greater than 0 and at most 100 percent")
	}
	notes := strings.TrimSpace(p.Notes)
	if err := validateNotes(notes); err != nil {
		return err
	}

	s.Purity = p.Purity
	if p.ExpiresAt == nil || s.ExpiresAt == nil || !p.ExpiresAt.Equal(*s.ExpiresAt) {
		s.ExpiredAt = nil
	}
	s.ExpiresAt = p.ExpiresAt
	s.Notes = notes
	return nil
}

// Withdraw takes m out of the stash
func (s *Stash) Withdraw(m substance.Mass) error {
	if !m.Milligrams().IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Withdrawal must be greater than zero")
	}
	if s.Amount.Cmp(m) < 0 {
		return ErrStashInsufficient
	}

	s.Amount = s.Amount.Sub(m)
	s.touch()

	s.AddDomainEvent(NewStashWithdrawnEvent(s, m))

	return nil
}

// Deposit adds m to the stash
func (s *Stash) Deposit(m substance.Mass) error {
	if !m.Milligrams().IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Deposit must be greater than zero")
	}

	s.Amount = s.Amount.Add(m)
	s.touch()

	s.AddDomainEvent(NewStashDepositedEvent(s, m))

	return nil
}

// IsExpired reports whether the stash is past its expiry date
func (s *Stash) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// MarkExpired flags an expired stash once. Returns false if nothing changed.
func (s *Stash) MarkExpired(now time.Time) bool {
	if !s.IsExpired(now) || s.ExpiredAt != nil {
		return false
	}
	s.ExpiredAt = &now
	s.touch()

	s.AddDomainEvent(NewStashExpiredEvent(s))

	return true
}

// ActiveAmount is the amount of pure substance, when purity is known
func (s *Stash) ActiveAmount() substance.Mass {
	if s.Purity == nil {
		return s.Amount
	}
	return s.Amount.Mul(s.Purity.Div(hundred))
}

// IsOwnedBy reports whether the stash belongs to accountID
func (s *Stash) IsOwnedBy(accountID uuid.UUID) bool {
	return s.AccountID == accountID
}

// MarkDeleted records the deletion of the stash
func (s *Stash) MarkDeleted() {
	s.AddDomainEvent(NewStashDeletedEvent(s))
}

func (s *Stash) touch() {
	s.Touch(time.Now())
}
