package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/shared"
)

// AggregateTypeAccount is the aggregate type of Account events
const AggregateTypeAccount = "Account"

// Account domain event types
const (
	EventTypeAccountRegistered      = "account.registered"
	EventTypeAccountEmailVerified   = "account.email_verified"
	EventTypeAccountEmailChanged    = "account.email_changed"
	EventTypeAccountPasswordChanged = "account.password_changed"
	EventTypeAccountRolesChanged    = "account.roles_changed"
	EventTypeAccountDeleted         = "account.deleted"
)

// AccountRegisteredEvent is published when an account registers
type AccountRegisteredEvent struct {
	shared.BaseDomainEvent
	Username string `json:"username"`
	Email    string `json:"email"`
}

// NewAccountRegisteredEvent creates a new AccountRegisteredEvent
func NewAccountRegisteredEvent(a *Account) *AccountRegisteredEvent {
	return &AccountRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountRegistered, AggregateTypeAccount, a.ID),
		Username:        a.Username,
		Email:           a.Email,
	}
}

// AccountEmailVerifiedEvent is published when the email is confirmed
type AccountEmailVerifiedEvent struct {
	shared.BaseDomainEvent
	Email      string    `json:"email"`
	VerifiedAt time.Time `json:"verified_at"`
}

// NewAccountEmailVerifiedEvent creates a new AccountEmailVerifiedEvent
func NewAccountEmailVerifiedEvent(a *Account) *AccountEmailVerifiedEvent {
	verifiedAt := time.Now()
	if a.EmailVerifiedAt != nil {
		verifiedAt = *a.EmailVerifiedAt
	}
	return &AccountEmailVerifiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountEmailVerified, AggregateTypeAccount, a.ID),
		Email:           a.Email,
		VerifiedAt:      verifiedAt,
	}
}

// AccountEmailChangedEvent is published when the email address changes
type AccountEmailChangedEvent struct {
	shared.BaseDomainEvent
	Email string `json:"email"`
}

// NewAccountEmailChangedEvent creates a new AccountEmailChangedEvent
func NewAccountEmailChangedEvent(a *Account) *AccountEmailChangedEvent {
	return &AccountEmailChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountEmailChanged, AggregateTypeAccount, a.ID),
		Email:           a.Email,
	}
}

// AccountPasswordChangedEvent is published when the password changes
type AccountPasswordChangedEvent struct {
	shared.BaseDomainEvent
	ChangedAt time.Time `json:"changed_at"`
}

// NewAccountPasswordChangedEvent creates a new AccountPasswordChangedEvent
func NewAccountPasswordChangedEvent(a *Account) *AccountPasswordChangedEvent {
	changedAt := time.Now()
	if a.PasswordChangedAt != nil {
		changedAt = *a.PasswordChangedAt
	}
	return &AccountPasswordChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountPasswordChanged, AggregateTypeAccount, a.ID),
		ChangedAt:       changedAt,
	}
}

// AccountRolesChangedEvent is published when the role assignment is replaced
type AccountRolesChangedEvent struct {
	shared.BaseDomainEvent
	RoleIDs []uuid.UUID `json:"role_ids"`
}

// NewAccountRolesChangedEvent creates a new AccountRolesChangedEvent
func NewAccountRolesChangedEvent(a *Account) *AccountRolesChangedEvent {
	return &AccountRolesChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountRolesChanged, AggregateTypeAccount, a.ID),
		RoleIDs:         append([]uuid.UUID(nil), a.RoleIDs...),
	}
}

// AccountDeletedEvent is published when an account is deleted
type AccountDeletedEvent struct {
	shared.BaseDomainEvent
	Username string `json:"username"`
}

// NewAccountDeletedEvent creates a new AccountDeletedEvent
func NewAccountDeletedEvent(a *Account) *AccountDeletedEvent {
	return &AccountDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountDeleted, AggregateTypeAccount, a.ID),
		Username:        a.Username,
	}
}
