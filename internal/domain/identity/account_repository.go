package identity

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	// Create creates a new account
	Create(ctx context.Context, account *Account) error

	// Update updates an existing account
	Update(ctx context.Context, account *Account) error

	// Delete deletes an account and its role assignments
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByID finds an account by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByUsername finds an account by normalized username
	FindByUsername(ctx context.Context, username string) (*Account, error)

	// FindByEmail finds an account by normalized email
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// FindAll returns accounts with pagination
	FindAll(ctx context.Context, filter AccountFilter) ([]*Account, int64, error)

	// ExistsByUsername checks if a username already exists
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail checks if an email already exists
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// SaveAccountRoles replaces the account's role assignments
	SaveAccountRoles(ctx context.Context, account *Account) error
}

// AccountFilter contains filter options for querying accounts
type AccountFilter struct {
	// Search keyword for username or email
	Keyword string

	Status *AccountStatus
	RoleID *uuid.UUID

	Page     int
	PageSize int

	SortBy    string
	SortOrder string // "asc" or "desc"
}

// NewAccountFilter creates a new AccountFilter with default values
func NewAccountFilter() AccountFilter {
	return AccountFilter{
		Page:      1,
		PageSize:  20,
		SortBy:    "created_at",
		SortOrder: "desc",
	}
}

// Offset returns the offset for pagination
func (f AccountFilter) Offset() int {
	if f.Page <= 0 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}

// Limit returns the limit for pagination
func (f AccountFilter) Limit() int {
	if f.PageSize <= 0 {
		return 20
	}
	if f.PageSize > 100 {
		return 100
	}
	return f.PageSize
}

// SubjectRepository persists subject profiles, one per account
type SubjectRepository interface {
	FindByAccountID(ctx context.Context, accountID uuid.UUID) (*Subject, error)
	Save(ctx context.Context, subject *Subject) error
	DeleteByAccountID(ctx context.Context, accountID uuid.UUID) error
}
