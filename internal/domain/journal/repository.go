package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/substance"
)

// IngestionFilter selects an account's journal entries
type IngestionFilter struct {
	AccountID   uuid.UUID
	From        *time.Time
	To          *time.Time
	SubstanceID *uuid.UUID
	Route       *substance.Route
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// Offset returns the offset for pagination
func (f IngestionFilter) Offset() int {
	if f.Page <= 0 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}

// Limit returns the limit for pagination
func (f IngestionFilter) Limit() int {
	if f.PageSize <= 0 {
		return 20
	}
	if f.PageSize > 100 {
		return 100
	}
	return f.PageSize
}

// IngestionRepository defines persistence for journal entries
type IngestionRepository interface {
	Create(ctx context.Context, i *Ingestion) error
	Update(ctx context.Context, i *Ingestion) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Ingestion, error)
	FindAll(ctx context.Context, filter IngestionFilter) ([]*Ingestion, int64, error)

	// FindSince returns an account's ingestions at or after since, oldest first
	FindSince(ctx context.Context, accountID uuid.UUID, since time.Time) ([]*Ingestion, error)

	// FindAccountsLoggedSince returns accounts with entries created at or after since
	FindAccountsLoggedSince(ctx context.Context, since time.Time) ([]uuid.UUID, error)

	// DeleteByAccount removes every entry of an account
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) error
}

// StashFilter selects an account's stashes
type StashFilter struct {
	AccountID      uuid.UUID
	SubstanceID    *uuid.UUID
	IncludeExpired bool
	Page           int
	PageSize       int
}

// StashRepository defines persistence for stashes
type StashRepository interface {
	Create(ctx context.Context, s *Stash) error
	Update(ctx context.Context, s *Stash) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Stash, error)
	FindAll(ctx context.Context, filter StashFilter) ([]*Stash, int64, error)

	// FindExpiredUnmarked returns stashes past expiry that the sweep has not flagged yet
	FindExpiredUnmarked(ctx context.Context, now time.Time, limit int) ([]*Stash, error)

	// DeleteByAccount removes every stash of an account
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) error
}
