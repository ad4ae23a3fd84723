// Package ownership scopes journal tables to the account that owns the rows.
//
// The authenticated account id travels in the request context (see
// logger.WithAccountID). When it is present, queries, updates and deletes on
// owned tables get an extra WHERE account_id = ? so one account can never
// read or touch another account's ingestions or stashes, even if a service
// forgets its own ownership check. Background jobs run without an account in
// context and see every row.
package ownership

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

// Column is the owner column on every owned table
const Column = "account_id"

// ErrInvalidAccountID is returned when the context carries a malformed account id
var ErrInvalidAccountID = errors.New("invalid account_id in context")

// DefaultTables lists the tables owned by an account
var DefaultTables = []string{"ingestions", "stashes"}

// AccountScope restricts a query to rows owned by accountID
func AccountScope(accountID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(Column+" = ?", accountID)
	}
}

// AccountFromContext returns the authenticated account id, if any
func AccountFromContext(ctx context.Context) (uuid.UUID, bool, error) {
	raw := logger.GetAccountID(ctx)
	if raw == "" {
		return uuid.Nil, false, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, ErrInvalidAccountID
	}
	return id, true, nil
}
