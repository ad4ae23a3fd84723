package journal

import (
	"context"

	"github.com/neuronek/backend/internal/domain/journal"
	"github.com/neuronek/backend/internal/domain/shared"
)

// TransactionScope provides transactional access to journal repositories.
// Logging an ingestion against a stash withdraws from the stash in the same
// transaction, so either both rows change or neither does.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to journal repositories within a transaction
type TransactionalRepositories interface {
	// Ingestions returns the ingestion repository scoped to the current transaction
	Ingestions() journal.IngestionRepository
	// Stashes returns the stash repository scoped to the current transaction
	Stashes() journal.StashRepository
	// Events records domain events raised by the unit of work
	Events() shared.EventRecorder
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing.
type NoOpTransactionScope struct {
	ingestions journal.IngestionRepository
	stashes    journal.StashRepository
	events     shared.EventRecorder
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	ingestions journal.IngestionRepository,
	stashes journal.StashRepository,
	publisher shared.EventPublisher,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		ingestions: ingestions,
		stashes:    stashes,
		events:     shared.PublishingRecorder{Publisher: publisher},
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Ingestions returns the ingestion repository
func (s *NoOpTransactionScope) Ingestions() journal.IngestionRepository { return s.ingestions }

// Stashes returns the stash repository
func (s *NoOpTransactionScope) Stashes() journal.StashRepository { return s.stashes }

// Events returns the event recorder
func (s *NoOpTransactionScope) Events() shared.EventRecorder { return s.events }

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
