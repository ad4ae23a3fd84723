package identity

import (
	"context"

	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/shared"
)

// TransactionScope runs account changes and their events in one database transaction
type TransactionScope interface {
	// Execute runs fn within a transaction. An error from fn rolls everything back,
	// recorded events included.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to identity repositories bound to one transaction
type TransactionalRepositories interface {
	Accounts() identity.AccountRepository
	Subjects() identity.SubjectRepository
	// Events records domain events; they are written to the outbox with the
	// transaction or published once it commits
	Events() shared.EventRecorder
}

// NoOpTransactionScope runs fn against plain repositories without a transaction
type NoOpTransactionScope struct {
	accounts identity.AccountRepository
	subjects identity.SubjectRepository
	events   shared.EventRecorder
}

// NewNoOpTransactionScope creates a NoOpTransactionScope; events go straight to publisher
func NewNoOpTransactionScope(
	accounts identity.AccountRepository,
	subjects identity.SubjectRepository,
	publisher shared.EventPublisher,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		accounts: accounts,
		subjects: subjects,
		events:   shared.PublishingRecorder{Publisher: publisher},
	}
}

// Execute runs fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Accounts returns the account repository
func (s *NoOpTransactionScope) Accounts() identity.AccountRepository { return s.accounts }

// Subjects returns the subject repository
func (s *NoOpTransactionScope) Subjects() identity.SubjectRepository { return s.subjects }

// Events returns the event recorder
func (s *NoOpTransactionScope) Events() shared.EventRecorder { return s.events }

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
