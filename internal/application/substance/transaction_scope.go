package substance

import (
	"context"

	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/domain/substance"
)

// TransactionScope runs catalogue changes and their events in one database transaction
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to catalogue repositories bound to one transaction
type TransactionalRepositories interface {
	Substances() substance.SubstanceRepository
	Effects() substance.EffectRepository
	Events() shared.EventRecorder
}

// NoOpTransactionScope runs fn against plain repositories without a transaction
type NoOpTransactionScope struct {
	substances substance.SubstanceRepository
	effects    substance.EffectRepository
	events     shared.EventRecorder
}

// NewNoOpTransactionScope creates a NoOpTransactionScope; events go straight to publisher
func NewNoOpTransactionScope(
	substances substance.SubstanceRepository,
	effects substance.EffectRepository,
	publisher shared.EventPublisher,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		substances: substances,
		effects:    effects,
		events:     shared.PublishingRecorder{Publisher: publisher},
	}
}

// Execute runs fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Substances() substance.SubstanceRepository { return s.substances }
func (s *NoOpTransactionScope) Effects() substance.EffectRepository       { return s.effects }
func (s *NoOpTransactionScope) Events() shared.EventRecorder              { return s.events }

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
