package persistence

import (
	"context"

	appidentity "github.com/neuronek/backend/internal/application/identity"
	appjournal "github.com/neuronek/backend/internal/application/journal"
	appsubstance "github.com/neuronek/backend/internal/application/substance"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/journal"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/neuronek/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UnitOfWork runs repository work in a GORM transaction and takes care of the
// events recorded along the way. With an outbox saver the events are written to
// the outbox inside the transaction; otherwise they are published on the bus
// after commit.
type UnitOfWork struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
	bus    shared.EventBus
}

// UnitOfWorkOption configures a UnitOfWork
type UnitOfWorkOption func(*UnitOfWork)

// WithOutboxSaver stores recorded events in the outbox table
func WithOutboxSaver(saver shared.OutboxEventSaver) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		u.outbox = saver
	}
}

// WithEventBus publishes recorded events after commit when no outbox is set
func WithEventBus(bus shared.EventBus) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		u.bus = bus
	}
}

// NewUnitOfWork creates a new UnitOfWork
func NewUnitOfWork(db *gorm.DB, opts ...UnitOfWorkOption) *UnitOfWork {
	u := &UnitOfWork{db: db}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *UnitOfWork) run(ctx context.Context, fn func(tx *gorm.DB, events *txEventRecorder) error) error {
	var recorder *txEventRecorder
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recorder = &txEventRecorder{tx: tx, saver: u.outbox}
		return fn(tx, recorder)
	})
	if err != nil {
		return err
	}

	if len(recorder.pending) > 0 && u.bus != nil {
		if err := u.bus.PublishAll(ctx, recorder.pending); err != nil {
			logger.L(ctx).Warn("Failed to publish events after commit",
				zap.Int("events", len(recorder.pending)),
				zap.Error(err))
		}
	}
	return nil
}

// txEventRecorder writes events to the outbox or keeps them until commit
type txEventRecorder struct {
	tx      *gorm.DB
	saver   shared.OutboxEventSaver
	pending []shared.DomainEvent
}

func (r *txEventRecorder) Record(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	if r.saver != nil {
		return r.saver.SaveEvents(ctx, r.tx, events...)
	}
	r.pending = append(r.pending, events...)
	return nil
}

// IdentityScope implements the identity TransactionScope
type IdentityScope struct {
	uow *UnitOfWork
}

// NewIdentityScope creates an identity transaction scope
func NewIdentityScope(uow *UnitOfWork) *IdentityScope {
	return &IdentityScope{uow: uow}
}

// Execute runs fn in a transaction
func (s *IdentityScope) Execute(ctx context.Context, fn func(repos appidentity.TransactionalRepositories) error) error {
	return s.uow.run(ctx, func(tx *gorm.DB, events *txEventRecorder) error {
		return fn(&identityRepos{tx: tx, events: events})
	})
}

type identityRepos struct {
	tx     *gorm.DB
	events *txEventRecorder
}

func (r *identityRepos) Accounts() identity.AccountRepository { return NewGormAccountRepository(r.tx) }
func (r *identityRepos) Subjects() identity.SubjectRepository { return NewGormSubjectRepository(r.tx) }
func (r *identityRepos) Events() shared.EventRecorder         { return r.events }

// SubstanceScope implements the catalogue TransactionScope
type SubstanceScope struct {
	uow *UnitOfWork
}

// NewSubstanceScope creates a catalogue transaction scope
func NewSubstanceScope(uow *UnitOfWork) *SubstanceScope {
	return &SubstanceScope{uow: uow}
}

// Execute runs fn in a transaction
func (s *SubstanceScope) Execute(ctx context.Context, fn func(repos appsubstance.TransactionalRepositories) error) error {
	return s.uow.run(ctx, func(tx *gorm.DB, events *txEventRecorder) error {
		return fn(&substanceRepos{tx: tx, events: events})
	})
}

type substanceRepos struct {
	tx     *gorm.DB
	events *txEventRecorder
}

func (r *substanceRepos) Substances() substance.SubstanceRepository {
	return NewGormSubstanceRepository(r.tx)
}
func (r *substanceRepos) Effects() substance.EffectRepository { return NewGormEffectRepository(r.tx) }
func (r *substanceRepos) Events() shared.EventRecorder        { return r.events }

// JournalScope implements the journal TransactionScope
type JournalScope struct {
	uow *UnitOfWork
}

// NewJournalScope creates a journal transaction scope
func NewJournalScope(uow *UnitOfWork) *JournalScope {
	return &JournalScope{uow: uow}
}

// Execute runs fn in a transaction
func (s *JournalScope) Execute(ctx context.Context, fn func(repos appjournal.TransactionalRepositories) error) error {
	return s.uow.run(ctx, func(tx *gorm.DB, events *txEventRecorder) error {
		return fn(&journalRepos{tx: tx, events: events})
	})
}

type journalRepos struct {
	tx     *gorm.DB
	events *txEventRecorder
}

func (r *journalRepos) Ingestions() journal.IngestionRepository {
	return NewGormIngestionRepository(r.tx)
}
func (r *journalRepos) Stashes() journal.StashRepository { return NewGormStashRepository(r.tx) }
func (r *journalRepos) Events() shared.EventRecorder     { return r.events }

var (
	_ appidentity.TransactionScope  = (*IdentityScope)(nil)
	_ appsubstance.TransactionScope = (*SubstanceScope)(nil)
	_ appjournal.TransactionScope   = (*JournalScope)(nil)
	_ shared.EventRecorder          = (*txEventRecorder)(nil)
)
