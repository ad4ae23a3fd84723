package main

import (
	"context"
	"fmt"

	eventapp "github.com/neuronek/backend/internal/application/event"
	identityapp "github.com/neuronek/backend/internal/application/identity"
	journalapp "github.com/neuronek/backend/internal/application/journal"
	substanceapp "github.com/neuronek/backend/internal/application/substance"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/infrastructure/auth"
	"github.com/neuronek/backend/internal/infrastructure/cache"
	"github.com/neuronek/backend/internal/infrastructure/config"
	"github.com/neuronek/backend/internal/infrastructure/event"
	"github.com/neuronek/backend/internal/infrastructure/notification"
	"github.com/neuronek/backend/internal/infrastructure/persistence"
	"github.com/neuronek/backend/internal/infrastructure/scheduler"
	"github.com/neuronek/backend/internal/infrastructure/storage"
	"github.com/neuronek/backend/internal/infrastructure/telemetry"
	"github.com/neuronek/backend/internal/infrastructure/unihash"
	"github.com/neuronek/backend/internal/interfaces/http/handler"
	"github.com/neuronek/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// events bundles the event pipeline: bus, outbox relay and optional Kafka sink
type events struct {
	bus        *event.InMemoryEventBus
	serializer *event.EventSerializer
	repo       *event.GormOutboxRepository
	processor  *event.OutboxProcessor // nil when the relay is disabled
	kafka      *event.KafkaOutbound   // nil when the sink is disabled
}

func newEvents(cfg *config.Config, db *persistence.Database, metrics *telemetry.BusinessMetrics, log *zap.Logger) *events {
	ev := &events{
		serializer: event.NewEventSerializer(),
		repo:       event.NewGormOutboxRepository(db.DB),
	}
	event.RegisterAllEvents(ev.serializer)

	opts := []event.BusOption{event.WithMetrics(metrics)}
	if cfg.Features.KafkaOutbound {
		ev.kafka = event.NewKafkaOutbound(event.NewKafkaWriter(cfg.Kafka), ev.serializer, metrics, log)
		opts = append(opts, event.WithOutbox(ev.kafka))
		log.Info("Kafka outbound sink enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	}
	ev.bus = event.NewInMemoryEventBus(log, opts...)

	if cfg.Event.OutboxEnabled && cfg.Event.ProcessorEnabled {
		ev.processor = event.NewOutboxProcessor(
			ev.repo,
			ev.bus,
			ev.serializer,
			event.OutboxProcessorConfigFrom(cfg.Event, cfg.Scheduler.Enabled),
			log,
		)
		ev.processor.SetMetrics(metrics)
	}
	return ev
}

// unitOfWork writes events to the outbox when enabled, otherwise it
// publishes them on the bus after commit
func (ev *events) unitOfWork(cfg *config.Config, db *persistence.Database) *persistence.UnitOfWork {
	if cfg.Event.OutboxEnabled {
		return persistence.NewUnitOfWork(db.DB, persistence.WithOutboxSaver(event.NewOutboxPublisher(ev.serializer)))
	}
	return persistence.NewUnitOfWork(db.DB, persistence.WithEventBus(ev.bus))
}

func (ev *events) start(ctx context.Context) error {
	if err := ev.bus.Start(ctx); err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}
	if ev.processor != nil {
		if err := ev.processor.Start(ctx); err != nil {
			return fmt.Errorf("start outbox processor: %w", err)
		}
	}
	return nil
}

func (ev *events) stop(ctx context.Context, log *zap.Logger) {
	if ev.processor != nil {
		if err := ev.processor.Stop(ctx); err != nil {
			log.Warn("Outbox processor stop failed", zap.Error(err))
		}
	}
	if err := ev.bus.Stop(ctx); err != nil {
		log.Warn("Event bus stop failed", zap.Error(err))
	}
	if ev.kafka != nil {
		if err := ev.kafka.Close(); err != nil {
			log.Warn("Kafka writer close failed", zap.Error(err))
		}
	}
}

// services holds the application layer
type services struct {
	auth         *identityapp.AuthService
	accounts     *identityapp.AccountService
	verification *identityapp.VerificationService
	recovery     *identityapp.RecoveryService
	roles        *identityapp.RoleService
	substances   *substanceapp.SubstanceService
	ingestions   *journalapp.IngestionService
	stashes      *journalapp.StashService
	exports      *journalapp.ExportService // nil when object storage is disabled
	outbox       *eventapp.OutboxService
	jwt          *auth.JWTService
	blacklist    auth.TokenBlacklist
}

func newServices(
	ctx context.Context,
	cfg *config.Config,
	db *persistence.Database,
	stores *cache.Stores,
	ev *events,
	metrics *telemetry.BusinessMetrics,
	log *zap.Logger,
) (*services, error) {
	hashCfg, err := unihash.ConfigFrom(cfg.Hashing)
	if err != nil {
		return nil, fmt.Errorf("hashing config: %w", err)
	}
	hasher, err := unihash.NewDefaultRegistry(hashCfg, log)
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if stores.Distributed() {
		blacklist = auth.NewRedisTokenBlacklist(stores.Client)
	}

	uow := ev.unitOfWork(cfg, db)
	identityScope := persistence.NewIdentityScope(uow)
	accounts := persistence.NewGormAccountRepository(db.DB)
	subjects := persistence.NewGormSubjectRepository(db.DB)
	roles := persistence.NewGormRoleRepository(db.DB)
	substances := persistence.NewGormSubstanceRepository(db.DB)
	mailer := notification.NewMailer(cfg.Verification, log)
	jwtService := auth.NewJWTService(cfg.JWT)
	tokenLifetime := cfg.JWT.RefreshTokenExpiration

	s := &services{
		jwt:       jwtService,
		blacklist: blacklist,
		outbox:    eventapp.NewOutboxService(ev.repo, log),
	}
	s.auth = identityapp.NewAuthService(
		accounts, roles, hasher, jwtService, blacklist, metrics,
		identityapp.DefaultAuthServiceConfig(), log,
	)
	s.accounts = identityapp.NewAccountService(
		identityScope, accounts, subjects, roles, hasher, blacklist,
		identityapp.AccountServiceConfig{
			RegistrationEnabled: cfg.Features.RegistrationEnabled,
			TokenLifetime:       tokenLifetime,
		},
		log,
	)
	s.verification = identityapp.NewVerificationService(
		identityScope, accounts, stores.Codes, mailer,
		identityapp.VerificationServiceConfig{
			CodeTTL:        cfg.Verification.CodeTTL,
			BaseURL:        cfg.Verification.BaseURL,
			UseTestingCode: cfg.Features.TestingVerificationCode,
		},
		log,
	)
	s.recovery = identityapp.NewRecoveryService(
		identityScope, accounts, stores.Codes, mailer, hasher, blacklist,
		identityapp.RecoveryServiceConfig{
			CodeTTL:       cfg.Verification.RecoveryTTL,
			TokenLifetime: tokenLifetime,
		},
		log,
	)
	s.roles = identityapp.NewRoleService(roles, ev.bus, log)
	s.substances = substanceapp.NewSubstanceService(
		persistence.NewSubstanceScope(uow),
		substances,
		persistence.NewGormEffectRepository(db.DB),
		subjects,
		stores.Cache,
		metrics,
		substanceapp.ServiceConfig{},
		log,
	)

	journalScope := persistence.NewJournalScope(uow)
	ingestions := persistence.NewGormIngestionRepository(db.DB)
	stashes := persistence.NewGormStashRepository(db.DB)
	s.ingestions = journalapp.NewIngestionService(journalScope, ingestions, substances, subjects, log)
	s.stashes = journalapp.NewStashService(journalScope, stashes, substances, log)

	if cfg.Storage.Enabled {
		store, err := storage.NewS3Store(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("object storage: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("object storage bucket: %w", err)
		}
		s.exports = journalapp.NewExportService(ingestions, stashes, store, cfg.Storage.PresignExpiration, log)
	}

	// handlers reached through the bus see each event at most once
	for _, h := range []shared.EventHandler{s.verification, s.ingestions} {
		ev.bus.Subscribe(
			event.NewIdempotentHandler(h, stores.Idempotency, log, event.WithDeliveryRecorder(metrics)),
			h.EventTypes()...,
		)
	}
	ev.bus.Subscribe(metrics, metrics.EventTypes()...)
	return s, nil
}

// jobs picks the scheduler dependencies that are actually available
func (s *services) jobs(ev *events) scheduler.Jobs {
	jobs := scheduler.Jobs{Stashes: s.stashes}
	if ev.processor != nil {
		jobs.Outbox = ev.processor
	}
	if s.exports != nil {
		jobs.Exporter = s.exports
	}
	return jobs
}

func (s *services) handlers(system *handler.SystemHandler) router.Handlers {
	// keep the interface nil rather than wrapping a nil pointer
	var exports handler.ExportService
	if s.exports != nil {
		exports = s.exports
	}
	return router.Handlers{
		Auth:      handler.NewAuthHandler(s.auth),
		Account:   handler.NewAccountHandler(s.accounts, s.verification, s.recovery),
		Role:      handler.NewRoleHandler(s.roles),
		Substance: handler.NewSubstanceHandler(s.substances),
		Effect:    handler.NewEffectHandler(s.substances),
		Journal:   handler.NewJournalHandler(s.ingestions, s.stashes, exports),
		Outbox:    handler.NewOutboxHandler(s.outbox),
		System:    system,
	}
}
