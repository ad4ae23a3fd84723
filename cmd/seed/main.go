package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neuronek/backend/internal/application/seeder"
	substanceapp "github.com/neuronek/backend/internal/application/substance"
	"github.com/neuronek/backend/internal/infrastructure/cache"
	"github.com/neuronek/backend/internal/infrastructure/config"
	"github.com/neuronek/backend/internal/infrastructure/logger"
	"github.com/neuronek/backend/internal/infrastructure/persistence"
	"github.com/neuronek/backend/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
)

func main() {
	var (
		only    string
		timeout time.Duration
	)
	flag.StringVar(&only, "only", "", "Seed only 'roles' or 'catalogue'")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Abort when seeding takes longer than this")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.IsSQLite() {
		if err := db.DB.AutoMigrate(models.All()...); err != nil {
			log.Fatal("Failed to create sqlite schema", zap.Error(err))
		}
	}

	// seeding through redis clears cached catalogue reads of running servers
	stores, err := cache.NewStores(ctx, cfg.Redis, cache.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize cache", zap.Error(err))
	}
	defer stores.Close()

	uow := persistence.NewUnitOfWork(db.DB)
	catalogue := substanceapp.NewSubstanceService(
		persistence.NewSubstanceScope(uow),
		persistence.NewGormSubstanceRepository(db.DB),
		persistence.NewGormEffectRepository(db.DB),
		persistence.NewGormSubjectRepository(db.DB),
		stores.Cache,
		nil,
		substanceapp.ServiceConfig{},
		log,
	)
	s := seeder.New(persistence.NewGormRoleRepository(db.DB), catalogue, log)

	result := &seeder.Result{}
	switch only {
	case "":
		result, err = s.Run(ctx)
	case "roles":
		err = s.SeedRoles(ctx, seeder.DefaultRoles, result)
	case "catalogue":
		var kb *seeder.KnowledgeBase
		if kb, err = seeder.LoadKnowledgeBase(); err == nil {
			err = s.SeedCatalogue(ctx, kb, result)
		}
	default:
		log.Fatal("Unknown -only value, expected 'roles' or 'catalogue'", zap.String("only", only))
	}
	if err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}

	log.Info("Seeding finished",
		zap.Int("roles_created", result.RolesCreated),
		zap.Int("roles_skipped", result.RolesSkipped),
		zap.Int("effects_created", result.EffectsCreated),
		zap.Int("effects_skipped", result.EffectsSkipped),
		zap.Int("substances_created", result.SubstancesCreated),
		zap.Int("substances_skipped", result.SubstancesSkipped),
		zap.Int("links", result.Links))
}
