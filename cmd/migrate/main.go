package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/neuronek/backend/internal/infrastructure/config"
	"github.com/neuronek/backend/internal/infrastructure/logger"
	"github.com/neuronek/backend/internal/infrastructure/migration"
	"github.com/neuronek/backend/internal/infrastructure/persistence"
	"github.com/neuronek/backend/internal/infrastructure/persistence/models"
	"github.com/neuronek/backend/migrations"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

func main() {
	var (
		migrationsPath string
		logLevel       string
	)

	flag.StringVar(&migrationsPath, "path", "", "Read migrations from this directory instead of the embedded set")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
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

	if migrationsPath != "" {
		absPath, err := filepath.Abs(migrationsPath)
		if err != nil {
			log.Fatal("Failed to get absolute path", zap.Error(err))
		}
		migrationsPath = absPath
	}
	source := migration.Source{Path: migrationsPath, FS: migrations.FS}

	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("migrations_path", describeSource(source)),
	)

	// create and list work on files only
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name> [description]")
		}
		dir := migrationsPath
		if dir == "" {
			dir = defaultMigrationsPath
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}

		mf, err := migration.CreateMigration(dir, args[1], description)
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created successfully",
			zap.Uint("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return

	case "list":
		fsys := source.FS
		if migrationsPath != "" {
			fsys = os.DirFS(migrationsPath)
		}
		infos, err := migration.ListMigrations(fsys)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		if len(infos) == 0 {
			log.Info("No migrations found")
			return
		}
		log.Info("Available migrations", zap.Int("count", len(infos)))
		printMigrations(infos)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// sqlite has no versioned schema; it is created from the models
	if cfg.Database.IsSQLite() {
		if command != "up" && command != "automigrate" {
			log.Fatal("Only 'up' is supported for sqlite", zap.String("command", command))
		}
		autoMigrate(cfg, log)
		return
	}
	if command == "automigrate" {
		log.Fatal("automigrate is only available for sqlite; use 'up' for postgres")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, source, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil {
			log.Fatal("Migration up failed", zap.Error(err))
		}

	case "down":
		if err := m.Down(); err != nil {
			log.Fatal("Migration down failed", zap.Error(err))
		}

	case "step":
		if len(args) < 2 {
			log.Fatal("Step count required. Usage: migrate step <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Invalid step count", zap.String("value", args[1]))
		}
		if err := m.Steps(n); err != nil {
			log.Fatal("Migration step failed", zap.Error(err))
		}

	case "goto":
		if len(args) < 2 {
			log.Fatal("Version required. Usage: migrate goto <version>")
		}
		version, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		if err := m.GoTo(uint(version)); err != nil {
			log.Fatal("Migration goto failed", zap.Error(err))
		}

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatal("Failed to get version", zap.Error(err))
		}
		if version == 0 {
			log.Info("No migrations applied")
		} else {
			log.Info("Current migration version",
				zap.Uint("version", version),
				zap.Bool("dirty", dirty),
			)
		}

	case "pending":
		pending, err := m.Pending()
		if err != nil {
			log.Fatal("Failed to compute pending migrations", zap.Error(err))
		}
		if len(pending) == 0 {
			log.Info("Schema is up to date")
			return
		}
		log.Info("Pending migrations", zap.Int("count", len(pending)))
		printMigrations(pending)

	case "force":
		if len(args) < 2 {
			log.Fatal("Version required. Usage: migrate force <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		log.Warn("Forcing migration version - use with caution!")
		if err := m.Force(version); err != nil {
			log.Fatal("Force version failed", zap.Error(err))
		}

	case "drop":
		confirm := false
		for _, arg := range args[1:] {
			if arg == "-confirm" || arg == "--confirm" {
				confirm = true
				break
			}
		}
		if !confirm {
			log.Fatal("Drop cancelled. Use 'migrate drop -confirm' to confirm.")
		}
		if err := m.Drop(); err != nil {
			log.Fatal("Drop failed", zap.Error(err))
		}

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func autoMigrate(cfg *config.Config, log *zap.Logger) {
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to open sqlite database", zap.Error(err))
	}
	defer db.Close()

	if err := db.DB.AutoMigrate(models.All()...); err != nil {
		log.Fatal("Auto-migration failed", zap.Error(err))
	}
	log.Info("SQLite schema is up to date", zap.String("path", cfg.Database.SQLitePath))
}

func describeSource(s migration.Source) string {
	if s.Path != "" {
		return s.Path
	}
	return "embedded"
}

func printMigrations(infos []migration.MigrationInfo) {
	for _, info := range infos {
		down := ""
		if !info.HasDown {
			down = " (no down)"
		}
		fmt.Printf("  %06d  %s%s\n", info.Version, info.Name, down)
	}
}

func printUsage() {
	fmt.Println(`neuronek database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations (sqlite: create tables from models)
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  pending               List migrations newer than the applied version
  force <version>       Force set migration version (use with caution)
  drop -confirm         Drop all database objects (DANGEROUS)
  create <name> [desc]  Create a new migration file pair
  list                  List available migrations
  automigrate           Create or update the sqlite schema from the models

Flags:
  -path string          Read migrations from a directory instead of the embedded set
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  NEURONEK_DATABASE_DRIVER, NEURONEK_DATABASE_HOST, NEURONEK_DATABASE_PORT,
  NEURONEK_DATABASE_USER, NEURONEK_DATABASE_PASSWORD, NEURONEK_DATABASE_DBNAME,
  NEURONEK_DATABASE_SSLMODE, NEURONEK_DATABASE_SQLITE_PATH

Examples:
  migrate up
  migrate step -1
  migrate -path ./migrations create add_tolerance_table "Track tolerance per substance"
  migrate pending`)
}
