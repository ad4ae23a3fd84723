//go:build integration

// Package integration runs repository, migration and API tests against a real
// PostgreSQL started with testcontainers. Run with: go test -tags=integration ./tests/...
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/infrastructure/migration"
	"github.com/neuronek/backend/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	pgUser     = "postgres"
	pgPassword = "neuronek"
	pgAdminDB  = "neuronek_admin"
)

// server is the one container every test in the package creates its database in
var server struct {
	container testcontainers.Container
	host      string
	port      string
	admin     *sql.DB
}

// startServer boots the shared container; TestMain calls it once
func startServer(ctx context.Context) error {
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase(pgAdminDB),
		tcpostgres.WithUsername(pgUser),
		tcpostgres.WithPassword(pgPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return fmt.Errorf("start postgres: %w", err)
	}
	server.container = container

	if server.host, err = container.Host(ctx); err != nil {
		return fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return fmt.Errorf("container port: %w", err)
	}
	server.port = port.Port()

	admin, err := sql.Open("postgres", dsnFor(pgAdminDB))
	if err != nil {
		return fmt.Errorf("open admin connection: %w", err)
	}
	server.admin = admin
	return admin.PingContext(ctx)
}

func stopServer() {
	if server.admin != nil {
		_ = server.admin.Close()
	}
	if server.container != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = server.container.Terminate(ctx)
	}
}

func dsnFor(database string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		pgUser, pgPassword, server.host, server.port, database)
}

// TestDB is a migrated database private to one test
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	Name  string
}

// NewTestDB creates and migrates a fresh database; it is dropped when the test ends
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	require.NotNil(t, server.admin, "postgres container not started; run through TestMain")

	name := "t_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	_, err := server.admin.Exec("CREATE DATABASE " + name)
	require.NoError(t, err, "create database %s", name)

	db, sqlDB := connect(t, dsnFor(name))
	runMigrations(t, sqlDB)

	t.Cleanup(func() {
		_ = sqlDB.Close()
		if _, err := server.admin.Exec("DROP DATABASE IF EXISTS " + name + " WITH (FORCE)"); err != nil {
			t.Logf("drop database %s: %v", name, err)
		}
	})
	return &TestDB{DB: db, SqlDB: sqlDB, Name: name}
}

func connect(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	level := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = logger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(level), TranslateError: true})
	require.NoError(t, err, "connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	return db, sqlDB
}

func runMigrations(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	m, err := migration.New(sqlDB, migration.Source{FS: migrations.FS}, zap.NewNop())
	require.NoError(t, err, "create migrator")
	require.NoError(t, m.Up(), "apply migrations")
}
