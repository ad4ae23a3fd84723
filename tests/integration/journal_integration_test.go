//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	appjournal "github.com/neuronek/backend/internal/application/journal"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/journal"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/neuronek/backend/internal/infrastructure/event"
	"github.com/neuronek/backend/internal/infrastructure/logger"
	"github.com/neuronek/backend/internal/infrastructure/migration"
	"github.com/neuronek/backend/internal/infrastructure/persistence"
	"github.com/neuronek/backend/internal/infrastructure/persistence/ownership"
	"github.com/neuronek/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error)      { return "$plain$" + p, nil }
func (plainHasher) Verify(p, enc string) (bool, error) { return enc == "$plain$"+p, nil }
func (plainHasher) NeedsRehash(string) bool            { return false }

func createAccount(t *testing.T, db *gorm.DB, username string) *identity.Account {
	t.Helper()
	account, err := identity.NewAccount(username, username+"@example.com", "password1", plainHasher{})
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormAccountRepository(db).Create(context.Background(), account))
	return account
}

func createSubstance(t *testing.T, db *gorm.DB, name string) *substance.Substance {
	t.Helper()
	s, err := substance.NewSubstance(name, substance.Details{PsychoactiveClasses: []string{"Stimulant"}})
	require.NoError(t, err)
	_, err = s.AddRoute(substance.RouteOfAdministration{Classification: substance.RouteOral})
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormSubstanceRepository(db).Create(context.Background(), s))
	return s
}

func parseMass(t *testing.T, s string) substance.Mass {
	t.Helper()
	m, err := substance.ParseMass(s)
	require.NoError(t, err)
	return m
}

func TestJournal_StashWithdrawalWritesOutbox(t *testing.T) {
	testDB := NewTestDB(t)
	ctx := context.Background()

	account := createAccount(t, testDB.DB, "journal_user")
	caffeine := createSubstance(t, testDB.DB, "Caffeine")

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	uow := persistence.NewUnitOfWork(testDB.DB, persistence.WithOutboxSaver(event.NewOutboxPublisher(serializer)))
	scope := persistence.NewJournalScope(uow)

	stash, err := journal.NewStash(account.ID, caffeine, parseMass(t, "1g"), journal.StashParams{})
	require.NoError(t, err)

	err = scope.Execute(ctx, func(repos appjournal.TransactionalRepositories) error {
		if err := repos.Stashes().Create(ctx, stash); err != nil {
			return err
		}
		return repos.Events().Record(ctx, stash.PullDomainEvents()...)
	})
	require.NoError(t, err)

	ingestion, err := journal.NewIngestion(account.ID, caffeine, &stash.ID, journal.IngestionParams{
		Route:  substance.RouteOral,
		Dosage: parseMass(t, "200mg"),
	}, time.Now())
	require.NoError(t, err)

	err = scope.Execute(ctx, func(repos appjournal.TransactionalRepositories) error {
		if err := stash.Withdraw(ingestion.Dosage); err != nil {
			return err
		}
		if err := repos.Stashes().Update(ctx, stash); err != nil {
			return err
		}
		if err := repos.Ingestions().Create(ctx, ingestion); err != nil {
			return err
		}
		events := append(stash.PullDomainEvents(), ingestion.PullDomainEvents()...)
		return repos.Events().Record(ctx, events...)
	})
	require.NoError(t, err)

	reloaded, err := persistence.NewGormStashRepository(testDB.DB).FindByID(ctx, stash.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Amount.Equal(parseMass(t, "800mg")))

	pending, err := event.NewGormOutboxRepository(testDB.DB).FindPending(ctx, 10)
	require.NoError(t, err)
	types := make([]string, len(pending))
	for i, e := range pending {
		types[i] = e.EventType
	}
	assert.ElementsMatch(t, []string{
		journal.EventTypeStashCreated,
		journal.EventTypeStashWithdrawn,
		journal.EventTypeIngestionLogged,
	}, types)

	t.Run("failed withdrawal rolls back", func(t *testing.T) {
		big, err := journal.NewIngestion(account.ID, caffeine, &stash.ID, journal.IngestionParams{
			Route:  substance.RouteOral,
			Dosage: parseMass(t, "5g"),
		}, time.Now())
		require.NoError(t, err)

		err = scope.Execute(ctx, func(repos appjournal.TransactionalRepositories) error {
			if err := repos.Ingestions().Create(ctx, big); err != nil {
				return err
			}
			return stash.Withdraw(big.Dosage)
		})
		assert.ErrorIs(t, err, journal.ErrStashInsufficient)

		_, err = persistence.NewGormIngestionRepository(testDB.DB).FindByID(ctx, big.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestJournal_OwnershipIsolation(t *testing.T) {
	testDB := NewTestDB(t)
	require.NoError(t, ownership.Enable(testDB.DB))

	alice := createAccount(t, testDB.DB, "alice")
	bob := createAccount(t, testDB.DB, "bob")
	caffeine := createSubstance(t, testDB.DB, "Caffeine")
	repo := persistence.NewGormIngestionRepository(testDB.DB)

	entry, err := journal.NewIngestion(alice.ID, caffeine, nil, journal.IngestionParams{
		Route:  substance.RouteOral,
		Dosage: parseMass(t, "100mg"),
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), entry))

	aliceCtx, _ := logger.WithAccountID(context.Background(), zap.NewNop(), alice.ID.String())
	bobCtx, _ := logger.WithAccountID(context.Background(), zap.NewNop(), bob.ID.String())

	found, err := repo.FindByID(aliceCtx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.AccountID)

	_, err = repo.FindByID(bobCtx, entry.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(bobCtx, entry.ID), shared.ErrNotFound)

	t.Run("account deletion cascades", func(t *testing.T) {
		require.NoError(t, persistence.NewGormAccountRepository(testDB.DB).Delete(context.Background(), alice.ID))
		_, err := repo.FindByID(context.Background(), entry.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("substance deletion keeps history", func(t *testing.T) {
		kept, err := journal.NewIngestion(bob.ID, caffeine, nil, journal.IngestionParams{
			Route:  substance.RouteOral,
			Dosage: parseMass(t, "50mg"),
		}, time.Now())
		require.NoError(t, err)
		require.NoError(t, repo.Create(bobCtx, kept))

		require.NoError(t, persistence.NewGormSubstanceRepository(testDB.DB).Delete(context.Background(), caffeine.ID))

		found, err := repo.FindByID(bobCtx, kept.ID)
		require.NoError(t, err)
		assert.Equal(t, "caffeine", found.SubstanceName)
	})
}

func TestMigrations_DownAndUp(t *testing.T) {
	testDB := NewTestDB(t)

	m, err := migration.New(testDB.SqlDB, migration.Source{FS: migrations.FS}, zap.NewNop())
	require.NoError(t, err)

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(4), version)

	require.NoError(t, m.Down())
	assert.False(t, tableExists(t, testDB.DB, "ingestions"))

	require.NoError(t, m.Up())
	assert.True(t, tableExists(t, testDB.DB, "ingestions"))
	assert.True(t, tableExists(t, testDB.DB, "outbox_events"))
}

func tableExists(t *testing.T, db *gorm.DB, table string) bool {
	t.Helper()
	var count int64
	require.NoError(t, db.Raw(
		`SELECT COUNT(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = ?`, table,
	).Scan(&count).Error)
	return count == 1
}
