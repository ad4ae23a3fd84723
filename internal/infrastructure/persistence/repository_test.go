package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/journal"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/neuronek/backend/internal/infrastructure/config"
	"github.com/neuronek/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newSQLiteDB opens a migrated in-memory database
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.DB.AutoMigrate(models.All()...))
	return db.DB
}

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error)      { return "$plain$" + p, nil }
func (plainHasher) Verify(p, enc string) (bool, error) { return enc == "$plain$"+p, nil }
func (plainHasher) NeedsRehash(string) bool            { return false }

func mg(t *testing.T, s string) substance.Mass {
	t.Helper()
	m, err := substance.ParseMass(s)
	require.NoError(t, err)
	return m
}

func massRef(t *testing.T, s string) *substance.Mass {
	m := mg(t, s)
	return &m
}

func newCaffeine(t *testing.T) *substance.Substance {
	t.Helper()
	s, err := substance.NewSubstance("Caffeine", substance.Details{
		CommonNames:         []string{"Coffee", "Guaranine"},
		PsychoactiveClasses: []string{"Stimulant"},
	})
	require.NoError(t, err)

	bio := decimal.NewFromInt(99)
	_, err = s.AddRoute(substance.RouteOfAdministration{
		Classification:  substance.RouteOral,
		Bioavailability: &bio,
		Dosages: []substance.DosageRange{
			{Classification: substance.DosageThreshold, Min: massRef(t, "10mg"), Max: massRef(t, "20mg")},
			{Classification: substance.DosageLight, Min: massRef(t, "20mg"), Max: massRef(t, "50mg")},
			{Classification: substance.DosageHeavy, Min: massRef(t, "300mg")},
		},
		Phases: []substance.Phase{
			{Classification: substance.PhaseOnset, Duration: substance.DurationRange{Min: 5 * time.Minute, Max: 10 * time.Minute}},
			{Classification: substance.PhasePeak, Duration: substance.DurationRange{Min: time.Hour, Max: 2 * time.Hour}},
		},
	})
	require.NoError(t, err)
	return s
}

func TestSubstanceRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSubstanceRepository(newSQLiteDB(t))

	caffeine := newCaffeine(t)
	require.NoError(t, repo.Create(ctx, caffeine))

	loaded, err := repo.FindByName(ctx, "  CAFFEINE ")
	require.NoError(t, err)
	assert.Equal(t, caffeine.ID, loaded.ID)
	assert.Equal(t, []string{"Coffee", "Guaranine"}, loaded.CommonNames)
	require.Len(t, loaded.Routes, 1)

	oral := loaded.Routes[0]
	assert.Equal(t, substance.RouteOral, oral.Classification)
	assert.Equal(t, "caffeine", oral.SubstanceName)
	assert.Len(t, oral.Dosages, 3)
	assert.Len(t, oral.Phases, 2)
	class, ok := oral.ClassifyDosage(mg(t, "30mg"), nil)
	assert.True(t, ok)
	assert.Equal(t, substance.DosageLight, class)

	exists, err := repo.ExistsByName(ctx, "Caffeine")
	require.NoError(t, err)
	assert.True(t, exists)

	t.Run("update replaces routes", func(t *testing.T) {
		require.NoError(t, loaded.ReplaceRoutes([]substance.RouteOfAdministration{
			{Classification: substance.RouteInsufflated},
			{Classification: substance.RouteOral, Phases: []substance.Phase{
				{Classification: substance.PhaseOnset, Duration: substance.DurationRange{Min: time.Minute, Max: time.Minute}},
			}},
		}))
		require.NoError(t, repo.Update(ctx, loaded))

		reloaded, err := repo.FindByID(ctx, caffeine.ID)
		require.NoError(t, err)
		require.Len(t, reloaded.Routes, 2)
		assert.Equal(t, substance.RouteInsufflated, reloaded.Routes[0].Classification)
		assert.Empty(t, reloaded.Routes[1].Dosages)
		assert.Len(t, reloaded.Routes[1].Phases, 1)
	})

	t.Run("find route", func(t *testing.T) {
		route, err := repo.FindRoute(ctx, caffeine.ID, substance.RouteOral)
		require.NoError(t, err)
		assert.Equal(t, "caffeine", route.SubstanceName)

		_, err = repo.FindRoute(ctx, caffeine.ID, substance.RouteRectal)
		assert.ErrorIs(t, err, substance.ErrRouteNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, caffeine.ID))
		_, err := repo.FindByID(ctx, caffeine.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, caffeine.ID), shared.ErrNotFound)
	})
}

func TestSubstanceRepository_FindAll(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSubstanceRepository(newSQLiteDB(t))

	require.NoError(t, repo.Create(ctx, newCaffeine(t)))
	lsd, err := substance.NewSubstance("LSD", substance.Details{PsychoactiveClasses: []string{"Psychedelic"}})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, lsd))

	t.Run("keyword matches common names", func(t *testing.T) {
		found, total, err := repo.FindAll(ctx, substance.SubstanceFilter{Keyword: "coffee"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "caffeine", found[0].Name)
		assert.Empty(t, found[0].Routes)
	})

	t.Run("psychoactive class", func(t *testing.T) {
		found, total, err := repo.FindAll(ctx, substance.SubstanceFilter{PsychoactiveClass: "psychedelic"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "lsd", found[0].Name)
	})

	t.Run("sorted by name", func(t *testing.T) {
		found, total, err := repo.FindAll(ctx, substance.SubstanceFilter{SortBy: "name", SortOrder: "desc"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Equal(t, "lsd", found[0].Name)
	})
}

func TestSubstanceRepository_ListRoutes(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSubstanceRepository(newSQLiteDB(t))

	caffeine := newCaffeine(t)
	_, err := caffeine.AddRoute(substance.RouteOfAdministration{Classification: substance.RouteInsufflated})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, caffeine))

	routes, total, err := repo.ListRoutes(ctx, substance.RouteFilter{
		SubstanceName: "caffeine",
		IncludeDosage: true,
		SortField:     "classification",
		SortOrder:     "desc",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, routes, 2)
	assert.Equal(t, substance.RouteOral, routes[0].Classification)
	assert.Len(t, routes[0].Dosages, 3)
	assert.Empty(t, routes[0].Phases)
	assert.Equal(t, "caffeine", routes[0].SubstanceName)

	routes, total, err = repo.ListRoutes(ctx, substance.RouteFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, routes, 1)
}

func TestEffectRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	substances := NewGormSubstanceRepository(db)
	effects := NewGormEffectRepository(db)

	caffeine := newCaffeine(t)
	require.NoError(t, substances.Create(ctx, caffeine))

	wakefulness, err := substance.NewEffect("Wakefulness", "", substance.EffectDetails{Category: "physical"})
	require.NoError(t, err)
	require.NoError(t, effects.Create(ctx, wakefulness))

	found, err := effects.FindBySlug(ctx, "Wakefulness")
	require.NoError(t, err)
	assert.Equal(t, wakefulness.ID, found.ID)

	require.NoError(t, effects.Link(ctx, caffeine.ID, wakefulness.ID))
	require.NoError(t, effects.Link(ctx, caffeine.ID, wakefulness.ID))

	linked, err := effects.ListForSubstance(ctx, caffeine.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "Wakefulness", linked[0].Name)

	list, total, err := effects.FindAll(ctx, substance.EffectFilter{Category: "Physical"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)

	require.NoError(t, effects.Unlink(ctx, caffeine.ID, wakefulness.ID))
	assert.ErrorIs(t, effects.Unlink(ctx, caffeine.ID, wakefulness.ID), shared.ErrNotFound)

	require.NoError(t, effects.Delete(ctx, wakefulness.ID))
	_, err = effects.FindByID(ctx, wakefulness.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestIngestionRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewGormIngestionRepository(db)
	caffeine := newCaffeine(t)

	accountID := uuid.New()
	other := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base.Add(48 * time.Hour)

	logAt := func(account uuid.UUID, at time.Time, dose string) *journal.Ingestion {
		i, err := journal.NewIngestion(account, caffeine, nil, journal.IngestionParams{
			Route:      substance.RouteOral,
			Dosage:     mg(t, dose),
			IngestedAt: &at,
		}, now)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, i))
		return i
	}

	first := logAt(accountID, base, "100mg")
	logAt(accountID, base.Add(2*time.Hour), "50mg")
	logAt(accountID, base.Add(24*time.Hour), "0.2g")
	logAt(other, base, "10mg")

	loaded, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Dosage.Equal(mg(t, "100mg")))
	assert.True(t, loaded.IngestedAt.Equal(base))

	t.Run("filters by account and range", func(t *testing.T) {
		from := base.Add(time.Hour)
		found, total, err := repo.FindAll(ctx, journal.IngestionFilter{AccountID: accountID, From: &from})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.True(t, found[0].IngestedAt.After(found[1].IngestedAt))
	})

	t.Run("sorts by dosage", func(t *testing.T) {
		found, _, err := repo.FindAll(ctx, journal.IngestionFilter{AccountID: accountID, SortBy: "dosage_mg", SortOrder: "asc"})
		require.NoError(t, err)
		require.Len(t, found, 3)
		assert.True(t, found[0].Dosage.Equal(mg(t, "50mg")))
	})

	t.Run("since", func(t *testing.T) {
		found, err := repo.FindSince(ctx, accountID, base.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.True(t, found[0].IngestedAt.Before(found[1].IngestedAt))
	})

	t.Run("accounts logged since", func(t *testing.T) {
		ids, err := repo.FindAccountsLoggedSince(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{accountID, other}, ids)
	})

	t.Run("delete by account", func(t *testing.T) {
		require.NoError(t, repo.DeleteByAccount(ctx, other))
		found, total, err := repo.FindAll(ctx, journal.IngestionFilter{AccountID: other})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, found)
	})
}

func TestStashRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	stashes := NewGormStashRepository(db)
	ingestions := NewGormIngestionRepository(db)
	caffeine := newCaffeine(t)
	accountID := uuid.New()

	now := time.Now().UTC().Truncate(time.Second)
	yesterday := now.Add(-24 * time.Hour)
	nextWeek := now.Add(7 * 24 * time.Hour)

	expired, err := journal.NewStash(accountID, caffeine, mg(t, "1g"), journal.StashParams{ExpiresAt: &yesterday})
	require.NoError(t, err)
	fresh, err := journal.NewStash(accountID, caffeine, mg(t, "2g"), journal.StashParams{ExpiresAt: &nextWeek})
	require.NoError(t, err)
	require.NoError(t, stashes.Create(ctx, expired))
	require.NoError(t, stashes.Create(ctx, fresh))

	due, err := stashes.FindExpiredUnmarked(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, expired.ID, due[0].ID)

	require.True(t, due[0].MarkExpired(now))
	require.NoError(t, stashes.Update(ctx, due[0]))

	due, err = stashes.FindExpiredUnmarked(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	active, total, err := stashes.FindAll(ctx, journal.StashFilter{AccountID: accountID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, fresh.ID, active[0].ID)

	_, total, err = stashes.FindAll(ctx, journal.StashFilter{AccountID: accountID, IncludeExpired: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	t.Run("delete keeps ingestion history", func(t *testing.T) {
		i, err := journal.NewIngestion(accountID, caffeine, &fresh.ID, journal.IngestionParams{
			Route:  substance.RouteOral,
			Dosage: mg(t, "100mg"),
		}, now)
		require.NoError(t, err)
		require.NoError(t, ingestions.Create(ctx, i))

		require.NoError(t, stashes.Delete(ctx, fresh.ID))

		loaded, err := ingestions.FindByID(ctx, i.ID)
		require.NoError(t, err)
		assert.Nil(t, loaded.StashID)
	})
}

func TestStashRepository_StaleUpdate(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	stashes := NewGormStashRepository(db)
	caffeine := newCaffeine(t)

	stash, err := journal.NewStash(uuid.New(), caffeine, mg(t, "100mg"), journal.StashParams{})
	require.NoError(t, err)
	require.NoError(t, stashes.Create(ctx, stash))

	first, err := stashes.FindByID(ctx, stash.ID)
	require.NoError(t, err)
	second, err := stashes.FindByID(ctx, stash.ID)
	require.NoError(t, err)

	require.NoError(t, first.Withdraw(mg(t, "60mg")))
	require.NoError(t, stashes.Update(ctx, first))

	require.NoError(t, second.Withdraw(mg(t, "60mg")))
	err = stashes.Update(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	loaded, err := stashes.FindByID(ctx, stash.ID)
	require.NoError(t, err)
	assert.Zero(t, loaded.Amount.Cmp(mg(t, "40mg")))
	assert.Equal(t, 2, loaded.Version)

	t.Run("sequential updates on one instance", func(t *testing.T) {
		require.NoError(t, first.Deposit(mg(t, "10mg")))
		require.NoError(t, stashes.Update(ctx, first))
		require.NoError(t, first.Withdraw(mg(t, "5mg")))
		require.NoError(t, stashes.Update(ctx, first))

		loaded, err := stashes.FindByID(ctx, stash.ID)
		require.NoError(t, err)
		assert.Zero(t, loaded.Amount.Cmp(mg(t, "45mg")))
	})

	t.Run("missing row", func(t *testing.T) {
		ghost, err := journal.NewStash(uuid.New(), caffeine, mg(t, "1g"), journal.StashParams{})
		require.NoError(t, err)
		assert.ErrorIs(t, stashes.Update(ctx, ghost), shared.ErrNotFound)
	})
}

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	accounts := NewGormAccountRepository(db)
	roles := NewGormRoleRepository(db)

	userRole, err := identity.NewSystemRole("user", "User")
	require.NoError(t, err)
	require.NoError(t, userRole.SetPermissions([]string{"ingestion:read", "ingestion:write"}))
	require.NoError(t, roles.Create(ctx, userRole))

	account, err := identity.NewAccount("Alice_01", "Alice@Example.com", "password1", plainHasher{})
	require.NoError(t, err)
	require.NoError(t, account.AssignRole(userRole.ID))
	require.NoError(t, accounts.Create(ctx, account))

	loaded, err := accounts.FindByUsername(ctx, "ALICE_01")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", loaded.Email)
	assert.Equal(t, []uuid.UUID{userRole.ID}, loaded.RoleIDs)

	_, err = accounts.FindByEmail(ctx, "")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	taken, err := accounts.ExistsByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, taken)

	byRole, total, err := accounts.FindAll(ctx, identity.AccountFilter{RoleID: &userRole.ID, SortBy: "username"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, account.ID, byRole[0].ID)

	count, err := roles.CountAccountsWithRole(ctx, userRole.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	role, err := roles.FindByCode(ctx, "USER")
	require.NoError(t, err)
	assert.True(t, role.HasPermission("ingestion:write"))

	subjects := NewGormSubjectRepository(db)
	subject := identity.NewSubject(account.ID)
	weight := decimal.NewFromFloat(72.5)
	require.NoError(t, subject.Apply(identity.SubjectUpdate{FirstName: "Alice", Weight: &weight}))
	require.NoError(t, subjects.Save(ctx, subject))

	loadedSubject, err := subjects.FindByAccountID(ctx, account.ID)
	require.NoError(t, err)
	kg, ok := loadedSubject.WeightKg()
	assert.True(t, ok)
	assert.True(t, kg.Equal(weight))

	require.NoError(t, accounts.Delete(ctx, account.ID))
	_, err = accounts.FindByID(ctx, account.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = subjects.FindByAccountID(ctx, account.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAccountRepository_DuplicateInsert(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	accounts := NewGormAccountRepository(db)

	first, err := identity.NewAccount("alice_01", "alice@example.com", "password1", plainHasher{})
	require.NoError(t, err)
	require.NoError(t, accounts.Create(ctx, first))

	sameName, err := identity.NewAccount("alice_01", "other@example.com", "password1", plainHasher{})
	require.NoError(t, err)
	assert.ErrorIs(t, accounts.Create(ctx, sameName), identity.ErrUsernameTaken)

	sameEmail, err := identity.NewAccount("bob_0001", "alice@example.com", "password1", plainHasher{})
	require.NoError(t, err)
	assert.ErrorIs(t, accounts.Create(ctx, sameEmail), identity.ErrEmailTaken)

	t.Run("inside a transaction", func(t *testing.T) {
		err := db.Transaction(func(tx *gorm.DB) error {
			repo := NewGormAccountRepository(tx)
			assert.ErrorIs(t, repo.Create(ctx, sameName), identity.ErrUsernameTaken)

			fresh, err := identity.NewAccount("carol_01", "carol@example.com", "password1", plainHasher{})
			require.NoError(t, err)
			return repo.Create(ctx, fresh)
		})
		require.NoError(t, err)

		taken, err := accounts.ExistsByUsername(ctx, "carol_01")
		require.NoError(t, err)
		assert.True(t, taken)
	})
}
