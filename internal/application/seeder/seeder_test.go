package seeder

import (
	"context"
	"errors"
	"testing"

	substanceapp "github.com/neuronek/backend/internal/application/substance"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/infrastructure/cache"
	"github.com/neuronek/backend/internal/infrastructure/config"
	"github.com/neuronek/backend/internal/infrastructure/persistence"
	"github.com/neuronek/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newSeeder(t *testing.T) (*Seeder, *substanceapp.SubstanceService, *gorm.DB) {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.DB.AutoMigrate(models.All()...))

	substances := persistence.NewGormSubstanceRepository(db.DB)
	effects := persistence.NewGormEffectRepository(db.DB)
	scope := persistence.NewSubstanceScope(persistence.NewUnitOfWork(db.DB))
	catalogue := substanceapp.NewSubstanceService(scope, substances, effects, nil, cache.NewInMemoryCache(), nil,
		substanceapp.ServiceConfig{}, zap.NewNop())

	return New(persistence.NewGormRoleRepository(db.DB), catalogue, zap.NewNop()), catalogue, db.DB
}

func TestLoadKnowledgeBase(t *testing.T) {
	kb, err := LoadKnowledgeBase()
	require.NoError(t, err)

	names := make([]string, 0, len(kb.Substances))
	slugs := make(map[string]bool, len(kb.Effects))
	for _, e := range kb.Effects {
		slugs[e.Slug] = true
	}
	for _, s := range kb.Substances {
		names = append(names, s.Name)
		assert.NotEmpty(t, s.Routes, s.Name)
		for _, slug := range s.Effects {
			assert.True(t, slugs[slug], "%s links unknown effect %s", s.Name, slug)
		}
	}
	assert.ElementsMatch(t, []string{"Amphetamine", "Caffeine", "LSD", "MDMA"}, names)
}

func TestSeeder_Run(t *testing.T) {
	ctx := context.Background()
	seeder, catalogue, db := newSeeder(t)

	first, err := seeder.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, first.RolesCreated)
	assert.Equal(t, 10, first.EffectsCreated)
	assert.Equal(t, 4, first.SubstancesCreated)
	assert.Positive(t, first.Links)

	second, err := seeder.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.RolesCreated)
	assert.Equal(t, 3, second.RolesSkipped)
	assert.Zero(t, second.EffectsCreated)
	assert.Equal(t, 4, second.SubstancesSkipped)

	roles := persistence.NewGormRoleRepository(db)
	admin, err := roles.FindByCode(ctx, identity.RoleCodeAdministrator)
	require.NoError(t, err)
	assert.True(t, admin.IsSystemRole)
	assert.True(t, admin.HasPermission("system:write"))

	moderator, err := roles.FindByCode(ctx, identity.RoleCodeModerator)
	require.NoError(t, err)
	assert.False(t, moderator.IsSystemRole)
	assert.True(t, moderator.HasPermission("substance:write"))

	lsd, err := catalogue.Get(ctx, "lsd")
	require.NoError(t, err)
	require.Len(t, lsd.Routes, 1)
	assert.Equal(t, "sublingual", lsd.Routes[0].Route)
	assert.Equal(t, "15 ug", *lsd.Routes[0].Dosages[0].Min)

	linked, err := catalogue.ListSubstanceEffects(ctx, "mdma")
	require.NoError(t, err)
	assert.Len(t, linked, 5)

	result, err := catalogue.ClassifyDosage(ctx, substanceapp.ClassifyInput{Substance: "caffeine", Dosage: "100mg"})
	require.NoError(t, err)
	assert.Equal(t, "medium", result.Classification)
}

type failingRoles struct {
	identity.RoleRepository
}

func (failingRoles) ExistsByCode(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestSeeder_SeedRoles_Error(t *testing.T) {
	seeder := New(failingRoles{}, nil, zap.NewNop())
	_, err := seeder.Run(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}
