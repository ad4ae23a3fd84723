package substance

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/neuronek/backend/internal/infrastructure/cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type substanceFixture struct {
	substances *MockSubstanceRepository
	effects    *MockEffectRepository
	subjects   *stubSubjects
	cache      *cache.InMemoryCache
	events     *capturePublisher
	dosages    *dosageCounter
	service    *SubstanceService
}

func newSubstanceFixture() *substanceFixture {
	f := &substanceFixture{
		substances: new(MockSubstanceRepository),
		effects:    new(MockEffectRepository),
		subjects:   &stubSubjects{byAccount: map[uuid.UUID]*identity.Subject{}},
		cache:      cache.NewInMemoryCache(),
		events:     &capturePublisher{},
		dosages:    &dosageCounter{},
	}
	scope := NewNoOpTransactionScope(f.substances, f.effects, f.events)
	f.service = NewSubstanceService(scope, f.substances, f.effects, f.subjects, f.cache, f.dosages, ServiceConfig{}, zap.NewNop())
	return f
}

func caffeineInput() SubstanceInput {
	return SubstanceInput{
		Name:                "Caffeine",
		CommonNames:         []string{"Coffee", "<b>Guarana</b>"},
		PsychoactiveClasses: []string{"Stimulants"},
		Description:         "<script>alert(1)</script>Found in coffee",
		Routes: []RouteInput{
			{
				Route: "oral",
				Dosages: []DosageInput{
					{Classification: "threshold", Min: "10 mg", Max: "20 mg"},
					{Classification: "light", Min: "20 mg", Max: "50 mg"},
					{Classification: "common", Min: "50 mg", Max: "150 mg"},
					{Classification: "strong", Min: "150 mg", Max: "500 mg"},
					{Classification: "heavy", Min: "500 mg"},
				},
				Phases: []PhaseInput{
					{Classification: "onset", Min: "5m", Max: "10m"},
					{Classification: "peak", Min: "1h", Max: "2h"},
				},
			},
			{
				Route: "Intravenous",
				Dosages: []DosageInput{
					{Classification: "light", Min: "1 mg", Max: "2 mg", PerKilogram: true},
				},
			},
		},
	}
}

func newCaffeine(t *testing.T) *substance.Substance {
	t.Helper()
	input := caffeineInput()
	sub, err := substance.NewSubstance(input.Name, input.details())
	require.NoError(t, err)
	routes, err := input.routes()
	require.NoError(t, err)
	require.NoError(t, sub.ReplaceRoutes(routes))
	sub.ClearDomainEvents()
	return sub
}

func TestSubstanceService_Create(t *testing.T) {
	ctx := context.Background()
	f := newSubstanceFixture()
	require.NoError(t, f.cache.Set(ctx, "substance:get:caffeine", []byte(`{"name":"stale"}`), 0))

	f.substances.On("ExistsByName", mock.Anything, "caffeine").Return(false, nil)
	f.substances.On("Create", mock.Anything, mock.AnythingOfType("*substance.Substance")).Return(nil)

	dto, err := f.service.Create(ctx, caffeineInput())
	require.NoError(t, err)

	assert.Equal(t, "caffeine", dto.Name)
	assert.Equal(t, "Caffeine", dto.DisplayName)
	assert.Equal(t, []string{"Coffee", "Guarana"}, dto.CommonNames)
	assert.Equal(t, "Found in coffee", dto.Description)
	require.Len(t, dto.Routes, 2)
	assert.Equal(t, "oral", dto.Routes[0].Route)
	assert.Equal(t, "medium", dto.Routes[0].Dosages[2].Classification)
	assert.Equal(t, "50 mg", *dto.Routes[0].Dosages[2].Min)
	assert.Equal(t, int64(3600), dto.Routes[0].Phases[1].MinSeconds)
	assert.Equal(t, []string{substance.EventTypeSubstanceCreated}, f.events.types())

	_, ok, _ := f.cache.Get(ctx, "substance:get:caffeine")
	assert.False(t, ok, "writes invalidate cached reads")
}

func TestSubstanceService_Create_Rejects(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate name", func(t *testing.T) {
		f := newSubstanceFixture()
		f.substances.On("ExistsByName", mock.Anything, "caffeine").Return(true, nil)

		_, err := f.service.Create(ctx, caffeineInput())
		assert.ErrorIs(t, err, substance.ErrSubstanceExists)
		assert.Empty(t, f.events.types())
	})

	t.Run("unknown route", func(t *testing.T) {
		f := newSubstanceFixture()
		input := caffeineInput()
		input.Routes[0].Route = "telepathic"

		_, err := f.service.Create(ctx, input)
		assert.ErrorIs(t, err, substance.ErrInvalidRoute)
		f.substances.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("bad phase duration", func(t *testing.T) {
		f := newSubstanceFixture()
		input := caffeineInput()
		input.Routes[0].Phases[0].Max = "soon"

		_, err := f.service.Create(ctx, input)
		assert.ErrorIs(t, err, substance.ErrInvalidPhase)
	})

	t.Run("duplicate route", func(t *testing.T) {
		f := newSubstanceFixture()
		input := caffeineInput()
		input.Routes[1].Route = "ORAL"

		_, err := f.service.Create(ctx, input)
		assert.ErrorIs(t, err, substance.ErrRouteExists)
	})
}

func TestSubstanceService_Get_ReadsThroughCache(t *testing.T) {
	ctx := context.Background()
	f := newSubstanceFixture()
	caffeine := newCaffeine(t)

	f.substances.On("FindByName", mock.Anything, "caffeine").Return(caffeine, nil).Once()

	first, err := f.service.Get(ctx, "Caffeine")
	require.NoError(t, err)
	second, err := f.service.Get(ctx, "caffeine")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Routes, 2)
	f.substances.AssertNumberOfCalls(t, "FindByName", 1)

	f.substances.On("FindByID", mock.Anything, caffeine.ID).Return(caffeine, nil).Once()
	byID, err := f.service.Get(ctx, caffeine.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "caffeine", byID.Name)
}

func TestSubstanceService_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newSubstanceFixture()
	f.substances.On("FindByName", mock.Anything, "unobtainium").Return(nil, shared.ErrNotFound)

	_, err := f.service.Get(ctx, "unobtainium")
	assert.ErrorIs(t, err, substance.ErrSubstanceNotFound)

	_, ok, _ := f.cache.Get(ctx, "substance:get:unobtainium")
	assert.False(t, ok, "misses are not cached")
}

func TestSubstanceService_List(t *testing.T) {
	ctx := context.Background()
	f := newSubstanceFixture()
	filter := substance.SubstanceFilter{Keyword: "caf", Page: 1, PageSize: 20}
	f.substances.On("FindAll", mock.Anything, filter).Return([]*substance.Substance{newCaffeine(t)}, int64(21), nil).Once()

	result, err := f.service.List(ctx, substance.SubstanceFilter{Keyword: "caf"})
	require.NoError(t, err)
	assert.Len(t, result.Substances, 1)
	assert.Equal(t, 2, result.TotalPages)

	_, err = f.service.List(ctx, substance.SubstanceFilter{Keyword: "caf"})
	require.NoError(t, err)
	f.substances.AssertNumberOfCalls(t, "FindAll", 1)
}

func TestSubstanceService_Update(t *testing.T) {
	ctx := context.Background()
	f := newSubstanceFixture()
	caffeine := newCaffeine(t)

	f.substances.On("FindByName", mock.Anything, "caffeine").Return(caffeine, nil)
	f.substances.On("ExistsByName", mock.Anything, "1,3,7-trimethylxanthine").Return(false, nil)
	f.substances.On("Update", mock.Anything, caffeine).Return(nil)

	input := caffeineInput()
	input.Name = "1,3,7-Trimethylxanthine"
	input.Routes = nil

	dto, err := f.service.Update(ctx, "caffeine", input)
	require.NoError(t, err)
	assert.Equal(t, "1,3,7-trimethylxanthine", dto.Name)
	assert.Len(t, dto.Routes, 2, "routes are kept when none are given")
	assert.Equal(t, []string{substance.EventTypeSubstanceUpdated}, f.events.types())
}

func TestSubstanceService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newSubstanceFixture()
	caffeine := newCaffeine(t)

	f.substances.On("FindByID", mock.Anything, caffeine.ID).Return(caffeine, nil)
	f.substances.On("Delete", mock.Anything, caffeine.ID).Return(nil)

	require.NoError(t, f.service.Delete(ctx, caffeine.ID.String()))
	assert.Equal(t, []string{substance.EventTypeSubstanceDeleted}, f.events.types())
}

func TestSubstanceService_ListRoutes(t *testing.T) {
	ctx := context.Background()
	f := newSubstanceFixture()
	caffeine := newCaffeine(t)

	_, err := f.service.ListRoutes(ctx, RouteQuery{Sort: "name:sideways"})
	assert.ErrorIs(t, err, substance.ErrInvalidSort)

	f.substances.On("FindByName", mock.Anything, "caffeine").Return(caffeine, nil)
	expected := substance.RouteFilter{
		SubstanceID:   &caffeine.ID,
		IncludeDosage: true,
		Limit:         100,
		SortField:     "name",
		SortOrder:     "desc",
	}
	oral, _ := caffeine.Route(substance.RouteOral)
	f.substances.On("ListRoutes", mock.Anything, expected).Return([]*substance.RouteOfAdministration{oral}, int64(2), nil)

	result, err := f.service.ListRoutes(ctx, RouteQuery{Substance: "caffeine", Include: "dosage", Sort: "name:desc", Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Total)
	assert.Equal(t, 100, result.Limit)
	require.Len(t, result.Routes, 1)
	assert.Equal(t, "oral", result.Routes[0].Route)
}

func TestSubstanceService_GetRoute(t *testing.T) {
	ctx := context.Background()
	f := newSubstanceFixture()
	f.substances.On("FindByName", mock.Anything, "caffeine").Return(newCaffeine(t), nil)

	route, err := f.service.GetRoute(ctx, "caffeine", "")
	require.NoError(t, err)
	assert.Equal(t, "oral", route.Route)
	assert.Equal(t, "caffeine", route.SubstanceName)

	_, err = f.service.GetRoute(ctx, "caffeine", "smoked")
	assert.ErrorIs(t, err, substance.ErrRouteNotFound)

	_, err = f.service.GetRoute(ctx, "caffeine", "osmosis")
	assert.ErrorIs(t, err, substance.ErrInvalidRoute)
}

func TestSubstanceService_ClassifyDosage(t *testing.T) {
	ctx := context.Background()
	f := newSubstanceFixture()
	caffeine := newCaffeine(t)
	f.substances.On("FindByName", mock.Anything, "caffeine").Return(caffeine, nil)

	tests := []struct {
		name   string
		route  string
		dosage string
		want   string
	}{
		{"common band", "oral", "100 mg", "medium"},
		{"inclusive upper bound", "oral", "0.05 g", "light"},
		{"above every band", "", "2 g", "heavy"},
		{"below every band", "oral", "5 mg", "threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.service.ClassifyDosage(ctx, ClassifyInput{Substance: "caffeine", Route: tt.route, Dosage: tt.dosage})
			require.NoError(t, err)
			assert.True(t, result.Classified)
			assert.Equal(t, tt.want, result.Classification)
			assert.Nil(t, result.WeightKg)
		})
	}
	assert.Equal(t, []string{"medium", "light", "heavy", "threshold"}, f.dosages.bands)
}

func TestSubstanceService_ClassifyDosage_PerKilogram(t *testing.T) {
	ctx := context.Background()
	f := newSubstanceFixture()
	caffeine := newCaffeine(t)
	f.substances.On("FindByName", mock.Anything, "caffeine").Return(caffeine, nil)

	input := ClassifyInput{Substance: "caffeine", Route: "intravenous", Dosage: "100 mg", AccountID: uuid.New()}

	result, err := f.service.ClassifyDosage(ctx, input)
	require.NoError(t, err)
	assert.False(t, result.Classified, "per-kilogram bands need a weight")

	subject := identity.NewSubject(input.AccountID)
	weight := decimal.NewFromInt(70)
	require.NoError(t, subject.Apply(identity.SubjectUpdate{Weight: &weight}))
	f.subjects.byAccount[input.AccountID] = subject

	result, err = f.service.ClassifyDosage(ctx, input)
	require.NoError(t, err)
	assert.True(t, result.Classified)
	assert.Equal(t, "light", result.Classification)
	require.NotNil(t, result.WeightKg)
	assert.True(t, result.WeightKg.Equal(weight))
}

func TestSubstanceService_ClassifyDosage_Errors(t *testing.T) {
	ctx := context.Background()
	f := newSubstanceFixture()
	f.substances.On("FindByName", mock.Anything, "caffeine").Return(newCaffeine(t), nil)
	f.substances.On("FindByName", mock.Anything, "nothing").Return(nil, shared.ErrNotFound)

	_, err := f.service.ClassifyDosage(ctx, ClassifyInput{Substance: "caffeine", Route: "smoked", Dosage: "10 mg"})
	assert.ErrorIs(t, err, substance.ErrRouteNotFound)

	_, err = f.service.ClassifyDosage(ctx, ClassifyInput{Substance: "nothing", Dosage: "10 mg"})
	assert.ErrorIs(t, err, substance.ErrSubstanceNotFound)

	_, err = f.service.ClassifyDosage(ctx, ClassifyInput{Substance: "caffeine", Dosage: "a lot"})
	assert.Error(t, err)
	assert.Empty(t, f.dosages.bands)
}

func TestSubstanceService_Effects(t *testing.T) {
	ctx := context.Background()
	f := newSubstanceFixture()

	f.effects.On("FindBySlug", mock.Anything, "stimulation").Return(nil, shared.ErrNotFound).Once()
	f.effects.On("Create", mock.Anything, mock.AnythingOfType("*substance.Effect")).Return(nil)

	created, err := f.service.CreateEffect(ctx, EffectInput{
		Name:    "Stimulation",
		Summary: "<i>Increased</i> energy",
		Tags:    []string{"physical", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, "stimulation", created.Slug)
	assert.Equal(t, "Increased energy", created.Summary)
	assert.Equal(t, []string{"physical"}, created.Tags)

	existing, err := substance.NewEffect("Stimulation", "", substance.EffectDetails{})
	require.NoError(t, err)
	f.effects.On("FindBySlug", mock.Anything, "stimulation").Return(existing, nil)

	_, err = f.service.CreateEffect(ctx, EffectInput{Name: "Stimulation"})
	assert.ErrorIs(t, err, substance.ErrEffectExists)

	caffeine := newCaffeine(t)
	f.substances.On("FindByName", mock.Anything, "caffeine").Return(caffeine, nil)
	f.effects.On("Link", mock.Anything, caffeine.ID, existing.ID).Return(nil)
	f.effects.On("ListForSubstance", mock.Anything, caffeine.ID).Return([]*substance.Effect{existing}, nil)

	require.NoError(t, f.service.LinkEffect(ctx, "caffeine", "Stimulation"))
	linked, err := f.service.ListSubstanceEffects(ctx, "caffeine")
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, existing.ID, linked[0].ID)

	f.effects.On("FindBySlug", mock.Anything, "euphoria").Return(nil, shared.ErrNotFound)
	assert.ErrorIs(t, f.service.UnlinkEffect(ctx, "caffeine", "euphoria"), substance.ErrEffectNotFound)
}
