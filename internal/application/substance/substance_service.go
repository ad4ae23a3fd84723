package substance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/neuronek/backend/internal/infrastructure/cache"
	"github.com/neuronek/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	cachePrefix     = "substance:"
	defaultCacheTTL = 5 * time.Minute
	defaultRouteCap = 20
	maxRouteCap     = 100
)

// DosageRecorder counts dosage classifications
type DosageRecorder interface {
	DosageClassified(classification string)
}

// ServiceConfig contains configuration for the substance service
type ServiceConfig struct {
	CacheTTL time.Duration
}

// SubstanceService manages the substance catalogue and effect index
type SubstanceService struct {
	scope      TransactionScope
	substances substance.SubstanceRepository
	effects    substance.EffectRepository
	subjects   identity.SubjectRepository
	cache      cache.Cache
	recorder   DosageRecorder
	ttl        time.Duration
	logger     *zap.Logger
}

// NewSubstanceService creates a new substance service. cache and recorder may be nil.
func NewSubstanceService(
	scope TransactionScope,
	substances substance.SubstanceRepository,
	effects substance.EffectRepository,
	subjects identity.SubjectRepository,
	c cache.Cache,
	recorder DosageRecorder,
	config ServiceConfig,
	logger *zap.Logger,
) *SubstanceService {
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &SubstanceService{
		scope:      scope,
		substances: substances,
		effects:    effects,
		subjects:   subjects,
		cache:      c,
		recorder:   recorder,
		ttl:        ttl,
		logger:     logger,
	}
}

// Get returns a substance with its routes by id or name
func (s *SubstanceService) Get(ctx context.Context, idOrName string) (*SubstanceDTO, error) {
	key := cachePrefix + "get:" + strings.ToLower(strings.TrimSpace(idOrName))
	dto, err := cache.ReadThrough(ctx, s.cache, key, s.ttl, func(ctx context.Context) (SubstanceDTO, error) {
		sub, err := s.findSubstance(ctx, s.substances, idOrName)
		if err != nil {
			return SubstanceDTO{}, err
		}
		return ToSubstanceDTO(sub), nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// List returns a page of substances without their routes
func (s *SubstanceService) List(ctx context.Context, filter substance.SubstanceFilter) (*SubstanceListResult, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	filter.PageSize = filter.Limit()

	key := fmt.Sprintf("%slist:%s:%s:%d:%d:%s:%s", cachePrefix,
		strings.ToLower(filter.Keyword), strings.ToLower(filter.PsychoactiveClass),
		filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)

	result, err := cache.ReadThrough(ctx, s.cache, key, s.ttl, func(ctx context.Context) (SubstanceListResult, error) {
		items, total, err := s.substances.FindAll(ctx, filter)
		if err != nil {
			return SubstanceListResult{}, err
		}
		dtos := make([]SubstanceDTO, len(items))
		for i, item := range items {
			dtos[i] = ToSubstanceDTO(item)
		}
		return SubstanceListResult{
			Substances: dtos,
			Total:      total,
			Page:       filter.Page,
			PageSize:   filter.PageSize,
			TotalPages: totalPages(total, filter.PageSize),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Create adds a substance with its routes
func (s *SubstanceService) Create(ctx context.Context, input SubstanceInput) (*SubstanceDTO, error) {
	sub, err := substance.NewSubstance(input.Name, input.details())
	if err != nil {
		return nil, err
	}
	routes, err := input.routes()
	if err != nil {
		return nil, err
	}
	if err := sub.ReplaceRoutes(routes); err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.Substances().ExistsByName(ctx, sub.Name)
		if err != nil {
			return err
		}
		if exists {
			return substance.ErrSubstanceExists
		}
		if err := repos.Substances().Create(ctx, sub); err != nil {
			return err
		}
		return repos.Events().Record(ctx, sub.PullDomainEvents()...)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.logger.Info("Substance created",
		zap.String("substance_id", sub.ID.String()),
		zap.String("name", sub.Name),
		zap.Int("routes", len(sub.Routes)))

	dto := ToSubstanceDTO(sub)
	return &dto, nil
}

// Update replaces a substance's details; routes are replaced when given
func (s *SubstanceService) Update(ctx context.Context, idOrName string, input SubstanceInput) (*SubstanceDTO, error) {
	var sub *substance.Substance
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		sub, err = s.findSubstance(ctx, repos.Substances(), idOrName)
		if err != nil {
			return err
		}

		oldName := sub.Name
		if err := sub.Update(input.Name, input.details()); err != nil {
			return err
		}
		if sub.Name != oldName {
			exists, err := repos.Substances().ExistsByName(ctx, sub.Name)
			if err != nil {
				return err
			}
			if exists {
				return substance.ErrSubstanceExists
			}
		}

		if input.Routes != nil {
			routes, err := input.routes()
			if err != nil {
				return err
			}
			if err := sub.ReplaceRoutes(routes); err != nil {
				return err
			}
		}

		if err := repos.Substances().Update(ctx, sub); err != nil {
			return err
		}
		return repos.Events().Record(ctx, sub.PullDomainEvents()...)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.logger.Info("Substance updated", zap.String("substance_id", sub.ID.String()))

	dto := ToSubstanceDTO(sub)
	return &dto, nil
}

// Delete removes a substance with its routes and effect links
func (s *SubstanceService) Delete(ctx context.Context, idOrName string) error {
	var id uuid.UUID
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		sub, err := s.findSubstance(ctx, repos.Substances(), idOrName)
		if err != nil {
			return err
		}
		id = sub.ID
		sub.MarkDeleted()
		if err := repos.Substances().Delete(ctx, sub.ID); err != nil {
			return err
		}
		return repos.Events().Record(ctx, sub.PullDomainEvents()...)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.logger.Info("Substance deleted", zap.String("substance_id", id.String()))
	return nil
}

// RouteQuery lists routes; Substance narrows the listing to one substance by id or name
type RouteQuery struct {
	Substance string
	Include   string
	Sort      string
	Limit     int
	Offset    int
}

// ListRoutes lists routes of administration, optionally for one substance
func (s *SubstanceService) ListRoutes(ctx context.Context, query RouteQuery) (*RouteListResult, error) {
	field, order, err := substance.ParseSort(query.Sort)
	if err != nil {
		return nil, err
	}
	filter := substance.RouteFilter{
		Limit:     query.Limit,
		Offset:    query.Offset,
		SortField: field,
		SortOrder: order,
	}
	filter.IncludeDosage, filter.IncludePhase = substance.ParseIncludes(query.Include)
	if filter.Limit <= 0 {
		filter.Limit = defaultRouteCap
	}
	if filter.Limit > maxRouteCap {
		filter.Limit = maxRouteCap
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	if strings.TrimSpace(query.Substance) != "" {
		sub, err := s.Get(ctx, query.Substance)
		if err != nil {
			return nil, err
		}
		filter.SubstanceID = &sub.ID
	}

	key := fmt.Sprintf("%sroutes:%v:%s:%t:%t:%d:%d:%s:%s", cachePrefix,
		filter.SubstanceID, filter.SubstanceName, filter.IncludeDosage, filter.IncludePhase,
		filter.Limit, filter.Offset, filter.SortField, filter.SortOrder)

	result, err := cache.ReadThrough(ctx, s.cache, key, s.ttl, func(ctx context.Context) (RouteListResult, error) {
		routes, total, err := s.substances.ListRoutes(ctx, filter)
		if err != nil {
			return RouteListResult{}, err
		}
		dtos := make([]RouteDTO, len(routes))
		for i, r := range routes {
			dtos[i] = ToRouteDTO(r)
		}
		return RouteListResult{Routes: dtos, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRoute returns one route of a substance with its dosages and phases
func (s *SubstanceService) GetRoute(ctx context.Context, idOrName, route string) (*RouteDTO, error) {
	classification, err := substance.ParseRouteOrDefault(route)
	if err != nil {
		return nil, err
	}
	sub, err := s.Get(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	for i := range sub.Routes {
		if sub.Routes[i].Route == string(classification) {
			r := sub.Routes[i]
			r.SubstanceName = sub.Name
			return &r, nil
		}
	}
	return nil, substance.ErrRouteNotFound
}

// ClassifyDosage reports the dosage band of a mass on a route. Per-kilogram
// bands use the caller's subject weight and are skipped when it is unknown.
func (s *SubstanceService) ClassifyDosage(ctx context.Context, input ClassifyInput) (result *ClassificationResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "substance.classify_dosage",
		telemetry.AttrSubstance.String(input.Substance),
		telemetry.AttrAccountID.String(input.AccountID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	mass, err := substance.ParseMass(input.Dosage)
	if err != nil {
		return nil, err
	}
	classification, err := substance.ParseRouteOrDefault(input.Route)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(telemetry.AttrRoute.String(string(classification)))

	sub, err := s.findSubstance(ctx, s.substances, input.Substance)
	if err != nil {
		return nil, err
	}
	route, err := sub.Route(classification)
	if err != nil {
		return nil, err
	}

	result = &ClassificationResult{
		SubstanceID: sub.ID,
		Substance:   sub.Name,
		Route:       string(classification),
		Dosage:      mass.String(),
	}

	var weight *decimal.Decimal
	if w, ok := s.subjectWeight(ctx, input.AccountID); ok {
		weight = &w
		result.WeightKg = weight
	}

	band, ok := route.ClassifyDosage(mass, weight)
	result.Classified = ok
	if ok {
		result.Classification = string(band)
		if s.recorder != nil {
			s.recorder.DosageClassified(result.Classification)
		}
	}
	return result, nil
}

func (s *SubstanceService) subjectWeight(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, bool) {
	if s.subjects == nil || accountID == uuid.Nil {
		return decimal.Decimal{}, false
	}
	subject, err := s.subjects.FindByAccountID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Failed to load subject weight", zap.String("account_id", accountID.String()), zap.Error(err))
		}
		return decimal.Decimal{}, false
	}
	return subject.WeightKg()
}

// CreateEffect adds an effect to the index
func (s *SubstanceService) CreateEffect(ctx context.Context, input EffectInput) (*EffectDTO, error) {
	effect, err := substance.NewEffect(input.Name, input.Slug, input.details())
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.Effects().FindBySlug(ctx, effect.Slug); err == nil {
			return substance.ErrEffectExists
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		return repos.Effects().Create(ctx, effect)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	dto := ToEffectDTO(effect)
	return &dto, nil
}

// GetEffect returns an effect by id or slug
func (s *SubstanceService) GetEffect(ctx context.Context, idOrSlug string) (*EffectDTO, error) {
	key := cachePrefix + "effect:" + strings.ToLower(strings.TrimSpace(idOrSlug))
	dto, err := cache.ReadThrough(ctx, s.cache, key, s.ttl, func(ctx context.Context) (EffectDTO, error) {
		effect, err := s.findEffect(ctx, s.effects, idOrSlug)
		if err != nil {
			return EffectDTO{}, err
		}
		return ToEffectDTO(effect), nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// ListEffects returns a page of effects
func (s *SubstanceService) ListEffects(ctx context.Context, filter substance.EffectFilter) (*EffectListResult, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	items, total, err := s.effects.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	dtos := make([]EffectDTO, len(items))
	for i, item := range items {
		dtos[i] = ToEffectDTO(item)
	}
	return &EffectListResult{
		Effects:    dtos,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages(total, filter.PageSize),
	}, nil
}

// UpdateEffect replaces an effect's fields
func (s *SubstanceService) UpdateEffect(ctx context.Context, idOrSlug string, input EffectInput) (*EffectDTO, error) {
	var effect *substance.Effect
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		effect, err = s.findEffect(ctx, repos.Effects(), idOrSlug)
		if err != nil {
			return err
		}
		oldSlug := effect.Slug
		if err := effect.Update(input.Name, input.Slug, input.details()); err != nil {
			return err
		}
		if effect.Slug != oldSlug {
			if other, err := repos.Effects().FindBySlug(ctx, effect.Slug); err == nil && other.ID != effect.ID {
				return substance.ErrEffectExists
			} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
		}
		return repos.Effects().Update(ctx, effect)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	dto := ToEffectDTO(effect)
	return &dto, nil
}

// DeleteEffect removes an effect and its substance links
func (s *SubstanceService) DeleteEffect(ctx context.Context, idOrSlug string) error {
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		effect, err := s.findEffect(ctx, repos.Effects(), idOrSlug)
		if err != nil {
			return err
		}
		return repos.Effects().Delete(ctx, effect.ID)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// ListSubstanceEffects returns the effects linked to a substance
func (s *SubstanceService) ListSubstanceEffects(ctx context.Context, idOrName string) ([]EffectDTO, error) {
	sub, err := s.Get(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	key := cachePrefix + "effects-of:" + sub.ID.String()
	return cache.ReadThrough(ctx, s.cache, key, s.ttl, func(ctx context.Context) ([]EffectDTO, error) {
		effects, err := s.effects.ListForSubstance(ctx, sub.ID)
		if err != nil {
			return nil, err
		}
		dtos := make([]EffectDTO, len(effects))
		for i, e := range effects {
			dtos[i] = ToEffectDTO(e)
		}
		return dtos, nil
	})
}

// LinkEffect records that a substance produces an effect
func (s *SubstanceService) LinkEffect(ctx context.Context, substanceRef, effectRef string) error {
	return s.changeLink(ctx, substanceRef, effectRef, substance.EffectRepository.Link)
}

// UnlinkEffect removes the link between a substance and an effect
func (s *SubstanceService) UnlinkEffect(ctx context.Context, substanceRef, effectRef string) error {
	return s.changeLink(ctx, substanceRef, effectRef, substance.EffectRepository.Unlink)
}

func (s *SubstanceService) changeLink(
	ctx context.Context,
	substanceRef, effectRef string,
	change func(substance.EffectRepository, context.Context, uuid.UUID, uuid.UUID) error,
) error {
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		sub, err := s.findSubstance(ctx, repos.Substances(), substanceRef)
		if err != nil {
			return err
		}
		effect, err := s.findEffect(ctx, repos.Effects(), effectRef)
		if err != nil {
			return err
		}
		return change(repos.Effects(), ctx, sub.ID, effect.ID)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *SubstanceService) findSubstance(ctx context.Context, repo substance.SubstanceRepository, ref string) (*substance.Substance, error) {
	ref = strings.TrimSpace(ref)
	var (
		sub *substance.Substance
		err error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		sub, err = repo.FindByID(ctx, id)
	} else {
		sub, err = repo.FindByName(ctx, strings.ToLower(ref))
	}
	if errors.Is(err, shared.ErrNotFound) {
		return nil, substance.ErrSubstanceNotFound
	}
	return sub, err
}

func (s *SubstanceService) findEffect(ctx context.Context, repo substance.EffectRepository, ref string) (*substance.Effect, error) {
	ref = strings.TrimSpace(ref)
	var (
		effect *substance.Effect
		err    error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		effect, err = repo.FindByID(ctx, id)
	} else {
		effect, err = repo.FindBySlug(ctx, substance.Slugify(ref))
	}
	if errors.Is(err, shared.ErrNotFound) {
		return nil, substance.ErrEffectNotFound
	}
	return effect, err
}

func (s *SubstanceService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, cachePrefix); err != nil {
		s.logger.Warn("Failed to invalidate substance cache", zap.Error(err))
	}
}
