package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/neuronek/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const routeColumns = "routes_of_administration.*, substances.name AS substance_name"

// GormSubstanceRepository implements SubstanceRepository using GORM
type GormSubstanceRepository struct {
	db *gorm.DB
}

// NewGormSubstanceRepository creates a new GormSubstanceRepository
func NewGormSubstanceRepository(db *gorm.DB) *GormSubstanceRepository {
	return &GormSubstanceRepository{db: db}
}

// FindByID loads a substance with its routes, dosages and phases
func (r *GormSubstanceRepository) FindByID(ctx context.Context, id uuid.UUID) (*substance.Substance, error) {
	var model models.SubstanceModel
	if err := r.withRoutes(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByName loads a substance by case-insensitive name
func (r *GormSubstanceRepository) FindByName(ctx context.Context, name string) (*substance.Substance, error) {
	var model models.SubstanceModel
	if err := r.withRoutes(r.db.WithContext(ctx)).
		Where("name = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists substances without their routes
func (r *GormSubstanceRepository) FindAll(ctx context.Context, filter substance.SubstanceFilter) ([]*substance.Substance, int64, error) {
	var substanceModels []models.SubstanceModel
	var total int64

	query := r.db.WithContext(ctx).Model(&models.SubstanceModel{})
	if filter.Keyword != "" {
		pattern := likePattern(filter.Keyword)
		query = query.Where("name LIKE ? OR LOWER(CAST(common_names AS TEXT)) LIKE ?", pattern, pattern)
	}
	if filter.PsychoactiveClass != "" {
		query = query.Where("LOWER(CAST(psychoactive_classes AS TEXT)) LIKE ?",
			`%"`+strings.ToLower(strings.TrimSpace(filter.PsychoactiveClass))+`"%`)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order(substanceSort.OrderBy(filter.SortBy, filter.SortOrder)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&substanceModels).Error; err != nil {
		return nil, 0, err
	}

	substances := make([]*substance.Substance, len(substanceModels))
	for i := range substanceModels {
		substances[i] = substanceModels[i].ToDomain()
	}
	return substances, total, nil
}

// Create persists a substance with its routes
func (r *GormSubstanceRepository) Create(ctx context.Context, s *substance.Substance) error {
	model := models.SubstanceModelFromDomain(s)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		return createRoutes(tx, model.Routes)
	})
}

// Update persists a substance and replaces its routes
func (r *GormSubstanceRepository) Update(ctx context.Context, s *substance.Substance) error {
	model := models.SubstanceModelFromDomain(s)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateRow(tx, model); err != nil {
			return err
		}
		if err := deleteRoutes(tx, s.ID); err != nil {
			return err
		}
		return createRoutes(tx, model.Routes)
	})
}

// Delete removes a substance and everything attached to it
func (r *GormSubstanceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("substance_id = ?", id).Delete(&models.SubstanceEffectModel{}).Error; err != nil {
			return err
		}
		if err := deleteRoutes(tx, id); err != nil {
			return err
		}

		result := tx.Delete(&models.SubstanceModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// ExistsByName checks for a case-insensitive name match
func (r *GormSubstanceRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.SubstanceModel{}).
		Where("name = ?", strings.ToLower(strings.TrimSpace(name))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListRoutes lists routes across substances
func (r *GormSubstanceRepository) ListRoutes(ctx context.Context, filter substance.RouteFilter) ([]*substance.RouteOfAdministration, int64, error) {
	var routeModels []models.RouteModel
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.RouteModel{}).
		Joins("JOIN substances ON substances.id = routes_of_administration.substance_id")
	if filter.SubstanceID != nil {
		query = query.Where("routes_of_administration.substance_id = ?", *filter.SubstanceID)
	}
	if filter.SubstanceName != "" {
		query = query.Where("substances.name = ?", strings.ToLower(strings.TrimSpace(filter.SubstanceName)))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Select(routeColumns).
		Order(routeSort.OrderBy(filter.SortField, filter.SortOrder)).
		Order("routes_of_administration.classification ASC")

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	query = query.Limit(limit)
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if filter.IncludeDosage {
		query = query.Preload("Dosages")
	}
	if filter.IncludePhase {
		query = query.Preload("Phases")
	}

	if err := query.Find(&routeModels).Error; err != nil {
		return nil, 0, err
	}

	routes := make([]*substance.RouteOfAdministration, len(routeModels))
	for i := range routeModels {
		route := routeModels[i].ToDomain()
		routes[i] = &route
	}
	return routes, total, nil
}

// FindRoute loads one route of a substance with dosages and phases
func (r *GormSubstanceRepository) FindRoute(ctx context.Context, substanceID uuid.UUID, route substance.Route) (*substance.RouteOfAdministration, error) {
	var model models.RouteModel
	if err := r.db.WithContext(ctx).
		Model(&models.RouteModel{}).
		Select(routeColumns).
		Joins("JOIN substances ON substances.id = routes_of_administration.substance_id").
		Preload("Dosages").
		Preload("Phases").
		Where("routes_of_administration.substance_id = ? AND routes_of_administration.classification = ?", substanceID, route).
		First(&model).Error; err != nil {
		if err = notFound(err); err == shared.ErrNotFound {
			return nil, substance.ErrRouteNotFound
		}
		return nil, err
	}
	result := model.ToDomain()
	return &result, nil
}

func (r *GormSubstanceRepository) withRoutes(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Routes", func(db *gorm.DB) *gorm.DB { return db.Order("classification") }).
		Preload("Routes.Dosages").
		Preload("Routes.Phases")
}

func createRoutes(tx *gorm.DB, routes []models.RouteModel) error {
	if len(routes) == 0 {
		return nil
	}
	var dosages []models.DosageModel
	var phases []models.PhaseModel
	for i := range routes {
		dosages = append(dosages, routes[i].Dosages...)
		phases = append(phases, routes[i].Phases...)
	}

	if err := tx.Omit(clause.Associations).Create(&routes).Error; err != nil {
		return err
	}
	if len(dosages) > 0 {
		if err := tx.Create(&dosages).Error; err != nil {
			return err
		}
	}
	if len(phases) > 0 {
		if err := tx.Create(&phases).Error; err != nil {
			return err
		}
	}
	return nil
}

func deleteRoutes(tx *gorm.DB, substanceID uuid.UUID) error {
	routeIDs := tx.Model(&models.RouteModel{}).Select("id").Where("substance_id = ?", substanceID)
	if err := tx.Where("route_id IN (?)", routeIDs).Delete(&models.DosageModel{}).Error; err != nil {
		return err
	}
	if err := tx.Where("route_id IN (?)", routeIDs).Delete(&models.PhaseModel{}).Error; err != nil {
		return err
	}
	return tx.Where("substance_id = ?", substanceID).Delete(&models.RouteModel{}).Error
}

// GormEffectRepository implements EffectRepository using GORM
type GormEffectRepository struct {
	db *gorm.DB
}

// NewGormEffectRepository creates a new GormEffectRepository
func NewGormEffectRepository(db *gorm.DB) *GormEffectRepository {
	return &GormEffectRepository{db: db}
}

// Create creates a new effect
func (r *GormEffectRepository) Create(ctx context.Context, e *substance.Effect) error {
	var model models.EffectModel
	model.FromDomain(e)
	return r.db.WithContext(ctx).Create(&model).Error
}

// Update updates an existing effect
func (r *GormEffectRepository) Update(ctx context.Context, e *substance.Effect) error {
	var model models.EffectModel
	model.FromDomain(e)
	return updateRow(r.db.WithContext(ctx), &model)
}

// Delete removes an effect and its substance links
func (r *GormEffectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("effect_id = ?", id).Delete(&models.SubstanceEffectModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.EffectModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// FindByID finds an effect by ID
func (r *GormEffectRepository) FindByID(ctx context.Context, id uuid.UUID) (*substance.Effect, error) {
	var model models.EffectModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindBySlug finds an effect by slug
func (r *GormEffectRepository) FindBySlug(ctx context.Context, slug string) (*substance.Effect, error) {
	var model models.EffectModel
	if err := r.db.WithContext(ctx).Where("slug = ?", substance.Slugify(slug)).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists effects
func (r *GormEffectRepository) FindAll(ctx context.Context, filter substance.EffectFilter) ([]*substance.Effect, int64, error) {
	var effectModels []models.EffectModel
	var total int64

	query := r.db.WithContext(ctx).Model(&models.EffectModel{})
	if filter.Keyword != "" {
		pattern := likePattern(filter.Keyword)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(summary) LIKE ?", pattern, pattern)
	}
	if filter.Category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(strings.TrimSpace(filter.Category)))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	if err := query.Order("name ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&effectModels).Error; err != nil {
		return nil, 0, err
	}
	return effectsToDomain(effectModels), total, nil
}

// ListForSubstance lists the effects linked to a substance
func (r *GormEffectRepository) ListForSubstance(ctx context.Context, substanceID uuid.UUID) ([]*substance.Effect, error) {
	var effectModels []models.EffectModel
	if err := r.db.WithContext(ctx).
		Joins("JOIN substance_effects ON substance_effects.effect_id = effects.id").
		Where("substance_effects.substance_id = ?", substanceID).
		Order("effects.name ASC").
		Find(&effectModels).Error; err != nil {
		return nil, err
	}
	return effectsToDomain(effectModels), nil
}

// Link attaches an effect to a substance; linking twice is a no-op
func (r *GormEffectRepository) Link(ctx context.Context, substanceID, effectID uuid.UUID) error {
	link := models.SubstanceEffectModel{
		SubstanceID: substanceID,
		EffectID:    effectID,
		CreatedAt:   time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
}

// Unlink detaches an effect from a substance
func (r *GormEffectRepository) Unlink(ctx context.Context, substanceID, effectID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("substance_id = ? AND effect_id = ?", substanceID, effectID).
		Delete(&models.SubstanceEffectModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func effectsToDomain(effectModels []models.EffectModel) []*substance.Effect {
	effects := make([]*substance.Effect, len(effectModels))
	for i := range effectModels {
		effects[i] = effectModels[i].ToDomain()
	}
	return effects
}

// Ensure the repositories implement their interfaces
var (
	_ substance.SubstanceRepository = (*GormSubstanceRepository)(nil)
	_ substance.EffectRepository    = (*GormEffectRepository)(nil)
)
