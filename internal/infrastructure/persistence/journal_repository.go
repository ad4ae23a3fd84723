package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/journal"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormIngestionRepository implements IngestionRepository using GORM
type GormIngestionRepository struct {
	db *gorm.DB
}

// NewGormIngestionRepository creates a new GormIngestionRepository
func NewGormIngestionRepository(db *gorm.DB) *GormIngestionRepository {
	return &GormIngestionRepository{db: db}
}

// Create creates a new ingestion
func (r *GormIngestionRepository) Create(ctx context.Context, i *journal.Ingestion) error {
	if err := r.db.WithContext(ctx).Create(models.IngestionModelFromDomain(i)).Error; err != nil {
		return err
	}
	i.MarkPersisted()
	return nil
}

// Update updates an existing ingestion unless another writer changed it first
func (r *GormIngestionRepository) Update(ctx context.Context, i *journal.Ingestion) error {
	return updateVersioned(r.db.WithContext(ctx), &i.BaseAggregateRoot, func() any {
		return models.IngestionModelFromDomain(i)
	})
}

// Delete deletes an ingestion by ID
func (r *GormIngestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(r.db.WithContext(ctx), &models.IngestionModel{}, id)
}

// FindByID finds an ingestion by ID
func (r *GormIngestionRepository) FindByID(ctx context.Context, id uuid.UUID) (*journal.Ingestion, error) {
	var model models.IngestionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists an account's ingestions, newest first unless sorted otherwise
func (r *GormIngestionRepository) FindAll(ctx context.Context, filter journal.IngestionFilter) ([]*journal.Ingestion, int64, error) {
	var ingestionModels []models.IngestionModel
	var total int64

	query := r.db.WithContext(ctx).Model(&models.IngestionModel{}).Where("account_id = ?", filter.AccountID)
	if filter.From != nil {
		query = query.Where("ingested_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("ingested_at < ?", *filter.To)
	}
	if filter.SubstanceID != nil {
		query = query.Where("substance_id = ?", *filter.SubstanceID)
	}
	if filter.Route != nil {
		query = query.Where("route = ?", *filter.Route)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order(ingestionSort.OrderBy(filter.SortBy, filter.SortOrder)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&ingestionModels).Error; err != nil {
		return nil, 0, err
	}
	return ingestionsToDomain(ingestionModels), total, nil
}

// FindSince returns an account's ingestions at or after since, oldest first
func (r *GormIngestionRepository) FindSince(ctx context.Context, accountID uuid.UUID, since time.Time) ([]*journal.Ingestion, error) {
	var ingestionModels []models.IngestionModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND ingested_at >= ?", accountID, since).
		Order("ingested_at ASC").
		Find(&ingestionModels).Error; err != nil {
		return nil, err
	}
	return ingestionsToDomain(ingestionModels), nil
}

// FindAccountsLoggedSince returns accounts with entries created at or after since
func (r *GormIngestionRepository) FindAccountsLoggedSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.IngestionModel{}).
		Where("created_at >= ?", since).
		Distinct().
		Order("account_id").
		Pluck("account_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteByAccount removes every entry of an account
func (r *GormIngestionRepository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&models.IngestionModel{}).Error
}

func ingestionsToDomain(ingestionModels []models.IngestionModel) []*journal.Ingestion {
	ingestions := make([]*journal.Ingestion, len(ingestionModels))
	for i := range ingestionModels {
		ingestions[i] = ingestionModels[i].ToDomain()
	}
	return ingestions
}

// GormStashRepository implements StashRepository using GORM
type GormStashRepository struct {
	db *gorm.DB
}

// NewGormStashRepository creates a new GormStashRepository
func NewGormStashRepository(db *gorm.DB) *GormStashRepository {
	return &GormStashRepository{db: db}
}

// Create creates a new stash
func (r *GormStashRepository) Create(ctx context.Context, s *journal.Stash) error {
	if err := r.db.WithContext(ctx).Create(models.StashModelFromDomain(s)).Error; err != nil {
		return err
	}
	s.MarkPersisted()
	return nil
}

// Update updates an existing stash unless another writer changed it first
func (r *GormStashRepository) Update(ctx context.Context, s *journal.Stash) error {
	return updateVersioned(r.db.WithContext(ctx), &s.BaseAggregateRoot, func() any {
		return models.StashModelFromDomain(s)
	})
}

// Delete deletes a stash by ID. Ingestions drawn from it keep their history.
func (r *GormStashRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.IngestionModel{}).
			Where("stash_id = ?", id).
			Update("stash_id", nil).Error; err != nil {
			return err
		}
		return deleteByID(tx, &models.StashModel{}, id)
	})
}

// FindByID finds a stash by ID
func (r *GormStashRepository) FindByID(ctx context.Context, id uuid.UUID) (*journal.Stash, error) {
	var model models.StashModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists an account's stashes
func (r *GormStashRepository) FindAll(ctx context.Context, filter journal.StashFilter) ([]*journal.Stash, int64, error) {
	var stashModels []models.StashModel
	var total int64

	query := r.db.WithContext(ctx).Model(&models.StashModel{}).Where("account_id = ?", filter.AccountID)
	if filter.SubstanceID != nil {
		query = query.Where("substance_id = ?", *filter.SubstanceID)
	}
	if !filter.IncludeExpired {
		query = query.Where("expired_at IS NULL")
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

	if err := query.Order("substance_name ASC, created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&stashModels).Error; err != nil {
		return nil, 0, err
	}
	return stashesToDomain(stashModels), total, nil
}

// FindExpiredUnmarked returns stashes past expiry that the sweep has not flagged yet
func (r *GormStashRepository) FindExpiredUnmarked(ctx context.Context, now time.Time, limit int) ([]*journal.Stash, error) {
	var stashModels []models.StashModel
	if limit <= 0 {
		limit = 100
	}
	if err := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ? AND expired_at IS NULL", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&stashModels).Error; err != nil {
		return nil, err
	}
	return stashesToDomain(stashModels), nil
}

// DeleteByAccount removes every stash of an account
func (r *GormStashRepository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&models.StashModel{}).Error
}

func stashesToDomain(stashModels []models.StashModel) []*journal.Stash {
	stashes := make([]*journal.Stash, len(stashModels))
	for i := range stashModels {
		stashes[i] = stashModels[i].ToDomain()
	}
	return stashes
}

func deleteByID(tx *gorm.DB, model any, id uuid.UUID) error {
	result := tx.Delete(model, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure the repositories implement their interfaces
var (
	_ journal.IngestionRepository = (*GormIngestionRepository)(nil)
	_ journal.StashRepository     = (*GormStashRepository)(nil)
)
