package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAccountRepository implements AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// Create creates a new account together with its role assignments. A
// unique-index violation from a concurrent registration comes back as
// identity.ErrUsernameTaken or identity.ErrEmailTaken.
func (r *GormAccountRepository) Create(ctx context.Context, account *identity.Account) error {
	// inside a unit of work this runs under a savepoint, so the outer
	// transaction can still be queried after a violation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.AccountModelFromDomain(account)).Error; err != nil {
			return err
		}
		return saveAccountRoles(tx, account)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return r.duplicateAccount(ctx, account)
	}
	if err != nil {
		return err
	}
	account.MarkPersisted()
	return nil
}

// duplicateAccount names the unique column a failed insert collided with
func (r *GormAccountRepository) duplicateAccount(ctx context.Context, account *identity.Account) error {
	taken, err := r.ExistsByUsername(ctx, account.Username)
	if err != nil {
		return err
	}
	if taken {
		return identity.ErrUsernameTaken
	}
	taken, err = r.ExistsByEmail(ctx, account.Email)
	if err != nil {
		return err
	}
	if taken {
		return identity.ErrEmailTaken
	}
	return shared.ErrAlreadyExists
}

// Update updates an existing account unless another writer changed it first;
// role assignments are saved separately
func (r *GormAccountRepository) Update(ctx context.Context, account *identity.Account) error {
	return updateVersioned(r.db.WithContext(ctx), &account.BaseAggregateRoot, func() any {
		return models.AccountModelFromDomain(account)
	})
}

// Delete deletes an account, its role assignments and its subject profile
func (r *GormAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", id).Delete(&models.AccountRoleModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", id).Delete(&models.SubjectModel{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.AccountModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// FindByID finds an account by ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByUsername finds an account by normalized username
func (r *GormAccountRepository) FindByUsername(ctx context.Context, username string) (*identity.Account, error) {
	return r.findOne(ctx, "username = ?", identity.NormalizeUsername(username))
}

// FindByEmail finds an account by normalized email
func (r *GormAccountRepository) FindByEmail(ctx context.Context, email string) (*identity.Account, error) {
	if strings.TrimSpace(email) == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(ctx, "email = ?", identity.NormalizeEmail(email))
}

func (r *GormAccountRepository) findOne(ctx context.Context, query string, args ...any) (*identity.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	account := model.ToDomain()
	if err := r.loadRoles(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// FindAll returns accounts with pagination
func (r *GormAccountRepository) FindAll(ctx context.Context, filter identity.AccountFilter) ([]*identity.Account, int64, error) {
	var accountModels []*models.AccountModel
	var total int64

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.AccountModel{}), filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(accountSort.OrderBy(filter.SortBy, filter.SortOrder))

	if err := query.Offset(filter.Offset()).Limit(filter.Limit()).Find(&accountModels).Error; err != nil {
		return nil, 0, err
	}

	accounts := make([]*identity.Account, len(accountModels))
	byID := make(map[uuid.UUID]*identity.Account, len(accountModels))
	ids := make([]uuid.UUID, len(accountModels))
	for i, model := range accountModels {
		accounts[i] = model.ToDomain()
		byID[model.ID] = accounts[i]
		ids[i] = model.ID
	}

	if len(ids) > 0 {
		var links []models.AccountRoleModel
		if err := r.db.WithContext(ctx).Where("account_id IN ?", ids).Order("created_at").Find(&links).Error; err != nil {
			return nil, 0, err
		}
		for _, link := range links {
			a := byID[link.AccountID]
			a.RoleIDs = append(a.RoleIDs, link.RoleID)
		}
	}

	return accounts, total, nil
}

// ExistsByUsername checks if a username already exists
func (r *GormAccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", identity.NormalizeUsername(username))
}

// ExistsByEmail checks if an email already exists
func (r *GormAccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, nil
	}
	return r.exists(ctx, "email = ?", identity.NormalizeEmail(email))
}

func (r *GormAccountRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AccountModel{}).
		Where(query, args...).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveAccountRoles replaces the account's role assignments
func (r *GormAccountRepository) SaveAccountRoles(ctx context.Context, account *identity.Account) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", account.ID).Delete(&models.AccountRoleModel{}).Error; err != nil {
			return err
		}
		return saveAccountRoles(tx, account)
	})
}

func saveAccountRoles(tx *gorm.DB, account *identity.Account) error {
	if len(account.RoleIDs) == 0 {
		return nil
	}
	now := time.Now()
	links := make([]models.AccountRoleModel, len(account.RoleIDs))
	for i, roleID := range account.RoleIDs {
		links[i] = models.AccountRoleModel{
			AccountID: account.ID,
			RoleID:    roleID,
			CreatedAt: now,
		}
	}
	return tx.Create(&links).Error
}

// loadRoles loads the account's role IDs
func (r *GormAccountRepository) loadRoles(ctx context.Context, account *identity.Account) error {
	var roleIDs []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.AccountRoleModel{}).
		Where("account_id = ?", account.ID).
		Order("created_at").
		Pluck("role_id", &roleIDs).Error; err != nil {
		return err
	}
	if roleIDs == nil {
		roleIDs = make([]uuid.UUID, 0)
	}
	account.RoleIDs = roleIDs
	return nil
}

// applyFilter applies filter options to the query
func (r *GormAccountRepository) applyFilter(query *gorm.DB, filter identity.AccountFilter) *gorm.DB {
	if filter.Keyword != "" {
		pattern := likePattern(filter.Keyword)
		query = query.Where("LOWER(accounts.username) LIKE ? OR LOWER(accounts.email) LIKE ?", pattern, pattern)
	}

	if filter.Status != nil {
		query = query.Where("accounts.status = ?", *filter.Status)
	}

	if filter.RoleID != nil {
		query = query.Joins("JOIN account_roles ON accounts.id = account_roles.account_id").
			Where("account_roles.role_id = ?", *filter.RoleID)
	}

	return query
}

// GormSubjectRepository implements SubjectRepository using GORM
type GormSubjectRepository struct {
	db *gorm.DB
}

// NewGormSubjectRepository creates a new GormSubjectRepository
func NewGormSubjectRepository(db *gorm.DB) *GormSubjectRepository {
	return &GormSubjectRepository{db: db}
}

// FindByAccountID finds the subject profile of an account
func (r *GormSubjectRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID) (*identity.Subject, error) {
	var model models.SubjectModel
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// Save inserts or updates the subject profile
func (r *GormSubjectRepository) Save(ctx context.Context, subject *identity.Subject) error {
	var model models.SubjectModel
	model.FromDomain(subject)
	return r.db.WithContext(ctx).Save(&model).Error
}

// DeleteByAccountID removes the subject profile of an account
func (r *GormSubjectRepository) DeleteByAccountID(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&models.SubjectModel{}).Error
}

// Ensure the repositories implement their interfaces
var (
	_ identity.AccountRepository = (*GormAccountRepository)(nil)
	_ identity.SubjectRepository = (*GormSubjectRepository)(nil)
)
