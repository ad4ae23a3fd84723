package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRoleRepository implements RoleRepository using GORM
type GormRoleRepository struct {
	db *gorm.DB
}

// NewGormRoleRepository creates a new GormRoleRepository
func NewGormRoleRepository(db *gorm.DB) *GormRoleRepository {
	return &GormRoleRepository{db: db}
}

// Create creates a new role with its permissions
func (r *GormRoleRepository) Create(ctx context.Context, role *identity.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.RoleModelFromDomain(role)).Error; err != nil {
			return err
		}
		return savePermissions(tx, role)
	})
}

// Update updates a role and replaces its permissions
func (r *GormRoleRepository) Update(ctx context.Context, role *identity.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateRow(tx, models.RoleModelFromDomain(role)); err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RolePermissionModel{}).Error; err != nil {
			return err
		}
		return savePermissions(tx, role)
	})
}

// Delete deletes a role by ID
func (r *GormRoleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&models.RolePermissionModel{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.RoleModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// FindByID finds a role by ID
func (r *GormRoleRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Role, error) {
	var model models.RoleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return r.withPermissions(ctx, &model)
}

// FindByCode finds a role by code
func (r *GormRoleRepository) FindByCode(ctx context.Context, code string) (*identity.Role, error) {
	var model models.RoleModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToLower(strings.TrimSpace(code))).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return r.withPermissions(ctx, &model)
}

// FindAll finds roles with optional filtering
func (r *GormRoleRepository) FindAll(ctx context.Context, filter identity.RoleFilter) ([]*identity.Role, int64, error) {
	var roleModels []models.RoleModel
	var total int64

	query := r.db.WithContext(ctx).Model(&models.RoleModel{})
	if filter.Keyword != "" {
		pattern := likePattern(filter.Keyword)
		query = query.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", pattern, pattern)
	}
	if filter.IsEnabled != nil {
		query = query.Where("is_enabled = ?", *filter.IsEnabled)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("is_system_role DESC, code ASC")
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 1 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	if err := query.Find(&roleModels).Error; err != nil {
		return nil, 0, err
	}

	roles, err := r.attachPermissions(ctx, roleModels)
	if err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

// FindByIDs finds multiple roles by IDs
func (r *GormRoleRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*identity.Role, error) {
	if len(ids) == 0 {
		return []*identity.Role{}, nil
	}

	var roleModels []models.RoleModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("code").
		Find(&roleModels).Error; err != nil {
		return nil, err
	}
	return r.attachPermissions(ctx, roleModels)
}

// ExistsByCode checks if a role with the given code exists
func (r *GormRoleRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.RoleModel{}).
		Where("code = ?", strings.ToLower(strings.TrimSpace(code))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountAccountsWithRole counts how many accounts have this role
func (r *GormRoleRepository) CountAccountsWithRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AccountRoleModel{}).
		Where("role_id = ?", roleID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func savePermissions(tx *gorm.DB, role *identity.Role) error {
	if len(role.Permissions) == 0 {
		return nil
	}
	perms := make([]models.RolePermissionModel, len(role.Permissions))
	for i, p := range role.Permissions {
		perms[i].FromDomain(role.ID, p)
	}
	return tx.Create(&perms).Error
}

func (r *GormRoleRepository) withPermissions(ctx context.Context, model *models.RoleModel) (*identity.Role, error) {
	roles, err := r.attachPermissions(ctx, []models.RoleModel{*model})
	if err != nil {
		return nil, err
	}
	return roles[0], nil
}

// attachPermissions converts role models and loads their permissions in one query
func (r *GormRoleRepository) attachPermissions(ctx context.Context, roleModels []models.RoleModel) ([]*identity.Role, error) {
	roles := make([]*identity.Role, len(roleModels))
	byID := make(map[uuid.UUID]*identity.Role, len(roleModels))
	ids := make([]uuid.UUID, len(roleModels))
	for i := range roleModels {
		roles[i] = roleModels[i].ToDomain()
		byID[roleModels[i].ID] = roles[i]
		ids[i] = roleModels[i].ID
	}
	if len(ids) == 0 {
		return roles, nil
	}

	var perms []models.RolePermissionModel
	if err := r.db.WithContext(ctx).
		Where("role_id IN ?", ids).
		Order("code").
		Find(&perms).Error; err != nil {
		return nil, err
	}
	for i := range perms {
		role := byID[perms[i].RoleID]
		role.Permissions = append(role.Permissions, perms[i].ToDomain())
	}
	return roles, nil
}

// Ensure GormRoleRepository implements RoleRepository
var _ identity.RoleRepository = (*GormRoleRepository)(nil)
