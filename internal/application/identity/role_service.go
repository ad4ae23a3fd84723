package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// RoleService handles role management operations
type RoleService struct {
	roles     identity.RoleRepository
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewRoleService creates a new role service; publisher may be nil
func NewRoleService(
	roles identity.RoleRepository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *RoleService {
	return &RoleService{
		roles:     roles,
		publisher: publisher,
		logger:    logger,
	}
}

// Create creates a new role
func (s *RoleService) Create(ctx context.Context, input CreateRoleInput) (*RoleDTO, error) {
	s.logger.Info("Creating role", zap.String("code", input.Code))

	role, err := identity.NewRole(input.Code, input.Name)
	if err != nil {
		return nil, err
	}
	role.Description = input.Description
	if len(input.Permissions) > 0 {
		if err := role.SetPermissions(input.Permissions); err != nil {
			return nil, err
		}
	}

	exists, err := s.roles.ExistsByCode(ctx, role.Code)
	if err != nil {
		s.logger.Error("Failed to check role code", zap.Error(err))
		return nil, err
	}
	if exists {
		return nil, identity.ErrRoleCodeTaken
	}

	if err := s.roles.Create(ctx, role); err != nil {
		s.logger.Error("Failed to create role", zap.Error(err))
		return nil, err
	}
	s.publish(ctx, role)

	dto := ToRoleDTO(role)
	return &dto, nil
}

// Get returns a role with the number of accounts holding it
func (s *RoleService) Get(ctx context.Context, id uuid.UUID) (*RoleDTO, error) {
	role, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	dto := ToRoleDTO(role)
	if count, err := s.roles.CountAccountsWithRole(ctx, id); err == nil {
		dto.AccountCount = count
	}
	return &dto, nil
}

// List returns roles matching filter
func (s *RoleService) List(ctx context.Context, filter identity.RoleFilter) (*RoleListResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	roles, total, err := s.roles.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list roles", zap.Error(err))
		return nil, err
	}

	dtos := make([]RoleDTO, len(roles))
	for i, r := range roles {
		dtos[i] = ToRoleDTO(r)
	}
	return &RoleListResult{
		Roles:      dtos,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages(total, filter.PageSize),
	}, nil
}

// Update changes name, description and enabled state
func (s *RoleService) Update(ctx context.Context, input UpdateRoleInput) (*RoleDTO, error) {
	role, err := s.find(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil || input.Description != nil {
		name, description := role.Name, role.Description
		if input.Name != nil {
			name = *input.Name
		}
		if input.Description != nil {
			description = *input.Description
		}
		if err := role.Update(name, description); err != nil {
			return nil, err
		}
	}
	if input.IsEnabled != nil {
		if *input.IsEnabled {
			role.Enable()
		} else if err := role.Disable(); err != nil {
			return nil, err
		}
	}

	if err := s.roles.Update(ctx, role); err != nil {
		s.logger.Error("Failed to update role", zap.Error(err))
		return nil, err
	}
	s.publish(ctx, role)

	dto := ToRoleDTO(role)
	return &dto, nil
}

// Delete removes a role that is neither a system role nor assigned
func (s *RoleService) Delete(ctx context.Context, id uuid.UUID) error {
	role, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := role.CanDelete(); err != nil {
		return err
	}

	count, err := s.roles.CountAccountsWithRole(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.NewDomainError("ROLE_IN_USE", "Role is assigned to accounts and cannot be deleted")
	}

	role.MarkDeleted()
	if err := s.roles.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete role", zap.Error(err))
		return err
	}
	s.publish(ctx, role)

	s.logger.Info("Role deleted", zap.String("code", role.Code))
	return nil
}

// SetPermissions replaces the permissions of a role
func (s *RoleService) SetPermissions(ctx context.Context, id uuid.UUID, permissions []string) (*RoleDTO, error) {
	role, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := role.SetPermissions(permissions); err != nil {
		return nil, err
	}
	if err := s.roles.Update(ctx, role); err != nil {
		s.logger.Error("Failed to update role permissions", zap.Error(err))
		return nil, err
	}
	s.publish(ctx, role)

	dto := ToRoleDTO(role)
	return &dto, nil
}

func (s *RoleService) find(ctx context.Context, id uuid.UUID) (*identity.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, identity.ErrRoleNotFound
		}
		return nil, err
	}
	return role, nil
}

// publish emits the role's pending events after the change is stored
func (s *RoleService) publish(ctx context.Context, role *identity.Role) {
	events := role.PullDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish role events", zap.String("code", role.Code), zap.Error(err))
	}
}
