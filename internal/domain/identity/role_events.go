package identity

import "github.com/neuronek/backend/internal/domain/shared"

// AggregateTypeRole is the aggregate type of Role events
const AggregateTypeRole = "Role"

// Role domain event types
const (
	EventTypeRoleCreated            = "role.created"
	EventTypeRoleUpdated            = "role.updated"
	EventTypeRoleDeleted            = "role.deleted"
	EventTypeRolePermissionsChanged = "role.permissions_changed"
)

// RoleCreatedEvent is published when a new role is created
type RoleCreatedEvent struct {
	shared.BaseDomainEvent
	Code         string `json:"code"`
	Name         string `json:"name"`
	IsSystemRole bool   `json:"is_system_role"`
}

// NewRoleCreatedEvent creates a new RoleCreatedEvent
func NewRoleCreatedEvent(role *Role) *RoleCreatedEvent {
	return &RoleCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRoleCreated, AggregateTypeRole, role.ID),
		Code:            role.Code,
		Name:            role.Name,
		IsSystemRole:    role.IsSystemRole,
	}
}

// RoleUpdatedEvent is published when a role is updated
type RoleUpdatedEvent struct {
	shared.BaseDomainEvent
	Code      string `json:"code"`
	Name      string `json:"name"`
	IsEnabled bool   `json:"is_enabled"`
}

// NewRoleUpdatedEvent creates a new RoleUpdatedEvent
func NewRoleUpdatedEvent(role *Role) *RoleUpdatedEvent {
	return &RoleUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRoleUpdated, AggregateTypeRole, role.ID),
		Code:            role.Code,
		Name:            role.Name,
		IsEnabled:       role.IsEnabled,
	}
}

// RoleDeletedEvent is published when a role is deleted
type RoleDeletedEvent struct {
	shared.BaseDomainEvent
	Code string `json:"code"`
}

// NewRoleDeletedEvent creates a new RoleDeletedEvent
func NewRoleDeletedEvent(role *Role) *RoleDeletedEvent {
	return &RoleDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRoleDeleted, AggregateTypeRole, role.ID),
		Code:            role.Code,
	}
}

// RolePermissionsChangedEvent is published when the permission set is replaced
type RolePermissionsChangedEvent struct {
	shared.BaseDomainEvent
	Code        string   `json:"code"`
	Permissions []string `json:"permissions"`
}

// NewRolePermissionsChangedEvent creates a new RolePermissionsChangedEvent
func NewRolePermissionsChangedEvent(role *Role) *RolePermissionsChangedEvent {
	return &RolePermissionsChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRolePermissionsChanged, AggregateTypeRole, role.ID),
		Code:            role.Code,
		Permissions:     role.PermissionCodes(),
	}
}
