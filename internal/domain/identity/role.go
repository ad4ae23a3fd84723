package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/neuronek/backend/internal/domain/shared"
)

var (
	roleCodePattern       = regexp.MustCompile(`^[a-z][a-z0-9_]{1,49}$`)
	permissionPartPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Permission is a resource:action pair granted through roles
type Permission struct {
	Code        string // e.g. "substance:write"
	Resource    string
	Action      string
	Description string
}

// NewPermission creates a new Permission value object
func NewPermission(resource, action string) (*Permission, error) {
	resource = strings.ToLower(strings.TrimSpace(resource))
	action = strings.ToLower(strings.TrimSpace(action))

	if len(resource) > 50 || !permissionPartPattern.MatchString(resource) {
		return nil, shared.NewDomainError("INVALID_PERMISSION_RESOURCE", "Permission resource must start with a letter and contain only lowercase letters, numbers and underscores")
	}
	if action != "*" && (len(action) > 50 || !permissionPartPattern.MatchString(action)) {
		return nil, shared.NewDomainError("INVALID_PERMISSION_ACTION", "Permission action must start with a letter and contain only lowercase letters, numbers and underscores")
	}

	return &Permission{
		Code:     resource + ":" + action,
		Resource: resource,
		Action:   action,
	}, nil
}

// NewPermissionFromCode parses a "resource:action" string
func NewPermissionFromCode(code string) (*Permission, error) {
	resource, action, ok := strings.Cut(code, ":")
	if !ok {
		return nil, shared.NewDomainError("INVALID_PERMISSION_CODE", "Permission code must be in format 'resource:action'")
	}
	return NewPermission(resource, action)
}

// Role groups permissions that are assigned to accounts
type Role struct {
	shared.BaseAggregateRoot
	Code         string
	Name         string
	Description  string
	IsSystemRole bool // System roles cannot be deleted or disabled
	IsEnabled    bool
	Permissions  []Permission
}

// NewRole creates a new role with required fields
func NewRole(code, name string) (*Role, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if !roleCodePattern.MatchString(code) {
		return nil, shared.NewDomainError("INVALID_ROLE_CODE", "Role code must start with a letter and contain 2-50 lowercase letters, numbers or underscores")
	}
	if err := validateRoleName(name); err != nil {
		return nil, err
	}

	role := &Role{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              strings.TrimSpace(name),
		IsEnabled:         true,
		Permissions:       make([]Permission, 0),
	}

	role.AddDomainEvent(NewRoleCreatedEvent(role))

	return role, nil
}

// NewSystemRole creates a new system role
func NewSystemRole(code, name string) (*Role, error) {
	role, err := NewRole(code, name)
	if err != nil {
		return nil, err
	}
	role.IsSystemRole = true
	return role, nil
}

// Update updates the role's basic information
func (r *Role) Update(name, description string) error {
	if err := validateRoleName(name); err != nil {
		return err
	}

	r.Name = strings.TrimSpace(name)
	r.Description = description
	r.touch()

	r.AddDomainEvent(NewRoleUpdatedEvent(r))

	return nil
}

// Enable enables the role
func (r *Role) Enable() {
	if r.IsEnabled {
		return
	}
	r.IsEnabled = true
	r.touch()
	r.AddDomainEvent(NewRoleUpdatedEvent(r))
}

// Disable disables the role
func (r *Role) Disable() error {
	if r.IsSystemRole {
		return ErrSystemRole
	}
	if !r.IsEnabled {
		return nil
	}
	r.IsEnabled = false
	r.touch()
	r.AddDomainEvent(NewRoleUpdatedEvent(r))
	return nil
}

// SetPermissions replaces all permissions, dropping duplicates
func (r *Role) SetPermissions(codes []string) error {
	seen := make(map[string]bool, len(codes))
	perms := make([]Permission, 0, len(codes))
	for _, code := range codes {
		perm, err := NewPermissionFromCode(code)
		if err != nil {
			return err
		}
		if !seen[perm.Code] {
			seen[perm.Code] = true
			perms = append(perms, *perm)
		}
	}

	r.Permissions = perms
	r.touch()

	r.AddDomainEvent(NewRolePermissionsChangedEvent(r))

	return nil
}

// GrantPermission adds a single permission
func (r *Role) GrantPermission(code string) error {
	if r.HasPermission(code) {
		return nil
	}
	perm, err := NewPermissionFromCode(code)
	if err != nil {
		return err
	}
	r.Permissions = append(r.Permissions, *perm)
	r.touch()
	return nil
}

// HasPermission checks for an exact permission or a resource wildcard
func (r *Role) HasPermission(code string) bool {
	resource, _, _ := strings.Cut(code, ":")
	for _, p := range r.Permissions {
		if p.Code == code || (p.Action == "*" && p.Resource == resource) {
			return true
		}
	}
	return false
}

// PermissionCodes returns the codes of all granted permissions
func (r *Role) PermissionCodes() []string {
	codes := make([]string, len(r.Permissions))
	for i, p := range r.Permissions {
		codes[i] = p.Code
	}
	return codes
}

// CanDelete returns an error when the role must be kept
func (r *Role) CanDelete() error {
	if r.IsSystemRole {
		return ErrSystemRole
	}
	return nil
}

// MarkDeleted records the deletion of the role
func (r *Role) MarkDeleted() {
	r.AddDomainEvent(NewRoleDeletedEvent(r))
}

func (r *Role) touch() {
	r.Touch(time.Now())
}

func validateRoleName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot exceed 100 characters")
	}
	return nil
}

// Predefined system role codes
const (
	RoleCodeAdministrator = "administrator"
	RoleCodeUser          = "user"
	RoleCodeModerator     = "moderator"
)

// Predefined resources
const (
	ResourceAccount   = "account"
	ResourceRole      = "role"
	ResourceSubstance = "substance"
	ResourceJournal   = "journal"
	ResourceSystem    = "system"
)

// Predefined actions
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionAssign = "assign"
	ActionAll    = "*"
)
