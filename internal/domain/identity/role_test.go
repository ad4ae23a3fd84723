package identity

import (
	"strings"
	"testing"

	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestRole(t *testing.T) *Role {
	role, err := NewRole("Test_Role", "Test Role")
	require.NoError(t, err)
	require.NotNil(t, role)
	return role
}

func TestNewPermission(t *testing.T) {
	tests := []struct {
		name     string
		resource string
		action   string
		wantCode string
		wantErr  bool
	}{
		{name: "valid permission", resource: "substance", action: "write", wantCode: "substance:write"},
		{name: "underscored resource", resource: "journal_entry", action: "read", wantCode: "journal_entry:read"},
		{name: "uppercase is normalized", resource: "Role", action: "Assign", wantCode: "role:assign"},
		{name: "wildcard action", resource: "system", action: "*", wantCode: "system:*"},
		{name: "empty resource", resource: "", action: "read", wantErr: true},
		{name: "empty action", resource: "role", action: "", wantErr: true},
		{name: "resource starting with number", resource: "1role", action: "read", wantErr: true},
		{name: "action with hyphen", resource: "role", action: "read-all", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perm, err := NewPermission(tt.resource, tt.action)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, perm.Code)
		})
	}
}

func TestNewPermissionFromCode(t *testing.T) {
	perm, err := NewPermissionFromCode("account:read")
	require.NoError(t, err)
	assert.Equal(t, "account", perm.Resource)
	assert.Equal(t, "read", perm.Action)

	_, err = NewPermissionFromCode("account")
	assert.Error(t, err)
}

func TestNewRole(t *testing.T) {
	t.Run("normalizes code and emits created event", func(t *testing.T) {
		role := createTestRole(t)
		assert.Equal(t, "test_role", role.Code)
		assert.True(t, role.IsEnabled)
		assert.False(t, role.IsSystemRole)

		events := role.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeRoleCreated, events[0].EventType())
	})

	t.Run("rejects invalid codes", func(t *testing.T) {
		for _, code := range []string{"", "a", "1admin", "admin-role", strings.Repeat("a", 51)} {
			_, err := NewRole(code, "Name")
			assert.Error(t, err, code)
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewRole("editor", "  ")
		assert.Error(t, err)
	})
}

func TestRole_SystemRoleProtection(t *testing.T) {
	role, err := NewSystemRole(RoleCodeAdministrator, "Administrator")
	require.NoError(t, err)

	assert.ErrorIs(t, role.Disable(), ErrSystemRole)
	assert.ErrorIs(t, role.CanDelete(), ErrSystemRole)
	assert.True(t, role.IsEnabled)

	custom := createTestRole(t)
	assert.NoError(t, custom.CanDelete())
	require.NoError(t, custom.Disable())
	assert.False(t, custom.IsEnabled)
	custom.Enable()
	assert.True(t, custom.IsEnabled)
}

func TestRole_SetPermissions(t *testing.T) {
	role := createTestRole(t)
	role.ClearDomainEvents()

	err := role.SetPermissions([]string{"substance:read", "journal:write", "substance:read"})
	require.NoError(t, err)

	assert.Equal(t, []string{"substance:read", "journal:write"}, role.PermissionCodes())
	events := role.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeRolePermissionsChanged, events[0].EventType())

	err = role.SetPermissions([]string{"broken"})
	assert.Error(t, err)
	assert.Len(t, role.Permissions, 2, "failed update leaves permissions untouched")
}

func TestRole_HasPermission(t *testing.T) {
	role := createTestRole(t)
	require.NoError(t, role.SetPermissions([]string{"substance:read", "system:*"}))

	assert.True(t, role.HasPermission("substance:read"))
	assert.False(t, role.HasPermission("substance:write"))
	assert.True(t, role.HasPermission("system:write"), "wildcard covers every action")
	assert.False(t, role.HasPermission("journal:read"))
}

func TestRole_Update(t *testing.T) {
	role := createTestRole(t)
	version := role.GetVersion()

	require.NoError(t, role.Update("Renamed", "desc"))
	assert.Equal(t, "Renamed", role.Name)
	assert.Equal(t, "desc", role.Description)
	assert.Greater(t, role.GetVersion(), version)

	err := role.Update("", "desc")
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_ROLE_NAME", domainErr.Code)
}
