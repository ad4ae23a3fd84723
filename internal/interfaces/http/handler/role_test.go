package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appidentity "github.com/neuronek/backend/internal/application/identity"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupRoleRouter(svc *mockRoleService) *gin.Engine {
	h := NewRoleHandler(svc)
	r := gin.New()
	r.POST("/roles", h.Create)
	r.GET("/roles", h.List)
	r.GET("/roles/:id", h.Get)
	r.PUT("/roles/:id", h.Update)
	r.DELETE("/roles/:id", h.Delete)
	r.PUT("/roles/:id/permissions", h.SetPermissions)
	return r
}

func TestRoleHandler_Create(t *testing.T) {
	svc := new(mockRoleService)
	svc.On("Create", mock.Anything, appidentity.CreateRoleInput{
		Code:        "moderator",
		Name:        "Moderator",
		Permissions: []string{"substance:write"},
	}).Return(&appidentity.RoleDTO{ID: uuid.New(), Code: "moderator", IsEnabled: true}, nil)

	w := doJSON(setupRoleRouter(svc), http.MethodPost, "/roles", jsonBody(t, CreateRoleRequest{
		Code:        "moderator",
		Name:        "Moderator",
		Permissions: []string{"substance:write"},
	}))

	require.Equal(t, http.StatusCreated, w.Code)
	var role appidentity.RoleDTO
	dataAs(t, w, &role)
	assert.Equal(t, "moderator", role.Code)
	svc.AssertExpectations(t)
}

func TestRoleHandler_CreateDuplicateCode(t *testing.T) {
	svc := new(mockRoleService)
	svc.On("Create", mock.Anything, mock.Anything).Return(nil, identity.ErrRoleCodeTaken)

	w := doJSON(setupRoleRouter(svc), http.MethodPost, "/roles", jsonBody(t, CreateRoleRequest{Code: "admin", Name: "Admin"}))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRoleHandler_List(t *testing.T) {
	svc := new(mockRoleService)
	svc.On("List", mock.Anything, mock.MatchedBy(func(f identity.RoleFilter) bool {
		return f.Keyword == "mod" && f.IsEnabled != nil && *f.IsEnabled && f.Page == 1 && f.PageSize == defaultPageSize
	})).Return(&appidentity.RoleListResult{
		Roles:    []appidentity.RoleDTO{{Code: "moderator"}},
		Total:    1,
		Page:     1,
		PageSize: defaultPageSize,
	}, nil)

	w := doJSON(setupRoleRouter(svc), http.MethodGet, "/roles?keyword=mod&is_enabled=true", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestRoleHandler_Get(t *testing.T) {
	id := uuid.New()

	t.Run("not found", func(t *testing.T) {
		svc := new(mockRoleService)
		svc.On("Get", mock.Anything, id).Return(nil, identity.ErrRoleNotFound)

		w := doJSON(setupRoleRouter(svc), http.MethodGet, "/roles/"+id.String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "ROLE_NOT_FOUND", decodeResponse(t, w).Error.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := new(mockRoleService)

		w := doJSON(setupRoleRouter(svc), http.MethodGet, "/roles/123", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestRoleHandler_UpdateSystemRole(t *testing.T) {
	id := uuid.New()
	disabled := false
	svc := new(mockRoleService)
	svc.On("Update", mock.Anything, appidentity.UpdateRoleInput{ID: id, IsEnabled: &disabled}).Return(nil, identity.ErrSystemRole)

	w := doJSON(setupRoleRouter(svc), http.MethodPut, "/roles/"+id.String(), jsonBody(t, map[string]any{"is_enabled": false}))

	assert.Equal(t, http.StatusForbidden, w.Code)
	svc.AssertExpectations(t)
}

func TestRoleHandler_Delete(t *testing.T) {
	id := uuid.New()
	svc := new(mockRoleService)
	svc.On("Delete", mock.Anything, id).Return(nil)

	w := doJSON(setupRoleRouter(svc), http.MethodDelete, "/roles/"+id.String(), nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRoleHandler_SetPermissions(t *testing.T) {
	id := uuid.New()
	perms := []string{"journal:read", "journal:write"}
	svc := new(mockRoleService)
	svc.On("SetPermissions", mock.Anything, id, perms).Return(&appidentity.RoleDTO{ID: id, Permissions: perms}, nil)

	w := doJSON(setupRoleRouter(svc), http.MethodPut, "/roles/"+id.String()+"/permissions", jsonBody(t, SetPermissionsRequest{Permissions: perms}))

	require.Equal(t, http.StatusOK, w.Code)
	var role appidentity.RoleDTO
	dataAs(t, w, &role)
	assert.Equal(t, perms, role.Permissions)
}
