package handler

import (
	"github.com/gin-gonic/gin"
	appidentity "github.com/neuronek/backend/internal/application/identity"
	"github.com/neuronek/backend/internal/domain/identity"
)

// CreateRoleRequest represents the request body for creating a role
type CreateRoleRequest struct {
	Code        string   `json:"code" binding:"required,min=2,max=50" example:"moderator"`
	Name        string   `json:"name" binding:"required,max=100" example:"Moderator"`
	Description string   `json:"description" binding:"max=500"`
	Permissions []string `json:"permissions" binding:"dive,max=100" example:"substance:write"`
}

// UpdateRoleRequest represents the request body for updating a role
type UpdateRoleRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	IsEnabled   *bool   `json:"is_enabled"`
}

// SetPermissionsRequest replaces the permissions of a role
type SetPermissionsRequest struct {
	Permissions []string `json:"permissions" binding:"required,dive,max=100"`
}

// ListRolesQuery represents the query parameters for listing roles
type ListRolesQuery struct {
	Keyword   string `form:"keyword" binding:"max=100"`
	IsEnabled *bool  `form:"is_enabled"`
}

// RoleHandler handles role management HTTP requests
type RoleHandler struct {
	BaseHandler
	roleService RoleService
}

// NewRoleHandler creates a new role handler
func NewRoleHandler(roleService RoleService) *RoleHandler {
	return &RoleHandler{
		roleService: roleService,
	}
}

// Create godoc
//
//	@ID				createRole
//	@Summary		Create a role
//	@Tags			roles
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateRoleRequest	true	"Role"
//	@Success		201		{object}	APIResponse[appidentity.RoleDTO]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/roles [post]
func (h *RoleHandler) Create(c *gin.Context) {
	var req CreateRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	role, err := h.roleService.Create(c.Request.Context(), appidentity.CreateRoleInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, role)
}

// Get godoc
//
//	@ID				getRole
//	@Summary		Get a role
//	@Tags			roles
//	@Produce		json
//	@Param			id	path		string	true	"Role ID"	format(uuid)
//	@Success		200	{object}	APIResponse[appidentity.RoleDTO]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/roles/{id} [get]
func (h *RoleHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	role, err := h.roleService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, role)
}

// List godoc
//
//	@ID				listRoles
//	@Summary		List roles
//	@Tags			roles
//	@Produce		json
//	@Param			keyword		query		string	false	"Code or name contains"
//	@Param			is_enabled	query		bool	false	"Enabled filter"
//	@Param			page		query		int		false	"Page number"		default(1)
//	@Param			page_size	query		int		false	"Items per page"	default(20)	maximum(100)
//	@Success		200			{object}	APIResponse[[]appidentity.RoleDTO]
//	@Failure		400			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/roles [get]
func (h *RoleHandler) List(c *gin.Context) {
	var query ListRolesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	page, pageSize := pagination(c)

	result, err := h.roleService.List(c.Request.Context(), identity.RoleFilter{
		Keyword:   query.Keyword,
		IsEnabled: query.IsEnabled,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Roles, result.Total, result.Page, result.PageSize)
}

// Update godoc
//
//	@ID				updateRole
//	@Summary		Update a role
//	@Description	System roles cannot be disabled
//	@Tags			roles
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Role ID"	format(uuid)
//	@Param			request	body		UpdateRoleRequest	true	"Changes"
//	@Success		200		{object}	APIResponse[appidentity.RoleDTO]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/roles/{id} [put]
func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	role, err := h.roleService.Update(c.Request.Context(), appidentity.UpdateRoleInput{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		IsEnabled:   req.IsEnabled,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, role)
}

// Delete godoc
//
//	@ID				deleteRole
//	@Summary		Delete a role
//	@Description	System roles and roles still assigned to accounts cannot be deleted
//	@Tags			roles
//	@Param			id	path	string	true	"Role ID"	format(uuid)
//	@Success		204
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/roles/{id} [delete]
func (h *RoleHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.roleService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// SetPermissions godoc
//
//	@ID				setRolePermissions
//	@Summary		Replace role permissions
//	@Tags			roles
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Role ID"	format(uuid)
//	@Param			request	body		SetPermissionsRequest	true	"Permission codes"
//	@Success		200		{object}	APIResponse[appidentity.RoleDTO]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/roles/{id}/permissions [put]
func (h *RoleHandler) SetPermissions(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req SetPermissionsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	role, err := h.roleService.SetPermissions(c.Request.Context(), id, req.Permissions)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, role)
}
