package handler

import (
	"github.com/gin-gonic/gin"
	appsubstance "github.com/neuronek/backend/internal/application/substance"
	"github.com/neuronek/backend/internal/domain/substance"
)

// ListEffectsQuery represents the query parameters for listing effects
type ListEffectsQuery struct {
	Keyword  string `form:"keyword" binding:"max=100"`
	Category string `form:"category" binding:"max=100"`
}

// EffectHandler serves effects and their links to substances
type EffectHandler struct {
	BaseHandler
	effects EffectService
}

// NewEffectHandler creates a new effect handler
func NewEffectHandler(effects EffectService) *EffectHandler {
	return &EffectHandler{effects: effects}
}

// List godoc
// @ID           listEffects
// @Summary      List effects
// @Tags         effects
// @Produce      json
// @Param        keyword query string false "Name contains"
// @Param        category query string false "Category"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]appsubstance.EffectDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /effects [get]
func (h *EffectHandler) List(c *gin.Context) {
	var query ListEffectsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	page, pageSize := pagination(c)

	result, err := h.effects.ListEffects(c.Request.Context(), substance.EffectFilter{
		Keyword:  query.Keyword,
		Category: query.Category,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Effects, result.Total, result.Page, result.PageSize)
}

// Get godoc
// @ID           getEffect
// @Summary      Get an effect
// @Tags         effects
// @Produce      json
// @Param        idOrSlug path string true "Effect ID or slug"
// @Success      200 {object} APIResponse[appsubstance.EffectDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /effects/{idOrSlug} [get]
func (h *EffectHandler) Get(c *gin.Context) {
	result, err := h.effects.GetEffect(c.Request.Context(), c.Param("idOrSlug"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Create godoc
// @ID           createEffect
// @Summary      Create an effect
// @Description  The slug is derived from the name when omitted
// @Tags         effects
// @Accept       json
// @Produce      json
// @Param        request body appsubstance.EffectInput true "Effect"
// @Success      201 {object} APIResponse[appsubstance.EffectDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /effects [post]
func (h *EffectHandler) Create(c *gin.Context) {
	var input appsubstance.EffectInput
	if !h.bindJSON(c, &input) {
		return
	}

	result, err := h.effects.CreateEffect(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Update godoc
// @ID           updateEffect
// @Summary      Replace an effect
// @Tags         effects
// @Accept       json
// @Produce      json
// @Param        idOrSlug path string true "Effect ID or slug"
// @Param        request body appsubstance.EffectInput true "Effect"
// @Success      200 {object} APIResponse[appsubstance.EffectDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /effects/{idOrSlug} [put]
func (h *EffectHandler) Update(c *gin.Context) {
	var input appsubstance.EffectInput
	if !h.bindJSON(c, &input) {
		return
	}

	result, err := h.effects.UpdateEffect(c.Request.Context(), c.Param("idOrSlug"), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Delete godoc
// @ID           deleteEffect
// @Summary      Delete an effect
// @Tags         effects
// @Param        idOrSlug path string true "Effect ID or slug"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /effects/{idOrSlug} [delete]
func (h *EffectHandler) Delete(c *gin.Context) {
	if err := h.effects.DeleteEffect(c.Request.Context(), c.Param("idOrSlug")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListForSubstance godoc
// @ID           listSubstanceEffects
// @Summary      Effects of a substance
// @Tags         effects
// @Produce      json
// @Param        idOrName path string true "Substance ID or name"
// @Success      200 {object} APIResponse[[]appsubstance.EffectDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /substances/{idOrName}/effects [get]
func (h *EffectHandler) ListForSubstance(c *gin.Context) {
	result, err := h.effects.ListSubstanceEffects(c.Request.Context(), c.Param("idOrName"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result == nil {
		result = []appsubstance.EffectDTO{}
	}
	h.Success(c, result)
}

// Link godoc
// @ID           linkSubstanceEffect
// @Summary      Link an effect to a substance
// @Tags         effects
// @Param        idOrName path string true "Substance ID or name"
// @Param        effect path string true "Effect ID or slug"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /substances/{idOrName}/effects/{effect} [put]
func (h *EffectHandler) Link(c *gin.Context) {
	if err := h.effects.LinkEffect(c.Request.Context(), c.Param("idOrName"), c.Param("effect")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Unlink godoc
// @ID           unlinkSubstanceEffect
// @Summary      Unlink an effect from a substance
// @Tags         effects
// @Param        idOrName path string true "Substance ID or name"
// @Param        effect path string true "Effect ID or slug"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /substances/{idOrName}/effects/{effect} [delete]
func (h *EffectHandler) Unlink(c *gin.Context) {
	if err := h.effects.UnlinkEffect(c.Request.Context(), c.Param("idOrName"), c.Param("effect")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
