package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	appsubstance "github.com/neuronek/backend/internal/application/substance"
	"github.com/neuronek/backend/internal/domain/substance"
)

// ListSubstancesQuery represents the query parameters for listing substances
type ListSubstancesQuery struct {
	Keyword   string `form:"keyword" binding:"max=100"`
	Class     string `form:"class" binding:"max=100"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=name created_at updated_at"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

// ListRoutesQuery represents the query parameters for route listings
type ListRoutesQuery struct {
	// Substance narrows /routes to one substance by id or name
	Substance string `form:"substance" binding:"max=200"`
	// Include is a comma separated subset of dosage,phase
	Include string `form:"include" binding:"max=50"`
	Sort    string `form:"sort" binding:"max=50" example:"name:asc"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset  int    `form:"offset" binding:"omitempty,min=0"`
}

// ClassifyRequest asks which dosage band a mass falls into
type ClassifyRequest struct {
	// Route defaults to oral
	Route  string `json:"route" binding:"omitempty,route" example:"oral"`
	Dosage string `json:"dosage" binding:"required,mass" example:"100mg"`
}

// SubstanceHandler serves the substance catalogue
type SubstanceHandler struct {
	BaseHandler
	substances SubstanceService
}

// NewSubstanceHandler creates a new substance handler
func NewSubstanceHandler(substances SubstanceService) *SubstanceHandler {
	return &SubstanceHandler{substances: substances}
}

// List godoc
// @ID           listSubstances
// @Summary      List substances
// @Tags         substances
// @Produce      json
// @Param        keyword query string false "Name or common name contains"
// @Param        class query string false "Psychoactive class"
// @Param        sort_by query string false "Sort field" Enums(name, created_at, updated_at)
// @Param        sort_order query string false "Sort order" Enums(asc, desc)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]appsubstance.SubstanceDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /substances [get]
func (h *SubstanceHandler) List(c *gin.Context) {
	var query ListSubstancesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	page, pageSize := pagination(c)

	result, err := h.substances.List(c.Request.Context(), substance.SubstanceFilter{
		Keyword:           query.Keyword,
		PsychoactiveClass: query.Class,
		Page:              page,
		PageSize:          pageSize,
		SortBy:            query.SortBy,
		SortOrder:         query.SortOrder,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Substances, result.Total, result.Page, result.PageSize)
}

// Get godoc
// @ID           getSubstance
// @Summary      Get a substance
// @Description  Looks the substance up by id or case-insensitive name
// @Tags         substances
// @Produce      json
// @Param        idOrName path string true "Substance ID or name"
// @Success      200 {object} APIResponse[appsubstance.SubstanceDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /substances/{idOrName} [get]
func (h *SubstanceHandler) Get(c *gin.Context) {
	result, err := h.substances.Get(c.Request.Context(), c.Param("idOrName"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Create godoc
// @ID           createSubstance
// @Summary      Create a substance
// @Tags         substances
// @Accept       json
// @Produce      json
// @Param        request body appsubstance.SubstanceInput true "Substance"
// @Success      201 {object} APIResponse[appsubstance.SubstanceDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /substances [post]
func (h *SubstanceHandler) Create(c *gin.Context) {
	var input appsubstance.SubstanceInput
	if !h.bindJSON(c, &input) {
		return
	}

	result, err := h.substances.Create(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Update godoc
// @ID           updateSubstance
// @Summary      Replace a substance
// @Description  Routes, dosages and phases are replaced as a whole
// @Tags         substances
// @Accept       json
// @Produce      json
// @Param        idOrName path string true "Substance ID or name"
// @Param        request body appsubstance.SubstanceInput true "Substance"
// @Success      200 {object} APIResponse[appsubstance.SubstanceDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /substances/{idOrName} [put]
func (h *SubstanceHandler) Update(c *gin.Context) {
	var input appsubstance.SubstanceInput
	if !h.bindJSON(c, &input) {
		return
	}

	result, err := h.substances.Update(c.Request.Context(), c.Param("idOrName"), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Delete godoc
// @ID           deleteSubstance
// @Summary      Delete a substance
// @Tags         substances
// @Param        idOrName path string true "Substance ID or name"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /substances/{idOrName} [delete]
func (h *SubstanceHandler) Delete(c *gin.Context) {
	if err := h.substances.Delete(c.Request.Context(), c.Param("idOrName")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListSubstanceRoutes godoc
// @ID           listSubstanceRoutes
// @Summary      Routes of administration of a substance
// @Tags         substances
// @Produce      json
// @Param        idOrName path string true "Substance ID or name"
// @Param        include query string false "Comma separated: dosage,phase"
// @Param        sort query string false "field:order, e.g. name:asc"
// @Param        limit query int false "Page size" default(20) maximum(100)
// @Param        offset query int false "Offset" default(0)
// @Success      200 {object} APIResponse[appsubstance.RouteListResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /substances/{idOrName}/routes [get]
func (h *SubstanceHandler) ListSubstanceRoutes(c *gin.Context) {
	h.listRoutes(c, c.Param("idOrName"))
}

// ListRoutes godoc
// @ID           listRoutes
// @Summary      Routes of administration across substances
// @Tags         substances
// @Produce      json
// @Param        substance query string false "Substance ID or name"
// @Param        include query string false "Comma separated: dosage,phase"
// @Param        sort query string false "field:order, e.g. name:asc"
// @Param        limit query int false "Page size" default(20) maximum(100)
// @Param        offset query int false "Offset" default(0)
// @Success      200 {object} APIResponse[appsubstance.RouteListResult]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /routes [get]
func (h *SubstanceHandler) ListRoutes(c *gin.Context) {
	h.listRoutes(c, "")
}

func (h *SubstanceHandler) listRoutes(c *gin.Context, substanceRef string) {
	var query ListRoutesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	if substanceRef == "" {
		substanceRef = query.Substance
	}

	result, err := h.substances.ListRoutes(c.Request.Context(), appsubstance.RouteQuery{
		Substance: substanceRef,
		Include:   query.Include,
		Sort:      query.Sort,
		Limit:     query.Limit,
		Offset:    query.Offset,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	h.Success(c, result)
}

// GetRoute godoc
// @ID           getSubstanceRoute
// @Summary      One route of administration of a substance
// @Tags         substances
// @Produce      json
// @Param        idOrName path string true "Substance ID or name"
// @Param        route path string true "Route of administration" example(oral)
// @Success      200 {object} APIResponse[appsubstance.RouteDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /substances/{idOrName}/routes/{route} [get]
func (h *SubstanceHandler) GetRoute(c *gin.Context) {
	result, err := h.substances.GetRoute(c.Request.Context(), c.Param("idOrName"), c.Param("route"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Classify godoc
// @ID           classifyDosage
// @Summary      Classify a dosage
// @Description  Reports the dosage band of a mass. Per-kilogram bands use the caller's subject weight.
// @Tags         substances
// @Accept       json
// @Produce      json
// @Param        idOrName path string true "Substance ID or name"
// @Param        request body ClassifyRequest true "Dosage"
// @Success      200 {object} APIResponse[appsubstance.ClassificationResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /substances/{idOrName}/classify [post]
func (h *SubstanceHandler) Classify(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}
	var req ClassifyRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.substances.ClassifyDosage(c.Request.Context(), appsubstance.ClassifyInput{
		Substance: c.Param("idOrName"),
		Route:     req.Route,
		Dosage:    req.Dosage,
		AccountID: accountID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
