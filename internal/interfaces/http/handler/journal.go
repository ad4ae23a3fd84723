package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	appjournal "github.com/neuronek/backend/internal/application/journal"
)

// ListIngestionsQuery represents the query parameters for the ingestion journal
type ListIngestionsQuery struct {
	From      string `form:"from" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To        string `form:"to" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Substance string `form:"substance" binding:"max=200"`
	Route     string `form:"route" binding:"omitempty,route"`
	Sort      string `form:"sort" binding:"max=50" example:"ingested_at:desc"`
}

func (q ListIngestionsQuery) window() (from, to *time.Time) {
	// The binding tags guarantee the layout
	if q.From != "" {
		t, _ := time.Parse(time.RFC3339, q.From)
		from = &t
	}
	if q.To != "" {
		t, _ := time.Parse(time.RFC3339, q.To)
		to = &t
	}
	return from, to
}

// ListStashesQuery represents the query parameters for listing stashes
type ListStashesQuery struct {
	Substance      string `form:"substance" binding:"max=200"`
	IncludeExpired bool   `form:"include_expired"`
}

// JournalHandler serves the personal journal: ingestions, stashes and exports.
// Every operation is scoped to the authenticated account.
type JournalHandler struct {
	BaseHandler
	ingestions IngestionService
	stashes    StashService
	exports    ExportService
	now        func() time.Time
}

// NewJournalHandler creates a new journal handler. exports may be nil when
// object storage is disabled.
func NewJournalHandler(ingestions IngestionService, stashes StashService, exports ExportService) *JournalHandler {
	return &JournalHandler{
		ingestions: ingestions,
		stashes:    stashes,
		exports:    exports,
		now:        time.Now,
	}
}

// LogIngestion godoc
// @ID           logIngestion
// @Summary      Log an ingestion
// @Description  When stash_id is set the dosage is withdrawn from that stash
// @Tags         ingestions
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        request body appjournal.LogIngestionInput true "Ingestion"
// @Success      201 {object} APIResponse[appjournal.IngestionDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Idempotency key replayed"
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ingestions [post]
func (h *JournalHandler) LogIngestion(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}
	var input appjournal.LogIngestionInput
	if !h.bindJSON(c, &input) {
		return
	}
	input.AccountID = accountID

	result, err := h.ingestions.Log(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// GetIngestion godoc
// @ID           getIngestion
// @Summary      Get an ingestion
// @Tags         ingestions
// @Produce      json
// @Param        id path string true "Ingestion ID" format(uuid)
// @Success      200 {object} APIResponse[appjournal.IngestionDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ingestions/{id} [get]
func (h *JournalHandler) GetIngestion(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := h.ingestions.Get(c.Request.Context(), accountID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListIngestions godoc
// @ID           listIngestions
// @Summary      List ingestions
// @Tags         ingestions
// @Produce      json
// @Param        from query string false "Ingested at or after (RFC 3339)"
// @Param        to query string false "Ingested before (RFC 3339)"
// @Param        substance query string false "Substance ID or name"
// @Param        route query string false "Route of administration"
// @Param        sort query string false "field:order" default(ingested_at:desc)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]appjournal.IngestionDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ingestions [get]
func (h *JournalHandler) ListIngestions(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}
	var query ListIngestionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	page, pageSize := pagination(c)
	from, to := query.window()

	result, err := h.ingestions.List(c.Request.Context(), appjournal.ListIngestionsInput{
		AccountID: accountID,
		From:      from,
		To:        to,
		Substance: query.Substance,
		Route:     query.Route,
		Page:      page,
		PageSize:  pageSize,
		Sort:      query.Sort,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Ingestions, result.Total, result.Page, result.PageSize)
}

// UpdateIngestion godoc
// @ID           updateIngestion
// @Summary      Update an ingestion
// @Description  A changed dosage on a stash-backed ingestion adjusts the stash by the difference
// @Tags         ingestions
// @Accept       json
// @Produce      json
// @Param        id path string true "Ingestion ID" format(uuid)
// @Param        request body appjournal.UpdateIngestionInput true "Ingestion"
// @Success      200 {object} APIResponse[appjournal.IngestionDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ingestions/{id} [put]
func (h *JournalHandler) UpdateIngestion(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var input appjournal.UpdateIngestionInput
	if !h.bindJSON(c, &input) {
		return
	}
	input.AccountID, input.ID = accountID, id

	result, err := h.ingestions.Update(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// DeleteIngestion godoc
// @ID           deleteIngestion
// @Summary      Delete an ingestion
// @Tags         ingestions
// @Param        id path string true "Ingestion ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ingestions/{id} [delete]
func (h *JournalHandler) DeleteIngestion(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.ingestions.Delete(c.Request.Context(), accountID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AnalyzeIngestion godoc
// @ID           analyzeIngestion
// @Summary      Phase timeline of an ingestion
// @Description  Onset, comeup, peak, offset and afterglow windows with the current phase and progress
// @Tags         ingestions
// @Produce      json
// @Param        id path string true "Ingestion ID" format(uuid)
// @Success      200 {object} APIResponse[appjournal.AnalysisDTO]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse "Route has no phase data"
// @Security     BearerAuth
// @Router       /ingestions/{id}/analysis [get]
func (h *JournalHandler) AnalyzeIngestion(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := h.ingestions.Analyze(c.Request.Context(), accountID, id, h.now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ActiveIngestions godoc
// @ID           activeIngestions
// @Summary      Ingestions still in effect
// @Tags         ingestions
// @Produce      json
// @Success      200 {object} APIResponse[[]appjournal.ActiveIngestionDTO]
// @Security     BearerAuth
// @Router       /ingestions/active [get]
func (h *JournalHandler) ActiveIngestions(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}

	result, err := h.ingestions.Active(c.Request.Context(), accountID, h.now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result == nil {
		result = []appjournal.ActiveIngestionDTO{}
	}
	h.Success(c, result)
}

// CreateStash godoc
// @ID           createStash
// @Summary      Create a stash
// @Tags         stashes
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        request body appjournal.CreateStashInput true "Stash"
// @Success      201 {object} APIResponse[appjournal.StashDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /stashes [post]
func (h *JournalHandler) CreateStash(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}
	var input appjournal.CreateStashInput
	if !h.bindJSON(c, &input) {
		return
	}
	input.AccountID = accountID

	result, err := h.stashes.Create(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// GetStash godoc
// @ID           getStash
// @Summary      Get a stash
// @Tags         stashes
// @Produce      json
// @Param        id path string true "Stash ID" format(uuid)
// @Success      200 {object} APIResponse[appjournal.StashDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /stashes/{id} [get]
func (h *JournalHandler) GetStash(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := h.stashes.Get(c.Request.Context(), accountID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListStashes godoc
// @ID           listStashes
// @Summary      List stashes
// @Tags         stashes
// @Produce      json
// @Param        substance query string false "Substance ID or name"
// @Param        include_expired query bool false "Include expired stashes"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]appjournal.StashDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /stashes [get]
func (h *JournalHandler) ListStashes(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}
	var query ListStashesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	page, pageSize := pagination(c)

	result, err := h.stashes.List(c.Request.Context(), appjournal.ListStashesInput{
		AccountID:      accountID,
		Substance:      query.Substance,
		IncludeExpired: query.IncludeExpired,
		Page:           page,
		PageSize:       pageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Stashes, result.Total, result.Page, result.PageSize)
}

// UpdateStash godoc
// @ID           updateStash
// @Summary      Update a stash
// @Description  Purity, expiry and notes; the amount changes only through deposits and ingestions
// @Tags         stashes
// @Accept       json
// @Produce      json
// @Param        id path string true "Stash ID" format(uuid)
// @Param        request body appjournal.UpdateStashInput true "Stash"
// @Success      200 {object} APIResponse[appjournal.StashDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /stashes/{id} [put]
func (h *JournalHandler) UpdateStash(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var input appjournal.UpdateStashInput
	if !h.bindJSON(c, &input) {
		return
	}
	input.AccountID, input.ID = accountID, id

	result, err := h.stashes.Update(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Deposit godoc
// @ID           depositStash
// @Summary      Add to a stash
// @Tags         stashes
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        id path string true "Stash ID" format(uuid)
// @Param        request body appjournal.DepositInput true "Amount"
// @Success      200 {object} APIResponse[appjournal.StashDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /stashes/{id}/deposit [post]
func (h *JournalHandler) Deposit(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var input appjournal.DepositInput
	if !h.bindJSON(c, &input) {
		return
	}
	input.AccountID, input.ID = accountID, id

	result, err := h.stashes.Deposit(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// DeleteStash godoc
// @ID           deleteStash
// @Summary      Delete a stash
// @Description  Ingestions drawn from the stash keep their history
// @Tags         stashes
// @Param        id path string true "Stash ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /stashes/{id} [delete]
func (h *JournalHandler) DeleteStash(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.stashes.Delete(c.Request.Context(), accountID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Export godoc
// @ID           exportJournal
// @Summary      Export the journal
// @Description  Uploads the caller's ingestions and stashes as JSON and returns a time-limited download link
// @Tags         journal
// @Produce      json
// @Success      201 {object} APIResponse[appjournal.ExportResult]
// @Failure      401 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse "Object storage disabled"
// @Security     BearerAuth
// @Router       /journal/export [post]
func (h *JournalHandler) Export(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}
	if h.exports == nil {
		h.Error(c, http.StatusServiceUnavailable, "ERR_EXPORT_UNAVAILABLE", "Journal export is not configured")
		return
	}

	result, err := h.exports.Export(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
