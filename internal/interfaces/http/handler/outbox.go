package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/neuronek/backend/internal/application/event"
)

// OutboxHandler handles outbox management HTTP requests
type OutboxHandler struct {
	BaseHandler
	outboxService OutboxService
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outboxService OutboxService) *OutboxHandler {
	return &OutboxHandler{
		outboxService: outboxService,
	}
}

// ListDead godoc
// @ID           listOutboxDead
// @Summary      List dead letter entries
// @Description  Entries that exhausted their delivery retries
// @Tags         outbox
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]event.OutboxEntryDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/dead [get]
func (h *OutboxHandler) ListDead(c *gin.Context) {
	var filter event.OutboxFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.outboxService.ListDead(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Entries, result.Total, result.Page, result.PageSize)
}

// Retry godoc
// @ID           retryOutboxEntry
// @Summary      Retry a dead letter entry
// @Description  Resets the entry to pending so the processor delivers it again
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox Entry ID" format(uuid)
// @Success      200 {object} APIResponse[event.OutboxEntryDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse "Entry is not dead"
// @Security     BearerAuth
// @Router       /system/outbox/{id}/retry [post]
func (h *OutboxHandler) Retry(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.outboxService.Retry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// RetryAllDead godoc
// @ID           retryAllOutboxDead
// @Summary      Retry all dead letter entries
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[CountData]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/dead/retry [post]
func (h *OutboxHandler) RetryAllDead(c *gin.Context) {
	count, err := h.outboxService.RetryAllDead(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, CountData{Count: count})
}

// Stats godoc
// @ID           getOutboxStats
// @Summary      Outbox statistics
// @Description  Entry counts per delivery status
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[event.OutboxStatsDTO]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/stats [get]
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.outboxService.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}
