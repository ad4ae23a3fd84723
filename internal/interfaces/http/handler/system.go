package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neuronek/backend/internal/infrastructure/logger"
	"github.com/neuronek/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// SystemHandler handles liveness, readiness and system information endpoints
type SystemHandler struct {
	BaseHandler
	version   string
	startTime time.Time
	checks    map[string]HealthCheck
	now       func() time.Time
}

// NewSystemHandler creates a new SystemHandler. Checks are run by Ready.
func NewSystemHandler(version string, checks map[string]HealthCheck) *SystemHandler {
	if checks == nil {
		checks = map[string]HealthCheck{}
	}
	return &SystemHandler{
		version:   version,
		startTime: time.Now(),
		checks:    checks,
		now:       time.Now,
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name" example:"neuronek-backend"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// HealthResponse reports service health and, for readiness, each dependency
type HealthResponse struct {
	Status string            `json:"status" example:"healthy"`
	Time   string            `json:"time" example:"2026-01-23T12:00:00Z"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health godoc
// @ID           getHealth
// @Summary      Liveness probe
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
		Time:   h.now().UTC().Format(time.RFC3339),
	})
}

// Ready godoc
// @ID           getReadiness
// @Summary      Readiness probe
// @Description  Pings the database and the cache
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /health/ready [get]
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	resp := HealthResponse{
		Status: "healthy",
		Checks: make(map[string]string, len(h.checks)),
	}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			logger.GetGinLogger(c).Warn("Readiness check failed",
				zap.String("check", name),
				zap.Error(err),
			)
			resp.Checks[name] = "error"
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	resp.Time = h.now().UTC().Format(time.RFC3339)

	c.JSON(status, resp)
}

// GetSystemInfo godoc
// @ID           getSystemInfo
// @Summary      Get system information
// @Description  Returns basic system information including version and uptime
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(SystemInfoResponse{
		Name:      "neuronek-backend",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}))
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[PingResponse]
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(PingResponse{
		Message:   "pong",
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}))
}
