package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/neuronek/backend/internal/infrastructure/telemetry"
)

// ProfilingConfig holds configuration for the profiling middleware.
type ProfilingConfig struct {
	// Enabled controls whether profiling labels are added to requests.
	Enabled bool
	// SkipPaths are paths that don't need profiling labels (e.g., health checks).
	SkipPaths []string
	// SkipPathPrefixes are path prefixes that don't need profiling labels.
	SkipPathPrefixes []string
}

// DefaultProfilingConfig returns default profiling middleware configuration.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:          true,
		SkipPaths:        []string{"/health", "/health/ready", "/metrics"},
		SkipPathPrefixes: []string{"/swagger"},
	}
}

// Profiling returns profiling middleware with default configuration.
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig runs the rest of the chain under Pyroscope labels:
//   - method: GET, POST, ...
//   - route: the route pattern, e.g. /api/v1/ingestions/:id
//   - controller: the resource segment, e.g. ingestions
//   - auth: "account" when a JWT was accepted, otherwise "anonymous"
//
// It belongs after the JWT middleware so that the auth label is known.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath {
				c.Next()
				return
			}
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		telemetry.WithProfilingLabels(c.Request.Context(), extractProfilingLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func extractProfilingLabels(c *gin.Context) map[string]string {
	labels := make(map[string]string, 4)
	if method := c.Request.Method; method != "" {
		labels[telemetry.ProfilingLabelMethod] = method
	}
	route := c.FullPath()
	if route != "" {
		labels[telemetry.ProfilingLabelRoute] = route
	}
	if controller := extractControllerFromRoute(route); controller != "" {
		labels[telemetry.ProfilingLabelController] = controller
	}
	if GetJWTClaims(c) != nil {
		labels[telemetry.ProfilingLabelAuth] = "account"
	} else {
		labels[telemetry.ProfilingLabelAuth] = "anonymous"
	}
	return labels
}

// extractControllerFromRoute returns the first static segment after the API prefix:
// "/api/v1/substances/:idOrName/routes" -> "substances"
func extractControllerFromRoute(route string) string {
	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) {
			continue
		}
		if strings.HasPrefix(part, ":") || strings.HasPrefix(part, "*") {
			continue
		}
		return part
	}
	return ""
}

// isVersionSegment checks if a path segment is an API version (v1, v2, etc.)
func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	for i := 1; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return false
		}
	}
	return true
}
