package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader lets clients retry writes safely
const IdempotencyKeyHeader = "Idempotency-Key"

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	maxIdempotencyKeyLen   = 128
	idempotencyScopePrefix = "http:"
)

// IdempotencyConfig configures the Idempotency middleware
type IdempotencyConfig struct {
	Store  shared.IdempotencyStore
	TTL    time.Duration
	Logger *zap.Logger
}

// Idempotency rejects a write carrying an Idempotency-Key that the same
// account already sent. The key is claimed before the handler runs, so a
// concurrent duplicate is rejected while the first is in flight. The claim
// is dropped again unless the handler answers 2xx, so failed attempts can be
// retried. Requests without the header pass through untouched.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || c.Request.Method == http.MethodGet || cfg.Store == nil {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeInvalidInput, "Idempotency-Key is too long", getRequestIDFromContext(c)))
			return
		}

		scoped := idempotencyScopePrefix + GetJWTAccountID(c) + ":" + c.Request.Method + ":" + c.FullPath() + ":" + key
		ctx := c.Request.Context()

		claimed, err := cfg.Store.MarkProcessed(ctx, scoped, ttl)
		if err != nil {
			logIdempotencyError(cfg, "Failed to claim idempotency key", err)
			c.Next()
			return
		}
		if !claimed {
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeConflict, "Request with this Idempotency-Key was already processed or is in progress", getRequestIDFromContext(c)))
			return
		}

		completed := false
		defer func() {
			if status := c.Writer.Status(); completed && status >= 200 && status < 300 {
				return
			}
			// a panic unwinds through here before recovery writes the 500
			if err := cfg.Store.Release(context.WithoutCancel(ctx), scoped); err != nil {
				logIdempotencyError(cfg, "Failed to release idempotency key", err)
			}
		}()

		c.Next()
		completed = true
	}
}

func logIdempotencyError(cfg IdempotencyConfig, msg string, err error) {
	if cfg.Logger != nil {
		cfg.Logger.Warn(msg, zap.Error(err))
	}
}
