package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neuronek/backend/internal/interfaces/http/dto"
)

// ErrCodeRequestTooLarge is returned when the declared body size exceeds the limit
const ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"

// BodyLimit rejects requests whose declared body exceeds maxBytes and caps
// streamed bodies at the same size
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", getRequestIDFromContext(c)))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
