package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// limitedEngine answers with the number of body bytes the handler could read
func limitedEngine(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), BodyLimit(limit))
	r.POST("/ingestions", func(c *gin.Context) {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusBadRequest, "read failed")
			return
		}
		c.String(http.StatusOK, "%d", len(data))
	})
	return r
}

func TestBodyLimit(t *testing.T) {
	tests := []struct {
		name       string
		limit      int64
		body       string
		chunked    bool
		wantStatus int
		wantBody   string
	}{
		{"within limit", 64, `{"dosage":"10 mg"}`, false, http.StatusOK, "18"},
		{"declared size over limit", 16, strings.Repeat("x", 32), false, http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge},
		{"streamed body cut at limit", 16, strings.Repeat("x", 32), true, http.StatusBadRequest, "read failed"},
		{"streamed body within limit", 64, "short", true, http.StatusOK, "5"},
		{"zero disables the limit", 0, strings.Repeat("x", 4096), false, http.StatusOK, "4096"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/ingestions", strings.NewReader(tt.body))
			if tt.chunked {
				req.ContentLength = -1
			}
			w := httptest.NewRecorder()
			limitedEngine(tt.limit).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestBodyLimit_RejectionCarriesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/ingestions", strings.NewReader(strings.Repeat("x", 128)))
	req.Header.Set(RequestIDHeader, "req-limit-1")
	w := httptest.NewRecorder()
	limitedEngine(8).ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "req-limit-1")
}
