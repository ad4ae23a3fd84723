package dto

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeValidationRequired, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeBusinessRule, http.StatusUnprocessableEntity},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		// Domain codes
		{"SUBSTANCE_NOT_FOUND", http.StatusNotFound},
		{"ROUTE_OF_ADMINISTRATION_NOT_FOUND", http.StatusNotFound},
		{"ACCOUNT_NOT_FOUND", http.StatusNotFound},
		{"INVALID_CREDENTIALS", http.StatusUnauthorized},
		{"VERIFICATION_CODE_INVALID", http.StatusUnauthorized},
		{"EMAIL_ALREADY_VERIFIED", http.StatusBadRequest},
		{"USERNAME_TAKEN", http.StatusConflict},
		{"EMAIL_TAKEN", http.StatusConflict},
		{"NOT_LOCKED", http.StatusUnprocessableEntity},
		{"SUBSTANCE_ALREADY_EXISTS", http.StatusConflict},
		{"STASH_INSUFFICIENT", http.StatusUnprocessableEntity},
		{"REGISTRATION_DISABLED", http.StatusForbidden},
		{"INVALID_MASS", http.StatusBadRequest},
		{"DUPLICATE_PHASE", http.StatusBadRequest},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// Legacy codes should be normalized
		{"NOT_FOUND", ErrCodeNotFound},
		{"ALREADY_EXISTS", ErrCodeAlreadyExists},
		{"INVALID_INPUT", ErrCodeInvalidInput},
		{"INVALID_STATE", ErrCodeInvalidState},
		{"UNAUTHORIZED", ErrCodeUnauthorized},
		{"FORBIDDEN", ErrCodeForbidden},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{"VALIDATION_ERROR", ErrCodeValidation},
		{"BAD_REQUEST", ErrCodeBadRequest},
		{"INTERNAL_ERROR", ErrCodeInternal},
		// New codes should pass through unchanged
		{ErrCodeNotFound, ErrCodeNotFound},
		{ErrCodeValidation, ErrCodeValidation},
		// Specific domain codes pass through unchanged
		{"SUBSTANCE_NOT_FOUND", "SUBSTANCE_NOT_FOUND"},
		{"CUSTOM_ERROR", "CUSTOM_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestErrorCodeHTTPStatus_Consistent(t *testing.T) {
	for code, status := range ErrorCodeHTTPStatus {
		assert.True(t, strings.HasPrefix(code, "ERR_"), code)
		assert.GreaterOrEqual(t, status, 400, code)
		assert.Equal(t, status, GetHTTPStatus(code), code)
	}
	for code, status := range DomainCodeHTTPStatus {
		assert.False(t, strings.HasPrefix(code, "ERR_"), "domain code %s must not shadow a standard code", code)
		assert.Equal(t, status, GetHTTPStatus(code), code)
	}
	for legacy, normalized := range LegacyErrorCodeMapping {
		_, ok := ErrorCodeHTTPStatus[normalized]
		assert.True(t, ok, "%s normalizes to unmapped %s", legacy, normalized)
	}
}

func TestErrorResponseConstructors(t *testing.T) {
	before := time.Now()
	details := []ValidationDetail{{Field: "dosage", Message: "must be a mass such as 100 mg"}}

	tests := []struct {
		name      string
		resp      Response
		code      string
		requestID string
		help      string
		details   int
	}{
		{"legacy code normalized", NewErrorResponse("NOT_FOUND", "Resource not found"), ErrCodeNotFound, "", "", 0},
		{"with request id", NewErrorResponseWithRequestID("STASH_NOT_FOUND", "Stash not found", "req-1"), "STASH_NOT_FOUND", "req-1", "", 0},
		{"validation", NewValidationErrorResponse("Validation failed", "req-2", details), ErrCodeValidation, "req-2", "", 1},
		{"with help", NewErrorResponseWithHelp(ErrCodeUnauthorized, "Not authenticated", "req-3", "/docs/auth"), ErrCodeUnauthorized, "req-3", "/docs/auth", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.resp.Success)
			assert.Nil(t, tt.resp.Data)
			if assert.NotNil(t, tt.resp.Error) {
				assert.Equal(t, tt.code, tt.resp.Error.Code)
				assert.Equal(t, tt.requestID, tt.resp.Error.RequestID)
				assert.Equal(t, tt.help, tt.resp.Error.Help)
				assert.Len(t, tt.resp.Error.Details, tt.details)
				assert.False(t, tt.resp.Error.Timestamp.Before(before))
			}
		})
	}
}

func TestErrorResponseJSON(t *testing.T) {
	data, err := json.Marshal(NewErrorResponseWithRequestID("INGESTION_NOT_FOUND", "Ingestion not found", "req-9"))
	assert.NoError(t, err)

	var decoded map[string]any
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.NotContains(t, decoded, "data")

	errObj, ok := decoded["error"].(map[string]any)
	if assert.True(t, ok) {
		assert.Equal(t, "INGESTION_NOT_FOUND", errObj["code"])
		assert.Equal(t, "req-9", errObj["request_id"])
		assert.NotContains(t, errObj, "details")
	}
}

func TestNewSuccessResponse(t *testing.T) {
	data := map[string]string{"name": "test"}
	resp := NewSuccessResponse(data)

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
	assert.Nil(t, resp.Meta)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	data := []string{"item1", "item2"}
	resp := NewSuccessResponseWithMeta(data, 100, 1, 10)

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Meta)
	assert.Equal(t, int64(100), resp.Meta.Total)
	assert.Equal(t, 1, resp.Meta.Page)
	assert.Equal(t, 10, resp.Meta.PageSize)
	assert.Equal(t, 10, resp.Meta.TotalPages) // 100 / 10 = 10
}

func TestNewSuccessResponseWithMetaPagination(t *testing.T) {
	tests := []struct {
		total         int64
		page          int
		pageSize      int
		expectedPages int
		expectedSize  int // Expected page size after validation
	}{
		{100, 1, 10, 10, 10},
		{101, 1, 10, 11, 10}, // Partial page
		{0, 1, 10, 0, 10},
		{9, 1, 10, 1, 10},
		{10, 1, 10, 1, 10},
		{11, 1, 10, 2, 10},
		// Edge case: zero pageSize should default to 20
		{100, 1, 0, 5, 20},
		{100, 1, -1, 5, 20},
	}

	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta(nil, tt.total, tt.page, tt.pageSize)
		assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages)
		assert.Equal(t, tt.expectedSize, resp.Meta.PageSize)
	}
}
