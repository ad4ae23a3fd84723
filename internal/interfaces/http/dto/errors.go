package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
	ErrCodeValidationLength   = "ERR_VALIDATION_LENGTH"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,
	ErrCodeValidationLength:   http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeBusinessRule: http.StatusUnprocessableEntity,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,
}

// DomainCodeHTTPStatus maps domain error codes whose status cannot be
// derived from their name
var DomainCodeHTTPStatus = map[string]int{
	"INVALID_CREDENTIALS":       http.StatusUnauthorized,
	"VERIFICATION_CODE_INVALID": http.StatusUnauthorized,
	"RECOVERY_CODE_INVALID":     http.StatusUnauthorized,
	"TOKEN_EXPIRED":             http.StatusUnauthorized,
	"TOKEN_INVALID":             http.StatusUnauthorized,
	"TOKEN_REVOKED":             http.StatusUnauthorized,
	"TOKEN_MAX_REFRESH":         http.StatusUnauthorized,
	"TOKEN_ERROR":               http.StatusUnauthorized,
	"ACCOUNT_LOCKED":            http.StatusForbidden,
	"ACCOUNT_DEACTIVATED":       http.StatusForbidden,
	"REGISTRATION_DISABLED":     http.StatusForbidden,
	"SYSTEM_ROLE":               http.StatusForbidden,
	"EMAIL_ALREADY_VERIFIED":    http.StatusBadRequest,
	"USERNAME_TAKEN":            http.StatusConflict,
	"EMAIL_TAKEN":               http.StatusConflict,
	"ROLE_CODE_TAKEN":           http.StatusConflict,
	"ROLE_IN_USE":               http.StatusConflict,
	"ROLE_ALREADY_ASSIGNED":     http.StatusConflict,
	"STASH_INSUFFICIENT":        http.StatusUnprocessableEntity,
	"STASH_EXPIRED":             http.StatusUnprocessableEntity,
	"STASH_SUBSTANCE_MISMATCH":  http.StatusUnprocessableEntity,
	"INGESTION_IN_FUTURE":       http.StatusUnprocessableEntity,
	"NO_PHASE_DATA":             http.StatusUnprocessableEntity,
	"OUTBOX_ENTRY_NOT_DEAD":     http.StatusUnprocessableEntity,
	"ROLE_NOT_ASSIGNED":         http.StatusUnprocessableEntity,
	"NOT_LOCKED":                http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code. Standard
// ERR_* codes and listed domain codes map directly; other domain codes are
// classified by their suffix or prefix, and anything else is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if status, ok := DomainCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "_ALREADY_EXISTS"), strings.HasSuffix(code, "_TAKEN"):
		return http.StatusConflict
	case strings.HasPrefix(code, "INVALID_"), strings.HasPrefix(code, "DUPLICATE_"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "ALREADY_"):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps generic domain codes to standardized codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode converts a generic domain code to the standardized
// format. Specific domain codes such as SUBSTANCE_NOT_FOUND are kept so
// clients can tell them apart.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
