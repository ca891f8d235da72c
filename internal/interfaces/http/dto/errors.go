package dto

import (
	"net/http"

	"github.com/prontivus/backend/internal/domain/shared"
)

// Transport-level error codes. Domain error codes pass through as-is;
// these cover failures that never reach the domain layer.
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "INVALID_JSON"
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeForbidden is used when the user lacks permission
	ErrCodeForbidden = "FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "TOKEN_INVALID"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
// Deterministic rejections map to 4xx; only an unavailable external
// dependency produces a 502.
var ErrorCodeHTTPStatus = map[string]int{
	// Transport errors
	ErrCodeUnknown:      http.StatusInternalServerError,
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Validation errors -> 400 Bad Request
	shared.ErrCodeValidation:    http.StatusBadRequest,
	shared.ErrCodeInvalidAmount: http.StatusBadRequest,
	shared.ErrCodeRange:         http.StatusBadRequest,
	"INVALID_INPUT":             http.StatusBadRequest,

	// Resource errors
	"NOT_FOUND":      http.StatusNotFound,
	"ALREADY_EXISTS": http.StatusConflict,

	// Conflicts -> 409
	shared.ErrCodeConflict:    http.StatusConflict,
	shared.ErrCodeAlreadyPaid: http.StatusConflict,
	"CONCURRENCY_CONFLICT":    http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	shared.ErrCodeClosedBilling:     http.StatusUnprocessableEntity,
	shared.ErrCodeOverpayment:       http.StatusUnprocessableEntity,
	shared.ErrCodeNegativeNetPayout: http.StatusUnprocessableEntity,
	"INVALID_STATE":                 http.StatusUnprocessableEntity,

	// External dependency failures -> 502 Bad Gateway
	shared.ErrCodeDependency: http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
