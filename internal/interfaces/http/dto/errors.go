package dto

import (
	"net/http"

	"github.com/wholesale/orderflow/internal/domain/shared"
)

// Transport error codes. Domain errors carry their own codes.
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = shared.CodeInternal
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "INVALID_JSON"
	// ErrCodeValidation is used when request binding fails validation
	ErrCodeValidation = shared.CodeValidationFailed
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeForbidden is used when the caller's role is not allowed
	ErrCodeForbidden = "FORBIDDEN"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	// ErrCodeRateLimited is used when the caller exceeded the request rate
	ErrCodeRateLimited = "RATE_LIMIT_EXCEEDED"
	// ErrCodeStorageDisabled is used when receipt uploads are not configured
	ErrCodeStorageDisabled = "RECEIPT_STORAGE_DISABLED"
)

// KindHTTPStatus maps domain error kinds to HTTP status codes
var KindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation:   http.StatusBadRequest,
	shared.KindInvalidState: http.StatusUnprocessableEntity,
	shared.KindConflict:     http.StatusConflict,
	shared.KindLocked:       http.StatusLocked,
	shared.KindNotFound:     http.StatusNotFound,
	shared.KindUnauthorized: http.StatusUnauthorized,
	shared.KindForbidden:    http.StatusForbidden,
}

// GetHTTPStatus returns the HTTP status code for an error kind.
// Returns 500 Internal Server Error if the kind is unknown.
func GetHTTPStatus(kind shared.ErrorKind) int {
	if status, ok := KindHTTPStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}
