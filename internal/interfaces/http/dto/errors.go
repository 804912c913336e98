package dto

import (
	"errors"
	"net/http"

	"github.com/otahub/backend/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeUnavailable is a store or upstream failure worth retrying
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
)

// Request error codes
const (
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited  = "ERR_RATE_LIMITED"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound  = "ERR_NOT_FOUND"
	ErrCodeIntegrity = "ERR_INTEGRITY"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:      http.StatusInternalServerError,
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeIntegrity:    http.StatusInternalServerError,
	ErrCodeUnavailable:  http.StatusServiceUnavailable,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:  http.StatusTooManyRequests,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeNotFound:     http.StatusNotFound,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// kindCodes gives every domain error kind its public code
var kindCodes = map[shared.ErrorKind]string{
	shared.KindValidation:    ErrCodeValidation,
	shared.KindAuthorization: ErrCodeForbidden,
	shared.KindIntegrity:     ErrCodeIntegrity,
	shared.KindTransient:     ErrCodeUnavailable,
	shared.KindNotFound:      ErrCodeNotFound,
}

// CodeForError returns the public code for err. Errors without a domain kind are internal.
func CodeForError(err error) string {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return ErrCodeInternal
	}
	if de.Code == shared.ErrUnauthorized.Code {
		return ErrCodeUnauthorized
	}
	if code, ok := kindCodes[de.Kind]; ok {
		return code
	}
	return ErrCodeUnknown
}

// MessageForError returns the message safe to show a caller. Server side failures
// never echo their cause.
func MessageForError(err error) string {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return "An unexpected error occurred"
	}
	switch de.Kind {
	case shared.KindIntegrity:
		return "An unexpected error occurred"
	case shared.KindTransient:
		return "Service temporarily unavailable"
	}
	return de.Message
}
