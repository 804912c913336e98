// Package shared holds the error taxonomy every layer classifies failures with.
package shared

import "errors"

// ErrorKind classifies a domain error for the boundary that handles it.
type ErrorKind int

const (
	// KindValidation is malformed or missing input.
	KindValidation ErrorKind = iota + 1
	// KindAuthorization is an unauthenticated principal or an insufficient right.
	KindAuthorization
	// KindIntegrity is an expected related record that could not be resolved.
	KindIntegrity
	// KindTransient is a store or network failure that may succeed on retry.
	KindTransient
	// KindNotFound is a missing record on a path where absence is not an integrity problem.
	KindNotFound
)

// String returns the kind name used in logs
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindIntegrity:
		return "integrity"
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// DomainError represents a domain-level error
type DomainError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"-"`
	// Resource identifies the object an authorization error refers to (e.g. an app id).
	Resource string `json:"resource,omitempty"`
	cause    error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches domain errors by code so wrapped copies compare equal to the sentinels
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    kind,
	}
}

// Wrap returns a copy of e carrying cause
func (e *DomainError) Wrap(cause error) *DomainError {
	c := *e
	c.cause = cause
	return &c
}

// WithResource returns a copy of e bound to a resource identifier
func (e *DomainError) WithResource(resource string) *DomainError {
	c := *e
	c.Resource = resource
	return &c
}

// Common domain errors
var (
	ErrNotFound     = NewDomainError(KindNotFound, "NOT_FOUND", "Resource not found")
	ErrInvalidInput = NewDomainError(KindValidation, "INVALID_INPUT", "Invalid input provided")
	ErrUnauthorized = NewDomainError(KindAuthorization, "UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden    = NewDomainError(KindAuthorization, "FORBIDDEN", "Access to this resource is forbidden")
	ErrIntegrity    = NewDomainError(KindIntegrity, "INTEGRITY", "Related record could not be resolved")
	ErrTransient    = NewDomainError(KindTransient, "TRANSIENT", "Store temporarily unavailable")
)

// KindOf reports the kind of err, or zero when err carries no domain error
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

// IsTransient reports whether err is a transient store or network failure
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}
