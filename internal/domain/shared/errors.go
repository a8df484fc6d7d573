package shared

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a DomainError for callers that only care about the category
type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION"
	KindInvalidState ErrorKind = "INVALID_STATE"
	KindConflict     ErrorKind = "CONFLICT"
	KindLocked       ErrorKind = "LOCKED"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	KindForbidden    ErrorKind = "FORBIDDEN"
)

// Error codes shared across the ordering workflow
const (
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeInvalidState           = "INVALID_STATE"
	CodeConflict               = "CONFLICT"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeOrderLocked            = "ORDER_LOCKED"
	CodeNotFound               = "NOT_FOUND"
	CodeInternal               = "INTERNAL_ERROR"
)

// FieldError describes a single rule violation on an input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DomainError represents a domain-level error
type DomainError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Kind    ErrorKind    `json:"-"`
	Details []FieldError `json:"details,omitempty"`

	sentinel bool
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Details))
	for i, d := range e.Details {
		parts[i] = d.Field + ": " + d.Message
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// Is reports whether target matches this error.
// Kind sentinels (ErrNotFound, ErrConflict, ...) match any error of the same kind.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.sentinel {
		return t.Kind == e.Kind
	}
	return t.Code == e.Code && t.Kind == e.Kind
}

// NewDomainError creates a new domain error.
// The kind is inferred from well-known codes, so legacy call sites still classify correctly.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    kindForCode(code),
	}
}

// NewValidationError creates a validation error carrying field-level details
func NewValidationError(message string, details ...FieldError) *DomainError {
	return &DomainError{Code: CodeValidationFailed, Message: message, Kind: KindValidation, Details: details}
}

// NewInvalidStateError creates an error for an operation not permitted in the current status
func NewInvalidStateError(format string, args ...any) *DomainError {
	return &DomainError{Code: CodeInvalidState, Message: fmt.Sprintf(format, args...), Kind: KindInvalidState}
}

// NewConflictError creates a conflict error with a specific code
func NewConflictError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindConflict}
}

// NewLockedError creates an error for a mutation attempted on a finalized resource
func NewLockedError(message string) *DomainError {
	return &DomainError{Code: CodeOrderLocked, Message: message, Kind: KindLocked}
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(format string, args ...any) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...), Kind: KindNotFound}
}

func newSentinel(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: kind, sentinel: true}
}

func kindForCode(code string) ErrorKind {
	switch {
	case code == CodeNotFound || strings.HasSuffix(code, "_NOT_FOUND"):
		return KindNotFound
	case code == CodeInvalidState:
		return KindInvalidState
	case code == CodeConflict || code == CodeConcurrentModification || code == "ALREADY_EXISTS":
		return KindConflict
	case code == CodeOrderLocked:
		return KindLocked
	case code == "UNAUTHORIZED":
		return KindUnauthorized
	case code == "FORBIDDEN":
		return KindForbidden
	}
	return KindValidation
}

// Common domain errors, usable as errors.Is targets
var (
	ErrNotFound            = newSentinel(KindNotFound, CodeNotFound, "Resource not found")
	ErrConflict            = newSentinel(KindConflict, CodeConflict, "Resource conflict")
	ErrConcurrencyConflict = NewConflictError(CodeConcurrentModification, "Resource was modified by another process")
	ErrInvalidState        = newSentinel(KindInvalidState, CodeInvalidState, "Operation not allowed in current state")
	ErrLocked              = newSentinel(KindLocked, CodeOrderLocked, "Resource is locked")
	ErrValidation          = newSentinel(KindValidation, CodeValidationFailed, "Validation failed")
	ErrUnauthorized        = newSentinel(KindUnauthorized, "UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = newSentinel(KindForbidden, "FORBIDDEN", "Access to this resource is forbidden")
)

// FieldErrors accumulates field violations before they are returned as a single ValidationError
type FieldErrors []FieldError

// Add records a violation for field
func (f *FieldErrors) Add(field, format string, args ...any) {
	*f = append(*f, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Merge appends the details of err when it is a validation error, or records it under field otherwise
func (f *FieldErrors) Merge(field string, err error) {
	if de, ok := err.(*DomainError); ok && de.Kind == KindValidation && len(de.Details) > 0 {
		for _, d := range de.Details {
			name := d.Field
			if field != "" {
				name = field + "." + d.Field
			}
			*f = append(*f, FieldError{Field: name, Message: d.Message})
		}
		return
	}
	*f = append(*f, FieldError{Field: field, Message: err.Error()})
}

// Err returns a ValidationError when violations were recorded, nil otherwise
func (f FieldErrors) Err(message string) error {
	if len(f) == 0 {
		return nil
	}
	return NewValidationError(message, f...)
}
