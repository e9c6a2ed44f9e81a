package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeExternal     ErrorType = "external"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type      ErrorType
	Message   string
	Err       error
	Retryable bool
	Details   map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is. Two domain errors match when both type and
// message agree, so sentinel comparisons stay precise.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithDetail returns a copy of the error with the detail attached. Copying
// keeps the shared sentinels immutable.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Type:      e.Type,
		Message:   e.Message,
		Err:       e.Err,
		Retryable: e.Retryable,
		Details:   details,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables
var (
	// Authorization errors. All of these mean deny-all: the caller gets an
	// empty access set, never a cached prior one.
	ErrUnknownRole  = NewDomainError(ErrorTypeUnauthorized, "unknown role", nil)
	ErrInvalidClaim = NewDomainError(ErrorTypeUnauthorized, "expired or invalid claim", nil)
	ErrMissingRole  = NewDomainError(ErrorTypeUnauthorized, "token carries no role", nil)

	// Permission errors
	ErrForbidden = NewDomainError(ErrorTypeForbidden, "access forbidden", nil)

	// Validation errors
	ErrInvalidInput = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrEmptyQuery   = NewDomainError(ErrorTypeValidation, "query cannot be empty", nil)

	// Retrieval index errors. Surfaced as retryable; the pipeline never
	// substitutes stale or unfiltered results.
	ErrRetrievalTimeout     = &DomainError{Type: ErrorTypeTimeout, Message: "retrieval index timeout", Retryable: true}
	ErrRetrievalUnavailable = &DomainError{Type: ErrorTypeExternal, Message: "retrieval index unavailable", Retryable: true}

	// Generation service errors. The synthesizer falls back to a
	// citation-only response on these.
	ErrGenerationTimeout     = &DomainError{Type: ErrorTypeTimeout, Message: "generation service timeout", Retryable: true}
	ErrGenerationUnavailable = &DomainError{Type: ErrorTypeExternal, Message: "generation service unavailable", Retryable: true}

	// Embedding service errors
	ErrEmbeddingUnavailable = NewDomainError(ErrorTypeExternal, "embedding service unavailable", nil)

	// Internal errors
	ErrInternal = NewDomainError(ErrorTypeInternal, "internal server error", nil)
)

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeUnauthorized
	}
	return false
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeForbidden
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeValidation
	}
	return false
}

// IsTimeoutError checks if an error is a timeout error
func IsTimeoutError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeTimeout
	}
	return false
}

// IsRetryable reports whether the caller may safely retry the request.
func IsRetryable(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Retryable
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapExternal wraps an error as an external collaborator error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}
