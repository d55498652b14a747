package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors across the engine and the
// transport layer.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

// NewCapacityExceeded reports a soft capacity limit hit on append. Callers
// may retry against a different queue or accept overflow per configuration.
func NewCapacityExceeded(queueID string, capacity int) error {
	return NewDomainError("CAPACITY_EXCEEDED", "queue capacity exceeded", http.StatusConflict, map[string]any{
		"queue_id": queueID,
		"capacity": capacity,
	})
}

// NewNoQueueAvailable reports that no open queue exists for a priority.
// Not retried automatically; resolving it requires administrative queue
// creation.
func NewNoQueueAvailable(priorityID string) error {
	return NewDomainError("NO_QUEUE_AVAILABLE", "no open queue for priority", http.StatusConflict, map[string]any{
		"priority_id": priorityID,
	})
}

// NewConcurrencyConflict reports a serialization violation that survived the
// engine's internal retries.
func NewConcurrencyConflict(err error) error {
	return &DomainError{
		Code:       "CONCURRENCY_CONFLICT",
		Message:    "concurrent modification detected",
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

// NewPersistenceFailure reports an unreachable durable store. The operation
// must not be assumed to have taken effect.
func NewPersistenceFailure(err error) error {
	return &DomainError{
		Code:       "PERSISTENCE_FAILURE",
		Message:    "durable store unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
