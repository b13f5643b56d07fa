package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones and wraps of a
// predefined error still match it with errors.Is.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Matching and pricing failures.
var (
	ErrInvalidCoordinate      = New("INVALID_COORDINATE", http.StatusUnprocessableEntity, "coordinates missing and no preset distance")
	ErrNoEligibleWorker       = New("NO_ELIGIBLE_WORKER", http.StatusConflict, "no eligible worker for job")
	ErrWorkerUnavailable      = New("WORKER_UNAVAILABLE", http.StatusConflict, "best matching worker is unavailable on the desired date")
	ErrDuplicateAssignment    = New("DUPLICATE_ASSIGNMENT", http.StatusConflict, "job already has an active assignment")
	ErrQuoteAlreadyExists     = New("QUOTE_ALREADY_EXISTS", http.StatusConflict, "job already has a quote")
	ErrPaymentAlreadyExists   = New("PAYMENT_ALREADY_EXISTS", http.StatusConflict, "assignment already has a payment")
	ErrAssignmentNotCompleted = New("ASSIGNMENT_NOT_COMPLETED", http.StatusPreconditionFailed, "assignment is not completed")
	ErrRepositoryFailure      = New("REPOSITORY_FAILURE", http.StatusInternalServerError, "storage failure")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Repository wraps a storage collaborator failure.
func Repository(err error, message string) *Error {
	return Wrap(err, ErrRepositoryFailure.Code, ErrRepositoryFailure.Status, message)
}
