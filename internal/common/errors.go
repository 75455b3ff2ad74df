package common

import (
	"errors"
	"net/http"
)

// Error codes used to classify payment adapter failures.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeNotFound            = "NOT_FOUND"
	CodeNotAllowed          = "NOT_ALLOWED"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeUnexpectedState     = "UNEXPECTED_STATE"
	CodeUpstreamRejected    = "UPSTREAM_REJECTED"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// ErrInvalidInput marks a request the caller must fix before retrying.
func ErrInvalidInput(message string) *AppError {
	return NewAppError(CodeInvalidInput, message, http.StatusBadRequest, nil)
}

// ErrNotFound marks a resource or desired state as absent. Retryable by the caller.
func ErrNotFound(message string) *AppError {
	return NewAppError(CodeNotFound, message, http.StatusNotFound, nil)
}

// ErrNotAllowed marks an operation forbidden in the current state.
func ErrNotAllowed(message string, err error) *AppError {
	return NewAppError(CodeNotAllowed, message, http.StatusForbidden, err)
}

// ErrUnauthorized marks a request that failed authentication.
func ErrUnauthorized(message string) *AppError {
	return NewAppError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// ErrUnexpectedState marks an upstream response outside the known vocabulary.
func ErrUnexpectedState(message string, err error) *AppError {
	return NewAppError(CodeUnexpectedState, message, http.StatusBadGateway, err)
}

// ErrUpstreamRejected marks a request the gateway refused as unsupported.
func ErrUpstreamRejected(message string, err error) *AppError {
	return NewAppError(CodeUpstreamRejected, message, http.StatusBadGateway, err)
}

// ErrUpstreamUnavailable wraps a transport or fetch failure against the gateway.
func ErrUpstreamUnavailable(message string, err error) *AppError {
	return NewAppError(CodeUpstreamUnavailable, message, http.StatusBadGateway, err)
}

// CodeOf returns the classification code of err, or empty when unclassified.
func CodeOf(err error) string {
	var target *AppError
	if errors.As(err, &target) {
		return target.Code
	}
	return ""
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// HTTPStatusOf maps err to an HTTP status, defaulting to 500 for unclassified errors.
func HTTPStatusOf(err error) int {
	var target *AppError
	if errors.As(err, &target) && target.HTTPStatus > 0 {
		return target.HTTPStatus
	}
	return http.StatusInternalServerError
}
