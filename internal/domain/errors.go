// Package domain provides the wire envelope and canonical error types shared
// by every HTTP surface of the mock gateway.
package domain

import (
	"fmt"
	"net/http"
)

// APIError is the normalized error carried through handlers and simulation
// stages. It renders into the standard error envelope at the boundary.
type APIError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"-"`
	Details    map[string]any `json:"details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// NewAPIError creates an error with a non-nil details map so the envelope
// always carries a details object.
func NewAPIError(code string, status int, message string, details map[string]any) *APIError {
	if details == nil {
		details = map[string]any{}
	}
	return &APIError{Code: code, Message: message, StatusCode: status, Details: details}
}

// Convenience constructors for the error taxonomy.

func ErrValidation(message string, details map[string]any) *APIError {
	return NewAPIError("VALIDATION_ERROR", http.StatusBadRequest, message, details)
}

func ErrNotFound(message string, details map[string]any) *APIError {
	return NewAPIError("NOT_FOUND", http.StatusNotFound, message, details)
}

func ErrRateLimit(message string, retryAfter int) *APIError {
	return NewAPIError("RATE_LIMIT_EXCEEDED", http.StatusTooManyRequests, message,
		map[string]any{"retryAfter": retryAfter})
}

func ErrServiceUnavailable(message string, details map[string]any) *APIError {
	return NewAPIError("SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, message, details)
}

func ErrInternal(message string) *APIError {
	return NewAPIError("INTERNAL_SERVER_ERROR", http.StatusInternalServerError, message, nil)
}
