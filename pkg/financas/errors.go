package financas

import (
	"errors"
	"net/http"

	internalTypes "github.com/ryan4rodrigues/financas-pessoais/internal/types"
)

var (
	// ErrNotAuthenticated is returned when authentication is required
	ErrNotAuthenticated = internalTypes.ErrNotAuthenticated

	// ErrSessionExpired is returned when the backend rejected the credential
	ErrSessionExpired = internalTypes.ErrSessionExpired

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = internalTypes.ErrRateLimited

	// ErrTimeout is returned on timeout
	ErrTimeout = internalTypes.ErrTimeout

	// ErrNotFound is returned when resource not found
	ErrNotFound = internalTypes.ErrNotFound

	// ErrInvalidRequest is returned for invalid requests
	ErrInvalidRequest = internalTypes.ErrInvalidRequest

	// ErrServerError is returned for server errors
	ErrServerError = internalTypes.ErrServerError
)

// Error represents an API error
type Error = internalTypes.Error

// NewError creates a new API error
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an error with additional context
func WrapError(err error, code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrorMessage returns the single human-readable message for err, preferring
// what the backend said over local wrapping.
func ErrorMessage(err error) string {
	return internalTypes.Message(err)
}

// IsAuthError checks if error is authentication related
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrSessionExpired)
}

// IsUnauthorized reports whether the backend answered 401
func IsUnauthorized(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return true
	}
	return errors.Is(err, ErrSessionExpired)
}

// IsRetryable checks if error is retryable
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServerError) {
		return true
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == 429
	}

	return false
}

// validationError is raised before any backend call
func validationError(msg string) error {
	return &Error{
		Code:    "BAD_REQUEST",
		Message: msg,
		Err:     ErrInvalidRequest,
	}
}
