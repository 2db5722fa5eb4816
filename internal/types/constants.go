package types

import (
	"errors"
	"time"
)

const (
	// DefaultBaseURL is the default finance backend base URL
	DefaultBaseURL = "http://localhost:5000/api"

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second

	// UserAgent is the user agent string
	UserAgent = "financas-go/1.0.0"
)

// Durable storage keys shared by every component
const (
	TokenStorageKey = "financas_token"
	UserStorageKey  = "financas_user"
)

// Common errors
var (
	// ErrNotAuthenticated is returned when authentication is required
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSessionExpired is returned when the backend rejects the credential
	ErrSessionExpired = errors.New("session expired")

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout is returned on timeout
	ErrTimeout = errors.New("request timeout")

	// ErrNotFound is returned when resource not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidRequest is returned for rejected payloads
	ErrInvalidRequest = errors.New("invalid request")

	// ErrServerError is returned for server errors
	ErrServerError = errors.New("server error")
)
