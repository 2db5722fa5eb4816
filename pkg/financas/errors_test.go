package financas

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	backend := &Error{Code: "BAD_REQUEST", Message: "Valor inválido", StatusCode: 400, Err: ErrInvalidRequest}

	assert.Equal(t, "Valor inválido", ErrorMessage(backend))
	assert.Equal(t, "Valor inválido", ErrorMessage(pkgerrors.Wrap(backend, "failed to create transaction")))
	assert.Equal(t, "boom", ErrorMessage(errors.New("boom")))
	assert.Empty(t, ErrorMessage(nil))
}

func TestErrorClassification(t *testing.T) {
	unauthorized := &Error{Code: "UNAUTHORIZED", Message: "Token expirado", StatusCode: 401, Err: ErrSessionExpired}

	assert.True(t, IsUnauthorized(unauthorized))
	assert.True(t, IsUnauthorized(pkgerrors.Wrap(unauthorized, "load failed")))
	assert.True(t, IsAuthError(unauthorized))
	assert.True(t, IsAuthError(ErrNotAuthenticated))
	assert.False(t, IsUnauthorized(ErrNotAuthenticated))

	assert.True(t, IsRetryable(&Error{StatusCode: 503}))
	assert.True(t, IsRetryable(&Error{StatusCode: 429}))
	assert.True(t, IsRetryable(ErrTimeout))
	assert.False(t, IsRetryable(&Error{StatusCode: 400, Err: ErrInvalidRequest}))

	err := validationError("amount must be positive")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, "amount must be positive", ErrorMessage(err))
}

func TestWrapError(t *testing.T) {
	err := WrapError(ErrServerError, "SERVER_ERROR", "backend unavailable")
	assert.ErrorIs(t, err, ErrServerError)
	assert.Equal(t, "backend unavailable", err.Error())

	assert.Equal(t, "NOT_FOUND", NewError("NOT_FOUND", "missing").Code)
}
