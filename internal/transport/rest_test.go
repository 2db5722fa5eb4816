package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ryan4rodrigues/financas-pessoais/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHTTPError_ServerError_IncludesResponseBody(t *testing.T) {
	transport := &RESTTransport{}

	tests := []struct {
		name          string
		statusCode    int
		responseBody  []byte
		expectedInMsg string
	}{
		{
			name:          "525 SSL Handshake Failed with HTML body",
			statusCode:    525,
			responseBody:  []byte(`<html><body>SSL Handshake Failed</body></html>`),
			expectedInMsg: "525",
		},
		{
			name:          "500 with backend mensagem",
			statusCode:    500,
			responseBody:  []byte(`{"sucesso": false, "mensagem": "Falha ao conectar ao banco"}`),
			expectedInMsg: "Falha ao conectar ao banco",
		},
		{
			name:          "502 Bad Gateway with empty body",
			statusCode:    502,
			responseBody:  []byte{},
			expectedInMsg: "502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := transport.handleHTTPError(tt.statusCode, tt.responseBody)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedInMsg)
			assert.True(t, errors.Is(err, types.ErrServerError))
		})
	}
}

func TestHandleHTTPError_PrefersBackendMessage(t *testing.T) {
	transport := &RESTTransport{}

	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		sentinel error
	}{
		{"mensagem wins", 400, `{"mensagem": "Saldo inválido", "message": "ignored"}`, "Saldo inválido", types.ErrInvalidRequest},
		{"message fallback", 400, `{"message": "Invalid balance"}`, "Invalid balance", types.ErrInvalidRequest},
		{"error fallback", 404, `{"error": "Conta não encontrada"}`, "Conta não encontrada", types.ErrNotFound},
		{"generic 404", 404, ``, "resource not found", types.ErrNotFound},
		{"generic 401", 401, `not json`, "session expired, please log in again", types.ErrSessionExpired},
		{"rate limited", 429, `{}`, "too many requests", types.ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := transport.handleHTTPError(tt.status, []byte(tt.body))

			var apiErr *types.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.True(t, errors.Is(err, tt.sentinel))
		})
	}
}

func TestRESTTransport_Do_UnwrapsEnvelopeAndSendsBearer(t *testing.T) {
	var gotAuth, gotDevice string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotDevice = r.Header.Get("Device-UUID")
		assert.Equal(t, "/contas", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`{"sucesso": true, "dados": [{"id": "acc-1"}, {"id": "acc-2"}]}`))
	}))
	defer server.Close()

	tr := NewRESTTransport(&Options{BaseURL: server.URL})
	tr.SetSession(&types.Session{Token: "tok-123", DeviceUUID: "dev-1"})

	var result []struct {
		ID string `json:"id"`
	}
	err := tr.Do(context.Background(), http.MethodGet, "/contas", nil, &result)

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "dev-1", gotDevice)
	require.Len(t, result, 2)
	assert.Equal(t, "acc-2", result[1].ID)
}

func TestRESTTransport_Do_BodyWithoutEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user": {"id": "u1"}, "token": "abc"}`))
	}))
	defer server.Close()

	tr := NewRESTTransport(&Options{BaseURL: server.URL})

	var result struct {
		Token string `json:"token"`
	}
	require.NoError(t, tr.DoPublic(context.Background(), http.MethodPost, "/auth/login", map[string]string{"email": "a@b.c"}, &result))
	assert.Equal(t, "abc", result.Token)
}

func TestRESTTransport_Do_RequiresCredential(t *testing.T) {
	tr := NewRESTTransport(&Options{BaseURL: "http://unused.invalid"})

	err := tr.Do(context.Background(), http.MethodGet, "/contas", nil, nil)

	assert.ErrorIs(t, err, types.ErrNotAuthenticated)
}

func TestRESTTransport_Do_UnauthorizedClearsCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"mensagem": "Token inválido"}`))
	}))
	defer server.Close()

	var called int32
	tr := NewRESTTransport(&Options{
		BaseURL:        server.URL,
		OnUnauthorized: func(error) { atomic.AddInt32(&called, 1) },
	})
	tr.SetAuth("expired")

	err := tr.Do(context.Background(), http.MethodGet, "/metas", nil, nil)

	require.Error(t, err)
	assert.Equal(t, "Token inválido", types.Message(err))
	assert.ErrorIs(t, err, types.ErrSessionExpired)
	assert.Nil(t, tr.Session())
	assert.Equal(t, int32(1), atomic.LoadInt32(&called))
}

func TestRESTTransport_PostCarriesIdempotencyKeyAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "acc-1", body["contaId"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"dados": {"id": "tx-1"}}`))
	}))
	defer server.Close()

	tr := NewRESTTransport(&Options{BaseURL: server.URL})
	tr.SetAuth("tok")

	var result struct {
		ID string `json:"id"`
	}
	err := tr.Do(context.Background(), http.MethodPost, "/transacoes", map[string]interface{}{"contaId": "acc-1"}, &result)

	require.NoError(t, err)
	assert.Equal(t, "tx-1", result.ID)
}

func TestRESTTransport_RetriesIdempotentRequests(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"dados": []}`))
	}))
	defer server.Close()

	tr := NewRESTTransport(&Options{
		BaseURL: server.URL,
		RetryConfig: &types.RetryConfig{
			MaxRetries: 3,
			RetryWait:  time.Millisecond,
			MaxWait:    5 * time.Millisecond,
		},
	})
	tr.SetAuth("tok")

	var result []interface{}
	require.NoError(t, tr.Do(context.Background(), http.MethodGet, "/orcamentos", nil, &result))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestRESTTransport_DoesNotRetryCreates(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tr := NewRESTTransport(&Options{
		BaseURL:     server.URL,
		RetryConfig: &types.RetryConfig{MaxRetries: 3, RetryWait: time.Millisecond, MaxWait: time.Millisecond},
	})
	tr.SetAuth("tok")

	err := tr.Do(context.Background(), http.MethodPost, "/transacoes", map[string]string{}, nil)

	assert.ErrorIs(t, err, types.ErrServerError)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}
