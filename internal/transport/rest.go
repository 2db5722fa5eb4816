package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/ryan4rodrigues/financas-pessoais/internal/types"
)

const (
	authHeaderKey     = "Authorization"
	deviceHeaderKey   = "Device-UUID"
	requestIDKey      = "X-Request-ID"
	idempotencyKey    = "Idempotency-Key"
	contentType       = "application/json"
	envelopeKey       = "dados"
	maxLoggedBodySize = 200
)

// RESTTransport handles JSON-over-HTTP communication with the backend.
// Every response body is expected inside a {"dados": ...} envelope; bodies
// without one are decoded as-is.
type RESTTransport struct {
	baseURL        string
	httpClient     *http.Client
	retryClient    *retryablehttp.Client
	headers        map[string]string
	logger         types.Logger
	hooks          *types.Hooks
	onUnauthorized func(err error)

	mu      sync.RWMutex
	session *types.Session
}

// NewRESTTransport creates a new REST transport
func NewRESTTransport(opts *Options) *RESTTransport {
	if opts == nil {
		opts = &Options{}
	}

	// Set defaults
	if opts.BaseURL == "" {
		opts.BaseURL = types.DefaultBaseURL
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout: types.DefaultTimeout,
		}
	}

	// Create retry client if configured
	var retryClient *retryablehttp.Client
	if opts.RetryConfig != nil {
		retryClient = retryablehttp.NewClient()
		retryClient.HTTPClient = opts.HTTPClient
		retryClient.RetryMax = opts.RetryConfig.MaxRetries
		retryClient.RetryWaitMin = opts.RetryConfig.RetryWait
		retryClient.RetryWaitMax = opts.RetryConfig.MaxWait
		// Hand the last response back so status mapping still applies
		retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
		retryClient.Logger = nil

		if opts.Logger != nil {
			retryClient.Logger = &retryLogger{logger: opts.Logger}
		}
	}

	headers := map[string]string{
		"Accept":       contentType,
		"Content-Type": contentType,
		"User-Agent":   types.UserAgent,
	}

	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &RESTTransport{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		httpClient:     opts.HTTPClient,
		retryClient:    retryClient,
		headers:        headers,
		logger:         opts.Logger,
		hooks:          opts.Hooks,
		onUnauthorized: opts.OnUnauthorized,
	}
}

// Do executes an authenticated request and decodes the envelope payload into result
func (t *RESTTransport) Do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	t.mu.RLock()
	session := t.session
	t.mu.RUnlock()

	if session == nil || session.Token == "" {
		return types.ErrNotAuthenticated
	}

	return t.send(ctx, method, path, session, body, result)
}

// DoPublic executes a request without credentials (login, register, reset)
func (t *RESTTransport) DoPublic(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	return t.send(ctx, method, path, nil, body, result)
}

// SetAuth sets the bearer token
func (t *RESTTransport) SetAuth(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		t.session = &types.Session{}
	}
	t.session.Token = token
}

// SetSession sets the session; nil clears the credential
func (t *RESTTransport) SetSession(session *types.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.session = session
}

// Session returns the session currently attached to outgoing requests
func (t *RESTTransport) Session() *types.Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.session
}

func (t *RESTTransport) send(ctx context.Context, method, path string, session *types.Session, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	for k, v := range t.headers {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set(requestIDKey, uuid.NewString())

	if session != nil {
		httpReq.Header.Set(authHeaderKey, fmt.Sprintf("Bearer %s", session.Token))
		if session.DeviceUUID != "" {
			httpReq.Header.Set(deviceHeaderKey, session.DeviceUUID)
		}
	}

	if method == http.MethodPost {
		httpReq.Header.Set(idempotencyKey, uuid.NewString())
	}

	if t.hooks != nil && t.hooks.OnRequest != nil {
		t.hooks.OnRequest(ctx, httpReq)
	}

	if t.logger != nil {
		t.logger.Debug("REST request", "method", method, "path", path)
	}

	start := time.Now()
	resp, err := t.doRequest(httpReq)
	duration := time.Since(start)

	if err != nil {
		if t.hooks != nil && t.hooks.OnError != nil {
			t.hooks.OnError(ctx, err)
		}
		return errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer resp.Body.Close()

	if t.hooks != nil && t.hooks.OnResponse != nil {
		t.hooks.OnResponse(ctx, resp, duration)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	if t.logger != nil {
		t.logger.Debug("REST response", "method", method, "path", path, "status", resp.StatusCode, "duration", duration, "size", len(respBody))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := t.handleHTTPError(resp.StatusCode, respBody)
		if resp.StatusCode == http.StatusUnauthorized && session != nil {
			t.invalidate(session, httpErr)
		}
		return httpErr
	}

	if result == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := decodeEnvelope(respBody, result); err != nil {
		if t.logger != nil {
			t.logger.Warn("Undecodable response", "path", path, "body", truncate(string(respBody)))
		}
		return errors.Wrap(err, "failed to parse response")
	}

	return nil
}

// invalidate drops the credential that was rejected, unless it was already
// replaced by a newer login in the meantime.
func (t *RESTTransport) invalidate(rejected *types.Session, cause error) {
	t.mu.Lock()
	current := t.session
	if current != nil && current.Token == rejected.Token {
		t.session = nil
	}
	t.mu.Unlock()

	if t.logger != nil {
		t.logger.Warn("Credential rejected by backend, session cleared")
	}

	if current != nil && current.Token == rejected.Token && t.onUnauthorized != nil {
		t.onUnauthorized(cause)
	}
}

// doRequest executes the HTTP request with retry if configured. Creates are
// never retried so a lost response cannot duplicate a ledger entry.
func (t *RESTTransport) doRequest(req *http.Request) (*http.Response, error) {
	if t.retryClient != nil && isIdempotent(req.Method) {
		retryReq, err := retryablehttp.FromRequest(req)
		if err != nil {
			return nil, err
		}
		return t.retryClient.Do(retryReq)
	}
	return t.httpClient.Do(req)
}

// decodeEnvelope unwraps {"dados": ...} when present
func decodeEnvelope(body []byte, result interface{}) error {
	payload := json.RawMessage(body)

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		if data, ok := envelope[envelopeKey]; ok {
			payload = data
		}
	}

	if string(bytes.TrimSpace(payload)) == "null" {
		return nil
	}

	return json.Unmarshal(payload, result)
}

// handleHTTPError maps a non-2xx response to an *types.Error whose Message
// prefers what the backend said.
func (t *RESTTransport) handleHTTPError(statusCode int, body []byte) error {
	var errResp struct {
		Mensagem string `json:"mensagem"`
		Message  string `json:"message"`
		Error    string `json:"error"`
	}

	_ = json.Unmarshal(body, &errResp)

	msg := errResp.Mensagem
	if msg == "" {
		msg = errResp.Message
	}
	if msg == "" {
		msg = errResp.Error
	}

	build := func(code string, sentinel error, fallback string) error {
		m := msg
		if m == "" {
			m = fallback
		}
		return &types.Error{
			Code:       code,
			Message:    m,
			StatusCode: statusCode,
			Err:        sentinel,
		}
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return build("UNAUTHORIZED", types.ErrSessionExpired, "session expired, please log in again")
	case http.StatusForbidden:
		return build("FORBIDDEN", types.ErrNotAuthenticated, "access denied")
	case http.StatusNotFound:
		return build("NOT_FOUND", types.ErrNotFound, "resource not found")
	case http.StatusTooManyRequests:
		return build("RATE_LIMITED", types.ErrRateLimited, "too many requests")
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return build("TIMEOUT", types.ErrTimeout, "request timeout")
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return build("BAD_REQUEST", types.ErrInvalidRequest, fmt.Sprintf("HTTP error: %d", statusCode))
	default:
		if statusCode >= 500 {
			// Build informative error message for server errors
			baseMsg := fmt.Sprintf("server error: %d", statusCode)
			if desc := httpStatusDescription(statusCode); desc != "" {
				baseMsg = fmt.Sprintf("server error: %d (%s)", statusCode, desc)
			}

			if msg != "" {
				baseMsg = fmt.Sprintf("%s: %s", baseMsg, msg)
			}

			return &types.Error{
				Code:       "SERVER_ERROR",
				Message:    baseMsg,
				StatusCode: statusCode,
				Err:        types.ErrServerError,
			}
		}
		return build("HTTP_ERROR", nil, fmt.Sprintf("HTTP error: %d", statusCode))
	}
}

// httpStatusDescription returns a human-readable description for common HTTP status codes.
func httpStatusDescription(statusCode int) string {
	descriptions := map[int]string{
		500: "Internal Server Error",
		501: "Not Implemented",
		502: "Bad Gateway",
		503: "Service Unavailable",
		504: "Gateway Timeout",
		520: "Web Server Error",
		521: "Web Server Is Down",
		522: "Connection Timed Out",
		523: "Origin Is Unreachable",
		524: "A Timeout Occurred",
		525: "SSL Handshake Failed",
		526: "Invalid SSL Certificate",
	}
	return descriptions[statusCode]
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// truncate shortens response bodies for logging
func truncate(s string) string {
	if len(s) <= maxLoggedBodySize {
		return s
	}
	return s[:maxLoggedBodySize] + "..."
}

// Options for REST transport
type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	Headers     map[string]string
	RetryConfig *types.RetryConfig
	Logger      types.Logger
	Hooks       *types.Hooks

	// OnUnauthorized runs after a 401 cleared the credential
	OnUnauthorized func(err error)
}

// retryLogger adapts our logger to retryablehttp
type retryLogger struct {
	logger types.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValues...)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}
