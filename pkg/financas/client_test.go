package financas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ryan4rodrigues/financas-pessoais/internal/storage"
	internalTypes "github.com/ryan4rodrigues/financas-pessoais/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is an in-memory stand-in for the REST API
type fakeBackend struct {
	mu           sync.Mutex
	token        string
	accounts     []map[string]interface{}
	transactions []map[string]interface{}
	failAccounts int32
	posts        int32
	idempotency  []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		token: "token-123",
		accounts: []map[string]interface{}{
			{"id": "acc-1", "name": "Checking", "type": "checking", "balance": 500},
			{"id": "acc-2", "name": "Visa", "type": "credit", "balance": -200, "creditLimit": 1000},
		},
		transactions: []map[string]interface{}{},
	}
}

func (b *fakeBackend) reply(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r.URL.Path == "/auth/login" {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "segredo" {
			b.reply(w, http.StatusUnauthorized, map[string]string{"mensagem": "Credenciais inválidas"})
			return
		}
		b.reply(w, http.StatusOK, map[string]interface{}{"dados": map[string]interface{}{
			"user":  map[string]string{"id": "u1", "name": "Ana Souza", "email": body["email"]},
			"token": b.token,
		}})
		return
	}

	if r.Header.Get("Authorization") != "Bearer "+b.token {
		b.reply(w, http.StatusUnauthorized, map[string]string{"mensagem": "Token inválido"})
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/contas":
		if b.failAccounts > 0 {
			b.failAccounts--
			b.reply(w, http.StatusInternalServerError, map[string]string{"mensagem": "Erro ao buscar contas"})
			return
		}
		b.reply(w, http.StatusOK, map[string]interface{}{"dados": b.accounts})
	case r.Method == http.MethodGet && r.URL.Path == "/transacoes":
		b.reply(w, http.StatusOK, map[string]interface{}{"dados": b.transactions})
	case r.Method == http.MethodGet:
		b.reply(w, http.StatusOK, map[string]interface{}{"dados": []interface{}{}})
	case r.Method == http.MethodPost && r.URL.Path == "/transacoes":
		b.posts++
		b.idempotency = append(b.idempotency, r.Header.Get("Idempotency-Key"))
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		tx := map[string]interface{}{
			"id":       "t" + string(rune('0'+len(b.transactions)+1)),
			"type":     body["type"],
			"category": body["category"],
			"amount":   body["amount"],
			"contaId":  body["contaId"],
			"date":     body["date"],
			"status":   body["status"],
		}
		b.transactions = append([]map[string]interface{}{tx}, b.transactions...)
		// the backend recomputes the account balance
		for _, acc := range b.accounts {
			if acc["id"] == body["contaId"] {
				acc["balance"] = toFloat(acc["balance"]) - body["amount"].(float64)
			}
		}
		b.reply(w, http.StatusCreated, map[string]interface{}{"dados": tx})
	default:
		b.reply(w, http.StatusNotFound, map[string]string{"mensagem": "Rota não encontrada"})
	}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func newBackendClient(t *testing.T, backend *fakeBackend, opts *ClientOptions) *Client {
	t.Helper()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	if opts == nil {
		opts = &ClientOptions{}
	}
	opts.BaseURL = server.URL
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}

	client, err := NewClient(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClient_EndToEnd(t *testing.T) {
	backend := newFakeBackend()
	client := newBackendClient(t, backend, nil)
	ctx := context.Background()

	_, err := client.Session.Login(ctx, "ana@example.com", "segredo")
	require.NoError(t, err)

	assert.Equal(t, 500.0, client.Accounts.TotalBalance())
	assert.Equal(t, 200.0, client.Accounts.TotalDebt())

	tx, err := client.Transactions.Add(ctx, &TransactionParams{
		AccountID:  "acc-1",
		Type:       TransactionTypeExpense,
		CategoryID: "food",
		Amount:     120,
		Date:       time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "acc-1", tx.AccountID)
	assert.Equal(t, "Alimentação", tx.Category.Name)

	// balances are recomputed by the backend and reloaded after the ledger change
	client.Wait()
	assert.Equal(t, 380.0, client.Accounts.TotalBalance())

	start, end := march()
	assert.Equal(t, 120.0, client.Transactions.TotalExpenses(start, end))

	backend.mu.Lock()
	require.Len(t, backend.idempotency, 1)
	assert.NotEmpty(t, backend.idempotency[0])
	backend.mu.Unlock()
}

func TestClient_ServerErrorThenRecovery(t *testing.T) {
	backend := newFakeBackend()
	backend.failAccounts = 1
	client := newBackendClient(t, backend, nil)
	ctx := context.Background()

	_, err := client.Session.Login(ctx, "ana@example.com", "segredo")
	require.NoError(t, err)

	state := client.Accounts.State()
	assert.Contains(t, state.Error, "Erro ao buscar contas")
	assert.Empty(t, client.Accounts.List())

	require.NoError(t, client.Accounts.Load(ctx))
	assert.Empty(t, client.Accounts.State().Error)
	assert.Len(t, client.Accounts.List(), 2)
}

func TestClient_LoginRejected(t *testing.T) {
	client := newBackendClient(t, newFakeBackend(), nil)

	_, err := client.Session.Login(context.Background(), "ana@example.com", "errada")

	require.Error(t, err)
	assert.Equal(t, "Credenciais inválidas", ErrorMessage(err))
	assert.Equal(t, "Credenciais inválidas", client.Session.State().Error)
}

func TestClient_ExpiredTokenSignsOut(t *testing.T) {
	backend := newFakeBackend()
	store := storage.NewMemoryStore()
	client := newBackendClient(t, backend, &ClientOptions{Storage: store})
	ctx := context.Background()

	_, err := client.Session.Login(ctx, "ana@example.com", "segredo")
	require.NoError(t, err)
	require.Len(t, client.Accounts.List(), 2)

	backend.mu.Lock()
	backend.token = "rotated"
	backend.mu.Unlock()

	err = client.Accounts.Load(ctx)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))

	assert.Nil(t, client.Session.User())
	assert.Equal(t, "Token inválido", client.Session.State().Error)
	assert.Empty(t, client.Accounts.List())

	_, err = store.Get(ctx, internalTypes.TokenStorageKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// further requests fail fast without a credential
	assert.NoError(t, client.Accounts.Load(ctx))
	assert.Empty(t, client.Accounts.List())
}

func TestClient_Refresh(t *testing.T) {
	client := newBackendClient(t, newFakeBackend(), nil)
	ctx := context.Background()

	assert.ErrorIs(t, client.Refresh(ctx), ErrNotAuthenticated)

	_, err := client.Session.Login(ctx, "ana@example.com", "segredo")
	require.NoError(t, err)

	revision := client.Accounts.Revision()
	require.NoError(t, client.Refresh(ctx))
	assert.Greater(t, client.Accounts.Revision(), revision)
}

func TestClient_SessionFilePersistsAcrossClients(t *testing.T) {
	backend := newFakeBackend()
	path := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	first := newBackendClient(t, backend, &ClientOptions{SessionFile: path})
	_, err := first.Session.Login(ctx, "ana@example.com", "segredo")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newBackendClient(t, backend, &ClientOptions{SessionFile: path})
	require.NoError(t, second.Start(ctx))

	user := second.Session.User()
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)
	assert.Len(t, second.Accounts.List(), 2)
}

func TestClient_Hooks(t *testing.T) {
	var requests int32
	var authorized int32
	client := newBackendClient(t, newFakeBackend(), &ClientOptions{
		Hooks: &internalTypes.Hooks{
			OnRequest: func(ctx context.Context, req *http.Request) {
				atomic.AddInt32(&requests, 1)
				if strings.HasPrefix(req.Header.Get("Authorization"), "Bearer ") {
					atomic.AddInt32(&authorized, 1)
				}
			},
		},
	})

	_, err := client.Session.Login(context.Background(), "ana@example.com", "segredo")
	require.NoError(t, err)

	// login plus the four collection loads
	assert.Equal(t, int32(5), atomic.LoadInt32(&requests))
	assert.Equal(t, int32(4), atomic.LoadInt32(&authorized))
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	client, err := NewClient(&ClientOptions{SessionFile: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)

	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
}
