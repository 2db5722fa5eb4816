package financas

import (
	"context"
	"math"
	"net/http"
	"strings"

	"github.com/ryan4rodrigues/financas-pessoais/internal/events"
)

const (
	accountsPath   = "/contas"
	accountsMirror = "financas_accounts"
)

// accountStore implements the AccountStore interface
type accountStore struct {
	storeBase[Account]
}

func newAccountStore(client *Client) *accountStore {
	return &accountStore{storeBase[Account]{
		client: client,
		name:   "accounts",
		path:   accountsPath,
		mirror: accountsMirror,
	}}
}

// Load fetches all accounts for the current session
func (s *accountStore) Load(ctx context.Context) error {
	return s.load(ctx)
}

// Add creates an account
func (s *accountStore) Add(ctx context.Context, params *CreateAccountParams) (*Account, error) {
	if params == nil || strings.TrimSpace(params.Name) == "" {
		return nil, validationError("account name is required")
	}
	if params.Type == "" {
		return nil, validationError("account type is required")
	}

	return s.mutate(ctx, flightKey("create", "", params), http.MethodPost, accountsPath, params, appendItem[Account])
}

// Update updates an account
func (s *accountStore) Update(ctx context.Context, accountID string, params *UpdateAccountParams) (*Account, error) {
	if accountID == "" {
		return nil, validationError("account id is required")
	}
	if params == nil {
		params = &UpdateAccountParams{}
	}

	return s.mutate(ctx, flightKey("update", accountID, params), http.MethodPut, accountsPath+"/"+accountID, params, upsert[Account])
}

// Remove deletes an account once the backend confirms
func (s *accountStore) Remove(ctx context.Context, accountID string) error {
	return s.remove(ctx, accountID)
}

// GetByID returns a copy of the account or nil
func (s *accountStore) GetByID(accountID string) *Account {
	return s.cache.find(accountID)
}

// GetByType returns active accounts of the given type
func (s *accountStore) GetByType(accountType AccountType) []Account {
	return s.cache.filter(func(a Account) bool {
		return a.IsActive && a.Type == accountType
	})
}

// TotalBalance sums balances of active non-credit accounts
func (s *accountStore) TotalBalance() float64 {
	var sum moneySum
	for _, a := range s.cache.filter(func(a Account) bool {
		return a.IsActive && a.Type != AccountTypeCredit
	}) {
		sum.add(a.Balance)
	}
	return sum.float()
}

// TotalDebt is the absolute sum of negative balances of active credit accounts
func (s *accountStore) TotalDebt() float64 {
	var sum moneySum
	for _, a := range s.cache.filter(func(a Account) bool {
		return a.IsActive && a.Type == AccountTypeCredit && a.Balance < 0
	}) {
		sum.add(a.Balance)
	}
	return math.Abs(sum.float())
}

// onLedgerChanged reloads balances the backend recomputed
func (s *accountStore) onLedgerChanged(ctx context.Context, evt events.Event) {
	if evt.UserID != "" && evt.UserID != s.client.session.userIDFor(s.client.session.generation()) {
		return
	}
	if err := s.reload(ctx); err != nil {
		s.client.logWarn("Account reload after ledger change failed", "error", err)
	}
}
