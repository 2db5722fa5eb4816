package financas

import (
	"context"
	"net/http"
	"time"
)

const (
	transactionsPath   = "/transacoes"
	transactionsMirror = "financas_transactions"
)

// transactionStore implements the TransactionStore interface. Every
// acknowledged mutation publishes a ledger change so balances reload.
type transactionStore struct {
	storeBase[Transaction]
}

func newTransactionStore(client *Client) *transactionStore {
	return &transactionStore{storeBase[Transaction]{
		client:  client,
		name:    "transactions",
		path:    transactionsPath,
		mirror:  transactionsMirror,
		mutated: client.publishLedgerChanged,
	}}
}

// Load fetches the ledger for the current session
func (s *transactionStore) Load(ctx context.Context) error {
	return s.load(ctx)
}

// Add creates a transaction and prepends it to the cache
func (s *transactionStore) Add(ctx context.Context, params *TransactionParams) (*Transaction, error) {
	if err := validateTransaction(params); err != nil {
		return nil, err
	}

	return s.mutate(ctx, flightKey("create", "", params), http.MethodPost, transactionsPath, params, prepend[Transaction])
}

// Update updates a transaction
func (s *transactionStore) Update(ctx context.Context, transactionID string, params *TransactionParams) (*Transaction, error) {
	if transactionID == "" {
		return nil, validationError("transaction id is required")
	}
	if err := validateTransaction(params); err != nil {
		return nil, err
	}

	return s.mutate(ctx, flightKey("update", transactionID, params), http.MethodPut, transactionsPath+"/"+transactionID, params, upsert[Transaction])
}

// Remove deletes a transaction once the backend confirms
func (s *transactionStore) Remove(ctx context.Context, transactionID string) error {
	return s.remove(ctx, transactionID)
}

// GetByID returns a copy of the transaction or nil
func (s *transactionStore) GetByID(transactionID string) *Transaction {
	return s.cache.find(transactionID)
}

// GetByPeriod filters by date, inclusive on both ends. A zero bound returns
// the whole cache.
func (s *transactionStore) GetByPeriod(start, end time.Time) []Transaction {
	if start.IsZero() || end.IsZero() {
		return s.List()
	}
	return s.cache.filter(func(t Transaction) bool {
		return within(t.Date.In(s.client.location), start, end)
	})
}

// GetByCategory filters by exact category id
func (s *transactionStore) GetByCategory(categoryID string) []Transaction {
	return s.cache.filter(func(t Transaction) bool {
		return t.Category.ID == categoryID
	})
}

// GetByAccount filters by exact account id
func (s *transactionStore) GetByAccount(accountID string) []Transaction {
	return s.cache.filter(func(t Transaction) bool {
		return t.AccountID == accountID
	})
}

// TotalIncome sums completed income in the period
func (s *transactionStore) TotalIncome(start, end time.Time) float64 {
	return sumCompleted(s.GetByPeriod(start, end), TransactionTypeIncome)
}

// TotalExpenses sums completed expenses in the period
func (s *transactionStore) TotalExpenses(start, end time.Time) float64 {
	return sumCompleted(s.GetByPeriod(start, end), TransactionTypeExpense)
}

func sumCompleted(txs []Transaction, kind TransactionType) float64 {
	var sum moneySum
	for _, t := range txs {
		if t.Type == kind && t.IsCompleted() {
			sum.add(t.Amount)
		}
	}
	return sum.float()
}

func validateTransaction(p *TransactionParams) error {
	switch {
	case p == nil:
		return validationError("transaction is required")
	case p.AccountID == "":
		return validationError("account is required")
	case p.Type != TransactionTypeIncome && p.Type != TransactionTypeExpense:
		return validationError("type must be income or expense")
	case p.CategoryID == "":
		return validationError("category is required")
	case p.Amount <= 0:
		return validationError("amount must be positive")
	}
	return nil
}
