package financas

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	budgetsPath   = "/orcamentos"
	budgetsMirror = "financas_budgets"

	warningThreshold  = 80
	exceededThreshold = 100
)

// budgetStore implements the BudgetStore interface. Spending is derived from
// the transaction store's cache.
type budgetStore struct {
	storeBase[Budget]

	memoMu     sync.Mutex
	memo       []BudgetWithSpent
	memoBudget uint64
	memoLedger uint64
	memoValid  bool
}

func newBudgetStore(client *Client) *budgetStore {
	return &budgetStore{storeBase: storeBase[Budget]{
		client: client,
		name:   "budgets",
		path:   budgetsPath,
		mirror: budgetsMirror,
	}}
}

// Load fetches all budgets for the current session
func (s *budgetStore) Load(ctx context.Context) error {
	return s.load(ctx)
}

// Add creates a budget
func (s *budgetStore) Add(ctx context.Context, params *BudgetParams) (*Budget, error) {
	if err := validateBudget(params); err != nil {
		return nil, err
	}
	return s.mutate(ctx, flightKey("create", "", params), http.MethodPost, budgetsPath, params, appendItem[Budget])
}

// Update updates a budget
func (s *budgetStore) Update(ctx context.Context, budgetID string, params *BudgetParams) (*Budget, error) {
	if budgetID == "" {
		return nil, validationError("budget id is required")
	}
	if err := validateBudget(params); err != nil {
		return nil, err
	}
	return s.mutate(ctx, flightKey("update", budgetID, params), http.MethodPut, budgetsPath+"/"+budgetID, params, upsert[Budget])
}

// Remove deletes a budget once the backend confirms
func (s *budgetStore) Remove(ctx context.Context, budgetID string) error {
	return s.remove(ctx, budgetID)
}

// GetByID returns a copy of the budget or nil
func (s *budgetStore) GetByID(budgetID string) *Budget {
	return s.cache.find(budgetID)
}

// CategorySpent sums completed expenses of categoryID dated within the
// calendar month. Any missing argument yields 0.
func (s *budgetStore) CategorySpent(categoryID string, year int, month time.Month) float64 {
	return s.categorySpent(s.client.transactions.List(), categoryID, year, month).float()
}

func (s *budgetStore) categorySpent(txs []Transaction, categoryID string, year int, month time.Month) moneySum {
	var sum moneySum
	if categoryID == "" || year == 0 || month < time.January || month > time.December {
		return sum
	}

	start, end := MonthRange(year, month, s.client.location)
	for _, t := range txs {
		if t.Type != TransactionTypeExpense || !t.IsCompleted() || t.Category.ID != categoryID {
			continue
		}
		if within(t.Date.In(s.client.location), start, end) {
			sum.add(t.Amount)
		}
	}
	return sum
}

// Status classifies the budget's consumption for its own month
func (s *budgetStore) Status(budget *Budget) BudgetStatus {
	if budget == nil {
		return BudgetStatusOnTrack
	}
	spent := s.categorySpent(s.client.transactions.List(), budget.CategoryID, budget.Year, time.Month(budget.Month))
	return budgetStatus(spent.total, budget.Amount.Decimal())
}

// WithSpent augments every budget with spent, remaining, percentage and
// status. Results are reused until either collection changes.
func (s *budgetStore) WithSpent() []BudgetWithSpent {
	budgetRev := s.Revision()
	ledgerRev := s.client.transactions.Revision()

	s.memoMu.Lock()
	defer s.memoMu.Unlock()

	if !s.memoValid || s.memoBudget != budgetRev || s.memoLedger != ledgerRev {
		s.memo = s.computeWithSpent()
		s.memoBudget = budgetRev
		s.memoLedger = ledgerRev
		s.memoValid = true
	}

	out := make([]BudgetWithSpent, len(s.memo))
	copy(out, s.memo)
	return out
}

func (s *budgetStore) computeWithSpent() []BudgetWithSpent {
	txs := s.client.transactions.List()
	budgets := s.List()
	out := make([]BudgetWithSpent, 0, len(budgets))

	hundred := decimal.NewFromInt(100)
	for _, b := range budgets {
		spent := s.categorySpent(txs, b.CategoryID, b.Year, time.Month(b.Month))
		amount := b.Amount.Decimal()

		pct := decimal.Zero
		if amount.IsPositive() {
			pct = spent.total.Mul(hundred).Div(amount)
		}
		if pct.GreaterThan(hundred) {
			pct = hundred
		}
		if pct.IsNegative() {
			pct = decimal.Zero
		}

		spentF, _ := spent.total.Float64()
		remainingF, _ := amount.Sub(spent.total).Float64()
		pctF, _ := pct.Float64()

		out = append(out, BudgetWithSpent{
			Budget:     b,
			Spent:      spentF,
			Remaining:  remainingF,
			Percentage: pctF,
			Status:     budgetStatus(spent.total, amount),
		})
	}
	return out
}

// TotalBudgeted sums active budgets of exactly (year, month)
func (s *budgetStore) TotalBudgeted(year int, month time.Month) float64 {
	var sum moneySum
	for _, b := range s.activeFor(year, month) {
		sum.add(b.Amount)
	}
	return sum.float()
}

// TotalSpent sums the category spend of active budgets of exactly (year, month)
func (s *budgetStore) TotalSpent(year int, month time.Month) float64 {
	txs := s.client.transactions.List()
	var sum moneySum
	for _, b := range s.activeFor(year, month) {
		spent := s.categorySpent(txs, b.CategoryID, b.Year, time.Month(b.Month))
		sum.total = sum.total.Add(spent.total)
	}
	return sum.float()
}

func (s *budgetStore) activeFor(year int, month time.Month) []Budget {
	return s.cache.filter(func(b Budget) bool {
		return b.IsActive && b.Year == year && b.Month == int(month)
	})
}

// budgetStatus: below 80% on track, below 100% warning, otherwise exceeded.
// A non-positive cap is always on track.
func budgetStatus(spent, amount decimal.Decimal) BudgetStatus {
	if !amount.IsPositive() {
		return BudgetStatusOnTrack
	}
	pct := spent.Mul(decimal.NewFromInt(100)).Div(amount)
	switch {
	case pct.GreaterThanOrEqual(decimal.NewFromInt(exceededThreshold)):
		return BudgetStatusExceeded
	case pct.GreaterThanOrEqual(decimal.NewFromInt(warningThreshold)):
		return BudgetStatusWarning
	default:
		return BudgetStatusOnTrack
	}
}

func validateBudget(p *BudgetParams) error {
	switch {
	case p == nil:
		return validationError("budget is required")
	case strings.TrimSpace(p.CategoryID) == "":
		return validationError("category is required")
	case p.Amount <= 0:
		return validationError("amount must be positive")
	case p.Year <= 0:
		return validationError("year is required")
	case p.Month < 1 || p.Month > 12:
		return validationError("month must be between 1 and 12")
	}
	return nil
}
