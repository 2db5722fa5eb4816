package financas

import (
	"context"
	"time"
)

// SessionManager owns the authenticated identity. Dependent stores observe
// it through Subscribe.
type SessionManager interface {
	// Login authenticates and loads every store before returning
	Login(ctx context.Context, email, password string) (*User, error)

	// Register creates a user and signs in as it
	Register(ctx context.Context, params *RegisterParams) (*User, error)

	// ResetPassword requests a password reset email
	ResetPassword(ctx context.Context, email string) error

	// Logout revokes the stored credential; every store is cleared on return
	Logout(ctx context.Context) error

	// Restore reloads a persisted credential, if any
	Restore(ctx context.Context) error

	// User returns the signed-in user or nil
	User() *User

	// State returns a snapshot of the session state
	State() SessionState

	// ClearError resets the error field
	ClearError()

	// Subscribe registers a handler for session changes
	Subscribe(fn func(ctx context.Context, evt SessionEvent)) (unsubscribe func())
}

// AccountStore owns the account collection
type AccountStore interface {
	// Load fetches all accounts for the current session
	Load(ctx context.Context) error

	// Add creates an account
	Add(ctx context.Context, params *CreateAccountParams) (*Account, error)

	// Update updates an account
	Update(ctx context.Context, accountID string, params *UpdateAccountParams) (*Account, error)

	// Remove deletes an account once the backend confirms
	Remove(ctx context.Context, accountID string) error

	List() []Account
	GetByID(accountID string) *Account
	GetByType(accountType AccountType) []Account

	// TotalBalance sums active non-credit accounts
	TotalBalance() float64

	// TotalDebt is the absolute sum of negative balances of active credit accounts
	TotalDebt() float64

	State() StoreState
	ClearError()
	Revision() uint64
}

// TransactionStore owns the ledger
type TransactionStore interface {
	Load(ctx context.Context) error
	Add(ctx context.Context, params *TransactionParams) (*Transaction, error)
	Update(ctx context.Context, transactionID string, params *TransactionParams) (*Transaction, error)
	Remove(ctx context.Context, transactionID string) error

	List() []Transaction
	GetByID(transactionID string) *Transaction

	// GetByPeriod filters by date, inclusive. A zero bound returns the whole cache.
	GetByPeriod(start, end time.Time) []Transaction
	GetByCategory(categoryID string) []Transaction
	GetByAccount(accountID string) []Transaction

	// TotalIncome sums completed income, optionally period-filtered
	TotalIncome(start, end time.Time) float64

	// TotalExpenses sums completed expenses, optionally period-filtered
	TotalExpenses(start, end time.Time) float64

	State() StoreState
	ClearError()
	Revision() uint64
}

// BudgetStore owns budgets and derives spending from the ledger
type BudgetStore interface {
	Load(ctx context.Context) error
	Add(ctx context.Context, params *BudgetParams) (*Budget, error)
	Update(ctx context.Context, budgetID string, params *BudgetParams) (*Budget, error)
	Remove(ctx context.Context, budgetID string) error

	List() []Budget
	GetByID(budgetID string) *Budget

	// CategorySpent sums completed expenses of a category in a calendar month
	CategorySpent(categoryID string, year int, month time.Month) float64

	// Status classifies a budget's consumption
	Status(budget *Budget) BudgetStatus

	// WithSpent augments every budget with derived figures
	WithSpent() []BudgetWithSpent

	TotalBudgeted(year int, month time.Month) float64
	TotalSpent(year int, month time.Month) float64

	State() StoreState
	ClearError()
	Revision() uint64
}

// GoalStore owns savings goals
type GoalStore interface {
	Load(ctx context.Context) error
	Add(ctx context.Context, params *GoalParams) (*Goal, error)
	Update(ctx context.Context, goalID string, params *GoalParams) (*Goal, error)
	Remove(ctx context.Context, goalID string) error

	// AddContribution records a deposit; the backend returns the updated goal
	AddContribution(ctx context.Context, goalID string, params *ContributionParams) (*Goal, error)

	List() []Goal
	GetByID(goalID string) *Goal
	Progress(goal *Goal) GoalProgress
	WithProgress() []GoalWithProgress

	// TotalSaved sums currentAmount of active goals
	TotalSaved() float64

	// TotalTargeted sums targetAmount of active goals
	TotalTargeted() float64

	State() StoreState
	ClearError()
	Revision() uint64
}

// ReportService composes the stores into dashboard figures
type ReportService interface {
	NetWorth() float64
	MonthSummary(year int, month time.Month) *MonthSummary
	MonthlyTrend(start, end time.Time, accountID string) []*TrendPoint
	DailyTrend(days int) []*TrendPoint
	CategoryBreakdown(start, end time.Time, limit int) []*CategoryTotal
	AccountAnalysis(start, end time.Time) []*AccountFlow
	SavingsRate(start, end time.Time) float64
	BudgetAlerts() []BudgetWithSpent
	RecentTransactions(n int) []Transaction
	Dashboard() *DashboardSummary
}
