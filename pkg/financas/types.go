package financas

import (
	"encoding/json"
	"time"

	internalTypes "github.com/ryan4rodrigues/financas-pessoais/internal/types"
)

// User is the authenticated user's profile
type User = internalTypes.User

// Session represents an authenticated session
type Session = internalTypes.Session

// AccountType classifies an account
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCredit     AccountType = "credit"
	AccountTypeCash       AccountType = "cash"
	AccountTypeInvestment AccountType = "investment"
)

// Account represents a financial account
type Account struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Type          AccountType `json:"type"`
	Balance       Amount      `json:"balance"`
	CreditLimit   Amount      `json:"creditLimit"`
	Bank          string      `json:"bank,omitempty"`
	AccountNumber string      `json:"accountNumber,omitempty"`
	Color         string      `json:"color,omitempty"`
	IsActive      bool        `json:"isActive"`
	CreatedAt     Date        `json:"createdAt"`
	UpdatedAt     Date        `json:"updatedAt"`
}

// UnmarshalJSON defaults isActive to true when the backend omits it
func (a *Account) UnmarshalJSON(data []byte) error {
	type alias Account
	aux := struct {
		*alias
		IsActive *bool `json:"isActive"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.IsActive = aux.IsActive == nil || *aux.IsActive
	return nil
}

func (a Account) key() string { return a.ID }

// AvailableCredit is the unused part of a credit account's limit
func (a Account) AvailableCredit() float64 {
	if a.Type != AccountTypeCredit {
		return 0
	}
	var s moneySum
	s.add(a.CreditLimit)
	s.add(a.Balance)
	return s.float()
}

// CreateAccountParams for creating an account
type CreateAccountParams struct {
	Name          string      `json:"name"`
	Type          AccountType `json:"type"`
	Balance       float64     `json:"balance"`
	CreditLimit   float64     `json:"creditLimit,omitempty"`
	Bank          string      `json:"bank,omitempty"`
	AccountNumber string      `json:"accountNumber,omitempty"`
	Color         string      `json:"color,omitempty"`
	IsActive      *bool       `json:"isActive,omitempty"`
}

// UpdateAccountParams for updating an account; nil fields are left alone
type UpdateAccountParams struct {
	Name          *string      `json:"name,omitempty"`
	Type          *AccountType `json:"type,omitempty"`
	Balance       *float64     `json:"balance,omitempty"`
	CreditLimit   *float64     `json:"creditLimit,omitempty"`
	Bank          *string      `json:"bank,omitempty"`
	AccountNumber *string      `json:"accountNumber,omitempty"`
	Color         *string      `json:"color,omitempty"`
	IsActive      *bool        `json:"isActive,omitempty"`
}

// TransactionType is income or expense
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// TransactionStatus tracks settlement
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// Transaction represents a ledger entry. Amount is positive; the sign is
// implied by Type.
type Transaction struct {
	ID          string            `json:"id"`
	Type        TransactionType   `json:"type"`
	Category    Category          `json:"category"`
	Amount      Amount            `json:"amount"`
	AccountID   string            `json:"accountId"`
	Date        Date              `json:"date"`
	Status      TransactionStatus `json:"status"`
	Tags        []string          `json:"tags,omitempty"`
	Description string            `json:"description"`
	IsRecurring bool              `json:"isRecurring"`
	CreatedAt   Date              `json:"createdAt"`
	UpdatedAt   Date              `json:"updatedAt"`
}

// UnmarshalJSON falls back to contaId when accountId is absent
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type alias Transaction
	aux := struct {
		*alias
		ContaID string `json:"contaId"`
	}{alias: (*alias)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if t.AccountID == "" {
		t.AccountID = aux.ContaID
	}
	return nil
}

func (t Transaction) key() string { return t.ID }

// IsCompleted reports whether the transaction counts towards totals
func (t Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted
}

// TransactionParams is the create/update payload. The account reference
// travels as contaId on the wire.
type TransactionParams struct {
	AccountID   string            `json:"contaId"`
	Type        TransactionType   `json:"type"`
	CategoryID  string            `json:"category"`
	Amount      float64           `json:"amount"`
	Description string            `json:"description"`
	Date        time.Time         `json:"date"`
	Status      TransactionStatus `json:"status"`
	IsRecurring bool              `json:"isRecurring"`
	Tags        []string          `json:"tags"`
}

// MarshalJSON sends the date as an RFC3339 timestamp and defaults status
func (p TransactionParams) MarshalJSON() ([]byte, error) {
	type alias TransactionParams
	aux := struct {
		alias
		Date string   `json:"date"`
		Tags []string `json:"tags"`
	}{alias: alias(p)}
	if !p.Date.IsZero() {
		aux.Date = p.Date.UTC().Format(time.RFC3339)
	}
	if aux.Status == "" {
		aux.Status = TransactionStatusCompleted
	}
	aux.Tags = p.Tags
	if aux.Tags == nil {
		aux.Tags = []string{}
	}
	return json.Marshal(aux)
}

// BudgetStatus classifies budget consumption
type BudgetStatus string

const (
	BudgetStatusOnTrack  BudgetStatus = "on_track"
	BudgetStatusWarning  BudgetStatus = "warning"
	BudgetStatusExceeded BudgetStatus = "exceeded"
)

// Budget is a spending cap for one category in one calendar month
type Budget struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CategoryID string `json:"categoryId"`
	Amount     Amount `json:"amount"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	IsActive   bool   `json:"isActive"`
	CreatedAt  Date   `json:"createdAt"`
	UpdatedAt  Date   `json:"updatedAt"`
}

// UnmarshalJSON defaults isActive to true when the backend omits it
func (b *Budget) UnmarshalJSON(data []byte) error {
	type alias Budget
	aux := struct {
		*alias
		IsActive *bool `json:"isActive"`
	}{alias: (*alias)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	b.IsActive = aux.IsActive == nil || *aux.IsActive
	return nil
}

func (b Budget) key() string { return b.ID }

// BudgetWithSpent augments a budget with derived spending figures
type BudgetWithSpent struct {
	Budget
	Spent      float64      `json:"spent"`
	Remaining  float64      `json:"remaining"`
	Percentage float64      `json:"percentage"`
	Status     BudgetStatus `json:"status"`
}

// BudgetParams is the create/update payload for budgets
type BudgetParams struct {
	Name       string  `json:"name"`
	CategoryID string  `json:"categoryId"`
	Amount     float64 `json:"amount"`
	Year       int     `json:"year"`
	Month      int     `json:"month"`
	IsActive   *bool   `json:"isActive,omitempty"`
}

// GoalType classifies a goal
type GoalType string

const (
	GoalTypeSavings     GoalType = "savings"
	GoalTypeDebtPayment GoalType = "debt_payment"
	GoalTypePurchase    GoalType = "purchase"
	GoalTypeInvestment  GoalType = "investment"
	GoalTypeEmergency   GoalType = "emergency"
)

// GoalStatus tracks a goal's lifecycle
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusPaused    GoalStatus = "paused"
	GoalStatusCancelled GoalStatus = "cancelled"
)

// Contribution is one deposit towards a goal
type Contribution struct {
	ID     string `json:"id,omitempty"`
	Amount Amount `json:"amount"`
	Date   Date   `json:"date"`
	Note   string `json:"note,omitempty"`
}

// Goal is a savings target
type Goal struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Icon          string         `json:"icon,omitempty"`
	Type          GoalType       `json:"type,omitempty"`
	Description   string         `json:"description,omitempty"`
	TargetAmount  Amount         `json:"targetAmount"`
	CurrentAmount Amount         `json:"currentAmount"`
	TargetDate    *Date          `json:"targetDate,omitempty"`
	Status        GoalStatus     `json:"status"`
	Contributions []Contribution `json:"contributions"`
	CreatedAt     Date           `json:"createdAt"`
	UpdatedAt     Date           `json:"updatedAt"`
}

func (g Goal) key() string { return g.ID }

// GoalProgress is derived from a goal and the current time
type GoalProgress struct {
	Percentage  float64 `json:"percentage"`
	Remaining   float64 `json:"remaining"`
	DaysLeft    *int    `json:"daysLeft"`
	IsCompleted bool    `json:"isCompleted"`
	IsOverdue   bool    `json:"isOverdue"`
}

// GoalWithProgress pairs a goal with its progress
type GoalWithProgress struct {
	Goal
	Progress GoalProgress `json:"progress"`
}

// GoalParams is the create/update payload for goals
type GoalParams struct {
	Name          string     `json:"name"`
	Icon          string     `json:"icon,omitempty"`
	Type          GoalType   `json:"type,omitempty"`
	Description   string     `json:"description,omitempty"`
	TargetAmount  float64    `json:"targetAmount"`
	CurrentAmount float64    `json:"currentAmount"`
	TargetDate    *Date      `json:"targetDate,omitempty"`
	Status        GoalStatus `json:"status,omitempty"`
}

// ContributionParams is the payload of POST /metas/:id/adicionar-valor
type ContributionParams struct {
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
	Note   string    `json:"note,omitempty"`
}

// MarshalJSON sends the date as an RFC3339 timestamp, defaulting to now
func (p ContributionParams) MarshalJSON() ([]byte, error) {
	date := p.Date
	if date.IsZero() {
		date = time.Now()
	}
	return json.Marshal(struct {
		Amount float64 `json:"amount"`
		Date   string  `json:"date"`
		Note   string  `json:"note,omitempty"`
	}{p.Amount, date.UTC().Format(time.RFC3339), p.Note})
}

// RegisterParams is the profile sent on registration
type RegisterParams struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
	Phone           string `json:"phone,omitempty"`
}

// StoreState is the observable state every store exposes
type StoreState struct {
	IsLoading bool   `json:"isLoading"`
	Error     string `json:"error,omitempty"`
	Revision  uint64 `json:"revision"`
	Count     int    `json:"count"`
}

// SessionState is the observable state of the session manager
type SessionState struct {
	User            *User  `json:"user"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	IsLoading       bool   `json:"isLoading"`
	Error           string `json:"error,omitempty"`
}

// SessionEvent is delivered to session subscribers. User is nil when the
// session ended.
type SessionEvent struct {
	User   *User
	Reason SessionChangeReason
}

// SessionChangeReason says why the session changed
type SessionChangeReason string

const (
	SessionLogin       SessionChangeReason = "login"
	SessionRegister    SessionChangeReason = "register"
	SessionRestore     SessionChangeReason = "restore"
	SessionLogout      SessionChangeReason = "logout"
	SessionInvalidated SessionChangeReason = "invalidated"
)
