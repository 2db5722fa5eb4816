package financas

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	dashboardTrendDays     = 7
	dashboardCategoryLimit = 5
	dashboardGoalLimit     = 3
	dashboardRecentLimit   = 5
	reportDayLabelLayout   = "02/01"
	reportMonthLabelLayout = "2006-01"
)

// MonthSummary holds completed totals for one calendar month
type MonthSummary struct {
	Year     int        `json:"year"`
	Month    time.Month `json:"month"`
	Income   float64    `json:"income"`
	Expenses float64    `json:"expenses"`
	Balance  float64    `json:"balance"`
}

// TrendPoint is one bucket of a trend series
type TrendPoint struct {
	Label    string    `json:"label"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Income   float64   `json:"income"`
	Expenses float64   `json:"expenses"`
	Net      float64   `json:"net"`
}

// CategoryTotal is the completed spend of one category
type CategoryTotal struct {
	Category Category `json:"category"`
	Total    float64  `json:"total"`
	Share    float64  `json:"share"`
	Count    int      `json:"count"`
}

// AccountFlow summarises completed movement through one account
type AccountFlow struct {
	Account          Account `json:"account"`
	Income           float64 `json:"income"`
	Expenses         float64 `json:"expenses"`
	NetFlow          float64 `json:"netFlow"`
	TransactionCount int     `json:"transactionCount"`
}

// DashboardSummary bundles the figures of the overview screen
type DashboardSummary struct {
	GeneratedAt         time.Time          `json:"generatedAt"`
	TotalBalance        float64            `json:"totalBalance"`
	TotalDebt           float64            `json:"totalDebt"`
	NetWorth            float64            `json:"netWorth"`
	MonthlyIncome       float64            `json:"monthlyIncome"`
	MonthlyExpenses     float64            `json:"monthlyExpenses"`
	MonthlyBalance      float64            `json:"monthlyBalance"`
	SavingsRate         float64            `json:"savingsRate"`
	TotalBudgeted       float64            `json:"totalBudgeted"`
	TotalSpent          float64            `json:"totalSpent"`
	TotalSaved          float64            `json:"totalSaved"`
	TotalTargeted       float64            `json:"totalTargeted"`
	WeeklyTrend         []*TrendPoint      `json:"weeklyTrend"`
	ExpenseDistribution []*CategoryTotal   `json:"expenseDistribution"`
	BudgetAlerts        []BudgetWithSpent  `json:"budgetAlerts"`
	ActiveGoals         []GoalWithProgress `json:"activeGoals"`
	RecentTransactions  []Transaction      `json:"recentTransactions"`
}

// reportService implements the ReportService interface. It only reads the
// stores' caches.
type reportService struct {
	client *Client
}

// NetWorth is total balance minus total debt
func (r *reportService) NetWorth() float64 {
	balance := decimal.NewFromFloat(r.client.accounts.TotalBalance())
	debt := decimal.NewFromFloat(r.client.accounts.TotalDebt())
	f, _ := balance.Sub(debt).Float64()
	return f
}

// MonthSummary returns completed income and expenses for a calendar month
func (r *reportService) MonthSummary(year int, month time.Month) *MonthSummary {
	start, end := MonthRange(year, month, r.client.location)
	income, expenses := r.totals(r.completed(start, end, ""))
	return &MonthSummary{
		Year:     year,
		Month:    month,
		Income:   income.float(),
		Expenses: expenses.float(),
		Balance:  net(income, expenses),
	}
}

// MonthlyTrend returns one point per calendar month touched by [start, end],
// optionally restricted to one account.
func (r *reportService) MonthlyTrend(start, end time.Time, accountID string) []*TrendPoint {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return []*TrendPoint{}
	}
	loc := r.client.location
	txs := r.completed(start, end, accountID)

	var points []*TrendPoint
	s := start.In(loc)
	cursor := time.Date(s.Year(), s.Month(), 1, 0, 0, 0, 0, loc)
	for !cursor.After(end) {
		mStart, mEnd := MonthRange(cursor.Year(), cursor.Month(), loc)
		points = append(points, r.bucket(txs, cursor.Format(reportMonthLabelLayout), mStart, mEnd))
		cursor = cursor.AddDate(0, 1, 0)
	}
	return points
}

// DailyTrend returns the last days days, oldest first, ending today
func (r *reportService) DailyTrend(days int) []*TrendPoint {
	if days <= 0 {
		return []*TrendPoint{}
	}
	loc := r.client.location
	now := r.client.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	first := today.AddDate(0, 0, -(days - 1))
	last := today.AddDate(0, 0, 1).Add(-time.Nanosecond)
	txs := r.completed(first, last, "")

	points := make([]*TrendPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		dayStart := today.AddDate(0, 0, -i)
		dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)
		points = append(points, r.bucket(txs, dayStart.Format(reportDayLabelLayout), dayStart, dayEnd))
	}
	return points
}

// CategoryBreakdown groups completed expenses by category, largest first.
// limit <= 0 returns every category.
func (r *reportService) CategoryBreakdown(start, end time.Time, limit int) []*CategoryTotal {
	type acc struct {
		category Category
		sum      moneySum
		count    int
	}
	groups := map[string]*acc{}
	var grand moneySum

	for _, t := range r.completed(start, end, "") {
		if t.Type != TransactionTypeExpense {
			continue
		}
		g, ok := groups[t.Category.ID]
		if !ok {
			g = &acc{category: t.Category}
			groups[t.Category.ID] = g
		}
		g.sum.add(t.Amount)
		g.count++
		grand.add(t.Amount)
	}

	out := make([]*CategoryTotal, 0, len(groups))
	hundred := decimal.NewFromInt(100)
	for _, g := range groups {
		share := decimal.Zero
		if grand.total.IsPositive() {
			share = g.sum.total.Mul(hundred).Div(grand.total)
		}
		shareF, _ := share.Float64()
		out = append(out, &CategoryTotal{
			Category: g.category,
			Total:    g.sum.float(),
			Share:    round2(shareF),
			Count:    g.count,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category.ID < out[j].Category.ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// AccountAnalysis reports completed flow per account, highest net flow first
func (r *reportService) AccountAnalysis(start, end time.Time) []*AccountFlow {
	txs := r.completed(start, end, "")
	accounts := r.client.accounts.List()

	out := make([]*AccountFlow, 0, len(accounts))
	for _, a := range accounts {
		var income, expenses moneySum
		count := 0
		for _, t := range txs {
			if t.AccountID != a.ID {
				continue
			}
			count++
			if t.Type == TransactionTypeIncome {
				income.add(t.Amount)
			} else if t.Type == TransactionTypeExpense {
				expenses.add(t.Amount)
			}
		}
		out = append(out, &AccountFlow{
			Account:          a,
			Income:           income.float(),
			Expenses:         expenses.float(),
			NetFlow:          net(income, expenses),
			TransactionCount: count,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NetFlow > out[j].NetFlow
	})
	return out
}

// SavingsRate is (income - expenses) / income as a percentage; 0 without income
func (r *reportService) SavingsRate(start, end time.Time) float64 {
	income, expenses := r.totals(r.completed(start, end, ""))
	return savingsRate(income, expenses)
}

// BudgetAlerts returns budgets in warning or exceeded state
func (r *reportService) BudgetAlerts() []BudgetWithSpent {
	var alerts []BudgetWithSpent
	for _, b := range r.client.budgets.WithSpent() {
		if b.Status == BudgetStatusWarning || b.Status == BudgetStatusExceeded {
			alerts = append(alerts, b)
		}
	}
	return alerts
}

// RecentTransactions returns the newest n completed transactions
func (r *reportService) RecentTransactions(n int) []Transaction {
	txs := r.client.transactions.cache.filter(func(t Transaction) bool {
		return t.IsCompleted()
	})
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Time.After(txs[j].Date.Time)
	})
	if n >= 0 && len(txs) > n {
		txs = txs[:n]
	}
	return txs
}

// Dashboard computes the overview for the current month
func (r *reportService) Dashboard() *DashboardSummary {
	now := r.client.now().In(r.client.location)
	year, month := now.Year(), now.Month()
	start, end := MonthRange(year, month, r.client.location)

	income, expenses := r.totals(r.completed(start, end, ""))

	var activeGoals []GoalWithProgress
	for _, g := range r.client.goals.WithProgress() {
		if g.Status == GoalStatusActive && len(activeGoals) < dashboardGoalLimit {
			activeGoals = append(activeGoals, g)
		}
	}

	return &DashboardSummary{
		GeneratedAt:         now,
		TotalBalance:        r.client.accounts.TotalBalance(),
		TotalDebt:           r.client.accounts.TotalDebt(),
		NetWorth:            r.NetWorth(),
		MonthlyIncome:       income.float(),
		MonthlyExpenses:     expenses.float(),
		MonthlyBalance:      net(income, expenses),
		SavingsRate:         savingsRate(income, expenses),
		TotalBudgeted:       r.client.budgets.TotalBudgeted(year, month),
		TotalSpent:          r.client.budgets.TotalSpent(year, month),
		TotalSaved:          r.client.goals.TotalSaved(),
		TotalTargeted:       r.client.goals.TotalTargeted(),
		WeeklyTrend:         r.DailyTrend(dashboardTrendDays),
		ExpenseDistribution: r.CategoryBreakdown(start, end, dashboardCategoryLimit),
		BudgetAlerts:        r.BudgetAlerts(),
		ActiveGoals:         activeGoals,
		RecentTransactions:  r.RecentTransactions(dashboardRecentLimit),
	}
}

// completed returns completed transactions in [start, end], optionally for
// one account. Zero bounds are open.
func (r *reportService) completed(start, end time.Time, accountID string) []Transaction {
	loc := r.client.location
	return r.client.transactions.cache.filter(func(t Transaction) bool {
		if !t.IsCompleted() {
			return false
		}
		if accountID != "" && t.AccountID != accountID {
			return false
		}
		return within(t.Date.In(loc), start, end)
	})
}

func (r *reportService) bucket(txs []Transaction, label string, start, end time.Time) *TrendPoint {
	loc := r.client.location
	var income, expenses moneySum
	for _, t := range txs {
		if !within(t.Date.In(loc), start, end) {
			continue
		}
		switch t.Type {
		case TransactionTypeIncome:
			income.add(t.Amount)
		case TransactionTypeExpense:
			expenses.add(t.Amount)
		}
	}
	return &TrendPoint{
		Label:    label,
		Start:    start,
		End:      end,
		Income:   income.float(),
		Expenses: expenses.float(),
		Net:      net(income, expenses),
	}
}

func (r *reportService) totals(txs []Transaction) (income, expenses moneySum) {
	for _, t := range txs {
		switch t.Type {
		case TransactionTypeIncome:
			income.add(t.Amount)
		case TransactionTypeExpense:
			expenses.add(t.Amount)
		}
	}
	return income, expenses
}

func net(income, expenses moneySum) float64 {
	f, _ := income.total.Sub(expenses.total).Float64()
	return f
}

func savingsRate(income, expenses moneySum) float64 {
	if !income.total.IsPositive() {
		return 0
	}
	rate := income.total.Sub(expenses.total).Mul(decimal.NewFromInt(100)).Div(income.total)
	f, _ := rate.Round(2).Float64()
	return f
}
