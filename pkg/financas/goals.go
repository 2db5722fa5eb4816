package financas

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	goalsPath   = "/metas"
	goalsMirror = "financas_goals"

	day = 24 * time.Hour
)

// goalStore implements the GoalStore interface
type goalStore struct {
	storeBase[Goal]
}

func newGoalStore(client *Client) *goalStore {
	return &goalStore{storeBase[Goal]{
		client: client,
		name:   "goals",
		path:   goalsPath,
		mirror: goalsMirror,
	}}
}

// Load fetches all goals for the current session
func (s *goalStore) Load(ctx context.Context) error {
	return s.load(ctx)
}

// Add creates a goal
func (s *goalStore) Add(ctx context.Context, params *GoalParams) (*Goal, error) {
	if err := validateGoal(params); err != nil {
		return nil, err
	}
	if params.Status == "" {
		p := *params
		p.Status = GoalStatusActive
		params = &p
	}
	return s.mutate(ctx, flightKey("create", "", params), http.MethodPost, goalsPath, params, appendItem[Goal])
}

// Update updates a goal
func (s *goalStore) Update(ctx context.Context, goalID string, params *GoalParams) (*Goal, error) {
	if goalID == "" {
		return nil, validationError("goal id is required")
	}
	if err := validateGoal(params); err != nil {
		return nil, err
	}
	return s.mutate(ctx, flightKey("update", goalID, params), http.MethodPut, goalsPath+"/"+goalID, params, upsert[Goal])
}

// Remove deletes a goal once the backend confirms
func (s *goalStore) Remove(ctx context.Context, goalID string) error {
	return s.remove(ctx, goalID)
}

// AddContribution posts a deposit. The goal returned by the backend replaces
// the cached one as is.
func (s *goalStore) AddContribution(ctx context.Context, goalID string, params *ContributionParams) (*Goal, error) {
	if goalID == "" {
		return nil, validationError("goal id is required")
	}
	if params == nil || params.Amount <= 0 {
		return nil, validationError("contribution amount must be positive")
	}
	contribution := *params
	if contribution.Date.IsZero() {
		contribution.Date = s.client.now()
	}
	path := goalsPath + "/" + goalID + "/adicionar-valor"
	return s.mutate(ctx, flightKey("contribute", goalID, &contribution), http.MethodPost, path, &contribution, upsert[Goal])
}

// GetByID returns a copy of the goal or nil
func (s *goalStore) GetByID(goalID string) *Goal {
	return s.cache.find(goalID)
}

// Progress derives completion figures from the goal and the client clock
func (s *goalStore) Progress(goal *Goal) GoalProgress {
	if goal == nil {
		return GoalProgress{}
	}
	return goalProgress(goal, s.client.now())
}

// WithProgress pairs every goal with its progress
func (s *goalStore) WithProgress() []GoalWithProgress {
	now := s.client.now()
	goals := s.List()
	out := make([]GoalWithProgress, 0, len(goals))
	for i := range goals {
		out = append(out, GoalWithProgress{
			Goal:     goals[i],
			Progress: goalProgress(&goals[i], now),
		})
	}
	return out
}

// TotalSaved sums currentAmount over active goals
func (s *goalStore) TotalSaved() float64 {
	var sum moneySum
	for _, g := range s.active() {
		sum.add(g.CurrentAmount)
	}
	return sum.float()
}

// TotalTargeted sums targetAmount over active goals
func (s *goalStore) TotalTargeted() float64 {
	var sum moneySum
	for _, g := range s.active() {
		sum.add(g.TargetAmount)
	}
	return sum.float()
}

func (s *goalStore) active() []Goal {
	return s.cache.filter(func(g Goal) bool {
		return g.Status == GoalStatusActive
	})
}

func goalProgress(goal *Goal, now time.Time) GoalProgress {
	target := goal.TargetAmount.Decimal()
	current := goal.CurrentAmount.Decimal()
	hundred := decimal.NewFromInt(100)

	var p GoalProgress

	pct := hundred
	if target.IsPositive() {
		pct = current.Mul(hundred).Div(target)
		if pct.GreaterThan(hundred) {
			pct = hundred
		}
	}
	p.Percentage, _ = pct.Float64()

	remaining := target.Sub(current)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	p.Remaining, _ = remaining.Float64()

	if goal.TargetDate != nil && !goal.TargetDate.IsZero() {
		days := int(math.Ceil(goal.TargetDate.In(now.Location()).Sub(now).Hours() / day.Hours()))
		p.DaysLeft = &days
	}

	p.IsCompleted = current.GreaterThanOrEqual(target)
	p.IsOverdue = p.DaysLeft != nil && *p.DaysLeft < 0 && goal.Status == GoalStatusActive

	return p
}

func validateGoal(p *GoalParams) error {
	switch {
	case p == nil:
		return validationError("goal is required")
	case strings.TrimSpace(p.Name) == "":
		return validationError("goal name is required")
	case p.TargetAmount <= 0:
		return validationError("target amount must be positive")
	case p.CurrentAmount < 0:
		return validationError("current amount cannot be negative")
	}
	return nil
}
