package financas

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func dateOn(year int, month time.Month, day int) *Date {
	d := NewDateOnly(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
	return &d
}

func TestGoalProgress(t *testing.T) {
	tests := []struct {
		name string
		goal Goal
		want GoalProgress
	}{
		{
			name: "exactly reached",
			goal: Goal{TargetAmount: 1000, CurrentAmount: 1000, Status: GoalStatusActive},
			want: GoalProgress{Percentage: 100, Remaining: 0, IsCompleted: true},
		},
		{
			name: "overshoot is clamped",
			goal: Goal{TargetAmount: 1000, CurrentAmount: 1800, Status: GoalStatusActive},
			want: GoalProgress{Percentage: 100, Remaining: 0, IsCompleted: true},
		},
		{
			name: "partial",
			goal: Goal{TargetAmount: 1000, CurrentAmount: 250, Status: GoalStatusActive},
			want: GoalProgress{Percentage: 25, Remaining: 750},
		},
		{
			name: "zero target",
			goal: Goal{TargetAmount: 0, CurrentAmount: 0, Status: GoalStatusActive},
			want: GoalProgress{Percentage: 100, Remaining: 0, IsCompleted: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, goalProgress(&tt.goal, testNow))
		})
	}
}

func TestGoalProgress_Deadlines(t *testing.T) {
	t.Run("past deadline while active is overdue", func(t *testing.T) {
		goal := Goal{TargetAmount: 1000, CurrentAmount: 400, Status: GoalStatusActive, TargetDate: dateOn(2025, time.March, 1)}
		p := goalProgress(&goal, testNow)

		require.NotNil(t, p.DaysLeft)
		assert.Equal(t, -14, *p.DaysLeft)
		assert.True(t, p.IsOverdue)
		assert.False(t, p.IsCompleted)
	})

	t.Run("inactive goals are never overdue", func(t *testing.T) {
		for _, status := range []GoalStatus{GoalStatusPaused, GoalStatusCancelled, GoalStatusCompleted} {
			goal := Goal{TargetAmount: 1000, CurrentAmount: 400, Status: status, TargetDate: dateOn(2025, time.March, 1)}
			assert.False(t, goalProgress(&goal, testNow).IsOverdue, status)
		}
	})

	t.Run("future deadline rounds up", func(t *testing.T) {
		goal := Goal{TargetAmount: 1000, CurrentAmount: 400, Status: GoalStatusActive, TargetDate: dateOn(2025, time.March, 20)}
		p := goalProgress(&goal, testNow)

		require.NotNil(t, p.DaysLeft)
		assert.Equal(t, 5, *p.DaysLeft)
		assert.False(t, p.IsOverdue)
	})

	t.Run("no deadline", func(t *testing.T) {
		goal := Goal{TargetAmount: 1000, Status: GoalStatusActive}
		p := goalProgress(&goal, testNow)
		assert.Nil(t, p.DaysLeft)
		assert.False(t, p.IsOverdue)
	})
}

const goalsFixture = `[
	{"id": "g1", "name": "Reserva", "type": "emergency", "targetAmount": 10000, "currentAmount": "2500.50", "targetDate": "2025-12-31", "status": "active"},
	{"id": "g2", "name": "Viagem", "type": "purchase", "targetAmount": 5000, "currentAmount": 5000, "status": "completed"},
	{"id": "g3", "name": "Notebook", "type": "purchase", "targetAmount": 4000, "currentAmount": 1000, "targetDate": "2025-01-31", "status": "active"}
]`

func TestGoalStore_LoadAndTotals(t *testing.T) {
	client, mockTransport := newTestClient(t)
	stubLoads(mockTransport, map[string]string{goalsPath: goalsFixture})
	signIn(t, client)

	goals := client.Goals.List()
	require.Len(t, goals, 3)
	assert.Equal(t, Amount(2500.50), goals[0].CurrentAmount)
	require.NotNil(t, goals[0].TargetDate)
	assert.Equal(t, "2025-12-31", goals[0].TargetDate.String())

	assert.Equal(t, 3500.5, client.Goals.TotalSaved())
	assert.Equal(t, 14000.0, client.Goals.TotalTargeted())

	withProgress := client.Goals.WithProgress()
	require.Len(t, withProgress, 3)
	assert.True(t, withProgress[1].Progress.IsCompleted)
	assert.True(t, withProgress[2].Progress.IsOverdue)
	assert.Equal(t, 25.0, withProgress[2].Progress.Percentage)

	p := client.Goals.Progress(client.Goals.GetByID("g1"))
	assert.InDelta(t, 25.005, p.Percentage, 0.0001)
	assert.Equal(t, GoalProgress{}, client.Goals.Progress(nil))
}

func TestGoalStore_AddDefaultsToActive(t *testing.T) {
	client, mockTransport := newTestClient(t)
	stubLoads(mockTransport, map[string]string{goalsPath: goalsFixture})
	signIn(t, client)

	mockTransport.On("Do", mock.Anything, http.MethodPost, goalsPath, mock.MatchedBy(func(body interface{}) bool {
		p, ok := body.(*GoalParams)
		return ok && p.Status == GoalStatusActive && p.Name == "Carro"
	}), mock.Anything).Return(`{"id": "g4", "name": "Carro", "targetAmount": 30000, "currentAmount": 0, "status": "active"}`, nil)

	params := &GoalParams{Name: "Carro", TargetAmount: 30000}
	goal, err := client.Goals.Add(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, "g4", goal.ID)
	assert.Empty(t, params.Status, "caller's params are left untouched")
	assert.Equal(t, "g4", client.Goals.List()[3].ID)
	assert.Equal(t, 44000.0, client.Goals.TotalTargeted())
}

func TestGoalStore_AddContribution(t *testing.T) {
	client, mockTransport := newTestClient(t)
	stubLoads(mockTransport, map[string]string{goalsPath: goalsFixture})
	signIn(t, client)

	mockTransport.On("Do", mock.Anything, http.MethodPost, goalsPath+"/g3/adicionar-valor", mock.MatchedBy(func(body interface{}) bool {
		p, ok := body.(*ContributionParams)
		return ok && p.Amount == 500 && p.Date.Equal(testNow)
	}), mock.Anything).Return(`{
		"id": "g3", "name": "Notebook", "targetAmount": 4000, "currentAmount": 1500, "targetDate": "2025-01-31", "status": "active",
		"contributions": [{"id": "c1", "amount": 500, "date": "2025-03-15T12:00:00Z"}]
	}`, nil)

	goal, err := client.Goals.AddContribution(context.Background(), "g3", &ContributionParams{Amount: 500})

	require.NoError(t, err)
	assert.Equal(t, Amount(1500), goal.CurrentAmount)

	cached := client.Goals.GetByID("g3")
	require.NotNil(t, cached)
	assert.Equal(t, Amount(1500), cached.CurrentAmount)
	require.Len(t, cached.Contributions, 1)
	assert.Equal(t, Amount(500), cached.Contributions[0].Amount)
	assert.Len(t, client.Goals.List(), 3)
}

func TestGoalStore_ContributionKeyUsesClientClock(t *testing.T) {
	params := &ContributionParams{Amount: 500}

	client, mockTransport := newTestClient(t)
	stubLoads(mockTransport, map[string]string{goalsPath: goalsFixture})
	signIn(t, client)

	var sent []*ContributionParams
	mockTransport.On("Do", mock.Anything, http.MethodPost, goalsPath+"/g3/adicionar-valor", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sent = append(sent, args.Get(3).(*ContributionParams))
		}).
		Return(`{"id": "g3", "name": "Notebook", "targetAmount": 4000, "currentAmount": 1500, "status": "active"}`, nil)

	_, err := client.Goals.AddContribution(context.Background(), "g3", params)
	require.NoError(t, err)

	require.Len(t, sent, 1)
	assert.True(t, sent[0].Date.Equal(testNow))
	// the caller's params are left alone
	assert.True(t, params.Date.IsZero())
}

func TestGoalStore_Validation(t *testing.T) {
	client, mockTransport := newTestClient(t)
	stubLoads(mockTransport, nil)
	signIn(t, client)

	_, err := client.Goals.Add(context.Background(), &GoalParams{TargetAmount: 10})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = client.Goals.Add(context.Background(), &GoalParams{Name: "x"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = client.Goals.Add(context.Background(), &GoalParams{Name: "x", TargetAmount: 10, CurrentAmount: -1})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = client.Goals.AddContribution(context.Background(), "g1", &ContributionParams{Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = client.Goals.AddContribution(context.Background(), "", &ContributionParams{Amount: 10})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = client.Goals.Update(context.Background(), "", &GoalParams{Name: "x", TargetAmount: 10})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestGoalStore_UpdateAndRemove(t *testing.T) {
	client, mockTransport := newTestClient(t)
	stubLoads(mockTransport, map[string]string{goalsPath: goalsFixture})
	signIn(t, client)

	mockTransport.onDo(http.MethodPut, goalsPath+"/g1",
		`{"id": "g1", "name": "Reserva", "targetAmount": 12000, "currentAmount": 2500.50, "status": "paused"}`)
	mockTransport.onDo(http.MethodDelete, goalsPath+"/g2", `null`)

	updated, err := client.Goals.Update(context.Background(), "g1", &GoalParams{Name: "Reserva", TargetAmount: 12000, Status: GoalStatusPaused})
	require.NoError(t, err)
	assert.Equal(t, GoalStatusPaused, updated.Status)

	// only g3 is still active
	assert.Equal(t, 1000.0, client.Goals.TotalSaved())

	require.NoError(t, client.Goals.Remove(context.Background(), "g2"))
	assert.Nil(t, client.Goals.GetByID("g2"))
}
