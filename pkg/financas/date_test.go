package financas

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "date only format YYYY-MM-DD",
			input: `"2025-08-30"`,
			want:  "2025-08-30",
		},
		{
			name:  "RFC3339 format",
			input: `"2025-08-30T15:04:05Z"`,
			want:  "2025-08-30",
		},
		{
			name:  "ISO timestamp with milliseconds",
			input: `"2025-08-30T15:04:05.123Z"`,
			want:  "2025-08-30",
		},
		{
			name:  "datetime without timezone",
			input: `"2025-08-30T15:04:05"`,
			want:  "2025-08-30",
		},
		{
			name:  "SQL timestamp with space separator",
			input: `"2025-03-15 10:00:00"`,
			want:  "2025-03-15",
		},
		{
			name:  "SQL timestamp with fraction and offset",
			input: `"2025-03-15 10:00:00.123456+00"`,
			want:  "2025-03-15",
		},
		{
			name:  "null value",
			input: `null`,
			want:  "",
		},
		{
			name:  "empty string",
			input: `""`,
			want:  "",
		},
		{
			name:    "invalid format",
			input:   `"not-a-date"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			err := json.Unmarshal([]byte(tt.input), &d)

			if (err != nil) != tt.wantErr {
				t.Errorf("Date.UnmarshalJSON() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if err == nil {
				got := d.String()
				if got != tt.want {
					t.Errorf("Date.UnmarshalJSON() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestDate_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		date Date
		want string
	}{
		{
			name: "date only",
			date: NewDateOnly(time.Date(2025, 8, 30, 18, 0, 0, 0, time.UTC)),
			want: `"2025-08-30"`,
		},
		{
			name: "midnight timestamp keeps timestamp",
			date: NewDate(time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC)),
			want: `"2025-08-30T00:00:00Z"`,
		},
		{
			name: "time of day keeps timestamp",
			date: NewDate(time.Date(2025, 8, 30, 15, 4, 5, 0, time.UTC)),
			want: `"2025-08-30T15:04:05Z"`,
		},
		{
			name: "zero date",
			date: Date{},
			want: `null`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.date)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestDate_In(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)

	var dateOnly Date
	assert.NoError(t, json.Unmarshal([]byte(`"2025-03-01"`), &dateOnly))
	// pinned to the calendar day, not shifted back into February
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, saoPaulo), dateOnly.In(saoPaulo))

	var stamp Date
	assert.NoError(t, json.Unmarshal([]byte(`"2025-03-01T01:00:00Z"`), &stamp))
	assert.Equal(t, time.February, stamp.In(saoPaulo).Month())
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(2024, time.February, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC), end)

	start, end = MonthRange(2025, time.December, nil)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC), end)
}

func TestDate_SQLTimestampInCollection(t *testing.T) {
	var txs []Transaction
	err := json.Unmarshal([]byte(`[
		{"id": "t1", "type": "expense", "amount": 10, "date": "2025-03-15 10:00:00", "status": "completed"},
		{"id": "t2", "type": "expense", "amount": 20, "date": "2025-03-16", "status": "completed"}
	]`), &txs)

	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC), txs[0].Date.Time)
}

func TestDate_RoundTripKeepsInstant(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			name:  "midnight UTC timestamp",
			input: `{"id": "t1", "date": "2025-04-01T00:00:00Z"}`,
			want:  time.Date(2025, 3, 31, 21, 0, 0, 0, saoPaulo),
		},
		{
			name:  "date only",
			input: `{"id": "t2", "date": "2025-04-01"}`,
			want:  time.Date(2025, 4, 1, 0, 0, 0, 0, saoPaulo),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var original Transaction
			require.NoError(t, json.Unmarshal([]byte(tt.input), &original))
			assert.True(t, tt.want.Equal(original.Date.In(saoPaulo)))

			data, err := json.Marshal(original)
			require.NoError(t, err)

			var restored Transaction
			require.NoError(t, json.Unmarshal(data, &restored))
			assert.True(t, tt.want.Equal(restored.Date.In(saoPaulo)), "got %s", restored.Date.In(saoPaulo))
			assert.Equal(t, original.Date.In(saoPaulo).Month(), restored.Date.In(saoPaulo).Month())
		})
	}
}

func TestNewDateOnly(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)

	d := NewDateOnly(time.Date(2025, 12, 31, 22, 30, 0, 0, saoPaulo))

	assert.Equal(t, "2025-12-31", d.String())
	assert.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, saoPaulo), d.In(saoPaulo))
}
