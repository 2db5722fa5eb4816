package financas

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a money value. The backend serialises decimals either as JSON
// numbers or as strings; both decode, and anything unparsable becomes 0.
type Amount float64

// UnmarshalJSON implements json.Unmarshaler for Amount
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*a = 0
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = 0
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	*a = parseAmount(raw)
	return nil
}

// Float64 returns the amount as a float64
func (a Amount) Float64() float64 {
	return float64(a)
}

// Decimal returns the amount as an exact decimal
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromFloat(float64(a))
}

func parseAmount(raw string) Amount {
	if raw == "" {
		return 0
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return Amount(f)
}

// moneySum accumulates amounts without binary floating point drift
type moneySum struct {
	total decimal.Decimal
}

func (s *moneySum) add(a Amount) {
	s.total = s.total.Add(a.Decimal())
}

func (s moneySum) float() float64 {
	f, _ := s.total.Float64()
	return f
}

// round2 rounds to cents
func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
