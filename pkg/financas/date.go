package financas

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a custom type that handles date-only and timestamp JSON values
type Date struct {
	time.Time

	// dateOnly marks values decoded without a time of day
	dateOnly bool
}

// NewDate wraps t
func NewDate(t time.Time) Date {
	return Date{Time: t}
}

// NewDateOnly keeps only the calendar day of t. The value is sent as
// YYYY-MM-DD and read as that day in any location.
func NewDateOnly(t time.Time) Date {
	y, m, day := t.Date()
	return Date{Time: time.Date(y, m, day, 0, 0, 0, 0, time.UTC), dateOnly: true}
}

// timestampLayouts are tried in order after the date-only layout
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON implements json.Unmarshaler for Date
func (d *Date) UnmarshalJSON(data []byte) error {
	// Remove quotes
	str := strings.TrimSpace(strings.Trim(string(data), `"`))

	// Handle null/empty
	if str == "" || str == "null" {
		*d = Date{}
		return nil
	}

	// Try parsing as date only first (YYYY-MM-DD)
	if t, err := time.Parse(dateLayout, str); err == nil {
		*d = Date{Time: t, dateOnly: true}
		return nil
	}

	// Timestamps with T or space separator, with or without zone
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			*d = Date{Time: t}
			return nil
		}
	}

	return fmt.Errorf("unable to parse date: %s", str)
}

// MarshalJSON implements json.Marshaler for Date. Date-only values are sent
// as YYYY-MM-DD, anything else as an RFC3339 timestamp.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte("null"), nil
	}
	if d.dateOnly {
		return []byte(fmt.Sprintf(`"%s"`, d.Time.Format(dateLayout))), nil
	}
	return []byte(fmt.Sprintf(`"%s"`, d.Time.Format(time.RFC3339Nano))), nil
}

// In returns the instant in loc. Date-only values are pinned to midnight of
// the same calendar day in loc rather than converted from UTC.
func (d Date) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if d.dateOnly {
		y, m, day := d.Time.Date()
		return time.Date(y, m, day, 0, 0, 0, 0, loc)
	}
	return d.Time.In(loc)
}

// String returns the date as a string
func (d Date) String() string {
	if d.Time.IsZero() {
		return ""
	}
	return d.Time.Format(dateLayout)
}

// MonthRange returns the first instant and the last second of a calendar
// month in loc: [first 00:00:00, last 23:59:59].
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

// within reports whether t lies in [start, end]. A zero bound is open.
func within(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}
