package domain

import (
	"cmp"
	"fmt"
	"time"
)

// NaiveDate is a calendar day with no time of day and no zone. It is only ever
// used as a map key.
type NaiveDate struct {
	Year  int
	Month time.Month
	Day   int
}

// NaiveDateOf returns the calendar day of t in loc. A nil loc means UTC.
func NaiveDateOf(t time.Time, loc *time.Location) NaiveDate {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return NaiveDate{Year: y, Month: m, Day: d}
}

func (d NaiveDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Compare returns -1, 0 or +1 as d is before, equal to or after other.
func (d NaiveDate) Compare(other NaiveDate) int {
	return cmp.Or(
		cmp.Compare(d.Year, other.Year),
		cmp.Compare(d.Month, other.Month),
		cmp.Compare(d.Day, other.Day),
	)
}

// MarshalText lets NaiveDate key a JSON object.
func (d NaiveDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses the YYYY-MM-DD form written by MarshalText.
func (d *NaiveDate) UnmarshalText(b []byte) error {
	t, err := time.Parse(time.DateOnly, string(b))
	if err != nil {
		return fmt.Errorf("parse naive date %q: %w", b, err)
	}
	*d = NaiveDateOf(t, time.UTC)
	return nil
}

// At returns the instant of the given wall-clock time on d in loc.
func (d NaiveDate) At(hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}
