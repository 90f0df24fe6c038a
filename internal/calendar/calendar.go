// Package calendar derives the day and week keys that period-based rules are keyed on.
package calendar

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Calendar converts instants to calendar keys in a fixed location
type Calendar struct {
	loc *time.Location
}

// New returns a Calendar for loc; a nil loc means UTC
func New(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// Location returns the calendar's time zone
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// DayKey returns the calendar date of t as YYYY-MM-DD
func (c Calendar) DayKey(t time.Time) string {
	return t.In(c.Location()).Format(dayLayout)
}

// WeekKey returns the ISO week of t, e.g. 2026-W07
func (c Calendar) WeekKey(t time.Time) string {
	year, week := t.In(c.Location()).ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// DaysBetween returns the number of calendar days from day a to day b.
// Both arguments are day keys.
func DaysBetween(a, b string) (int, error) {
	from, err := time.Parse(dayLayout, a)
	if err != nil {
		return 0, fmt.Errorf("invalid day key %q: %w", a, err)
	}
	to, err := time.Parse(dayLayout, b)
	if err != nil {
		return 0, fmt.Errorf("invalid day key %q: %w", b, err)
	}
	return int(to.Sub(from).Hours() / 24), nil
}
