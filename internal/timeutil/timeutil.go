// Package timeutil holds the shared calendar-date and clock-time helpers
// used across the scheduling engine. All values are naive local
// wall-clock values; no timezone handling happens here.
package timeutil

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DateLayout is the canonical calendar-date form (ISO, date only).
	DateLayout = "2006-01-02"
	// ClockLayout is the canonical time-of-day form.
	ClockLayout = "15:04"
)

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	return time.Parse(DateLayout, s)
}

// FormatDate renders t as a YYYY-MM-DD calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ClockToMinutes converts an HH:MM clock string into minutes since
// midnight.
func ClockToMinutes(s string) (int, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("bad clock value %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// MinutesToClock is the inverse of ClockToMinutes.
func MinutesToClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// DaysBetween returns the whole number of days from a to b. Negative
// when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// WeekdayIndex returns t's weekday as 0=Sunday..6=Saturday.
func WeekdayIndex(t time.Time) int {
	return int(t.Weekday())
}

// ActiveOnDate reports whether an event spanning [startDate, endDate]
// (endDate empty means single-day) covers the given date. Lexicographic
// comparison is exact for zero-padded ISO dates.
func ActiveOnDate(startDate, endDate, date string) bool {
	if endDate == "" {
		endDate = startDate
	}
	return date >= startDate && date <= endDate
}
