package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time from the package clock.
func Now() time.Time {
	return clock.Now()
}

// Today returns the current calendar date as observed in loc.
func Today(loc *time.Location) time.Time {
	return DateIn(clock.Now(), loc)
}

// DateIn returns the calendar date of t as observed in loc, as a UTC midnight.
func DateIn(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	return Date(t.Year(), t.Month(), t.Day())
}

// Date builds a calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Midnight drops the time-of-day and zone of t, keeping its calendar date.
func Midnight(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}
