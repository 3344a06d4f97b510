// Package timeutil reads wall-clock time as minutes since local midnight in
// the campus timezone.
package timeutil

import (
	"fmt"
	"time"
)

// MinutesPerDay is the number of distinct minute-of-day values (0–1439).
const MinutesPerDay = 24 * 60

// Clock reports wall-clock time in a single fixed timezone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock loads the named IANA zone. An empty name means UTC.
func NewClock(zone string) (*Clock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", zone, err)
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// NewFixedClock always reports t. Used by tests and replays.
func NewFixedClock(t time.Time) *Clock {
	return &Clock{loc: t.Location(), now: func() time.Time { return t }}
}

// Location returns the clock's timezone.
func (c *Clock) Location() *time.Location { return c.loc }

// Now returns the current time in the clock's timezone.
func (c *Clock) Now() time.Time { return c.now().In(c.loc) }

// MinutesNow returns minutes since local midnight. Callers that evaluate
// several entities should read it once and pass the value along.
func (c *Clock) MinutesNow() int { return MinutesOf(c.Now()) }

// MinutesOf returns minutes since midnight of t in t's own location.
func MinutesOf(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// FormatMinutes renders a minute-of-day as "HH:MM".
func FormatMinutes(m int) string {
	m = ((m % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
