// Package clock abstracts time so services that bucket work by calendar
// date can be tested deterministically.
package clock

import "time"

// Clock provides the current time. Analytics rollups bucket records by
// Today(), so the same Clock must be shared by everything that writes
// date-keyed rows.
type Clock interface {
	Now() time.Time
	// Today returns the current date truncated to midnight in the
	// clock's location.
	Today() time.Time
}

type realClock struct {
	loc *time.Location
}

// New returns a Clock that reads the system time in the given IANA
// timezone. An empty or invalid timezone falls back to UTC.
func New(timezone string) Clock {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc = time.UTC
	}
	return &realClock{loc: loc}
}

func (c *realClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *realClock) Today() time.Time {
	now := c.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
}

// Fixed returns a Clock pinned to a specific instant. Used in tests.
func Fixed(t time.Time) Clock {
	return &fixedClock{t: t}
}

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.t
}

func (c *fixedClock) Today() time.Time {
	return time.Date(c.t.Year(), c.t.Month(), c.t.Day(), 0, 0, 0, 0, c.t.Location())
}
