// Package clock measures elapsed time between rendered frames.
package clock

import "time"

// Source returns the current time.
type Source func() time.Time

// Clock tracks the time between successive Delta calls.
type Clock struct {
	now   Source
	start time.Time
	last  time.Time
}

// New creates a clock backed by the wall clock, started now.
func New() *Clock {
	return NewWithSource(time.Now)
}

// NewWithSource creates a clock reading time from now, started immediately.
func NewWithSource(now Source) *Clock {
	c := &Clock{now: now}
	c.Start()
	return c
}

// Start resets the clock so the next Delta measures from this moment.
func (c *Clock) Start() {
	c.start = c.now()
	c.last = c.start
}

// Delta returns the seconds elapsed since the previous Delta (or Start).
func (c *Clock) Delta() float64 {
	now := c.now()
	dt := now.Sub(c.last).Seconds()
	c.last = now
	if dt < 0 {
		return 0
	}
	return dt
}

// Elapsed returns the seconds since Start without affecting Delta.
func (c *Clock) Elapsed() float64 {
	return c.now().Sub(c.start).Seconds()
}

// Manual is a settable time source for tests and fixed-step runs.
type Manual struct {
	t time.Time
}

// NewManual returns a manual source starting at t.
func NewManual(t time.Time) *Manual {
	return &Manual{t: t}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	return m.t
}

// Advance moves the manual time forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.t = m.t.Add(d)
}
