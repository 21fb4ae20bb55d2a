package testutil

import "time"

// StepClock produces a fixed-step sequence of tick timestamps for
// deterministic simulation.
//
// Unlike time.Now, StepClock can be reset for test reuse; the same
// scenario run twice sees identical timestamps and therefore
// identical dt values on every tick.
type StepClock struct {
	start time.Time
	step  time.Duration
	ticks int
}

// NewStepClock creates a clock starting at a fixed epoch with the
// given tick interval. The first call to Next() returns the epoch
// itself (dt 0 on the engine's first tick).
func NewStepClock(step time.Duration) *StepClock {
	return &StepClock{
		start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		step:  step,
	}
}

// Next returns the next tick timestamp.
func (c *StepClock) Next() time.Time {
	t := c.start.Add(time.Duration(c.ticks) * c.step)
	c.ticks++
	return t
}

// Now returns the timestamp of the most recent tick without
// advancing.
func (c *StepClock) Now() time.Time {
	if c.ticks == 0 {
		return c.start
	}
	return c.start.Add(time.Duration(c.ticks-1) * c.step)
}

// Ticks reports how many timestamps have been handed out.
func (c *StepClock) Ticks() int { return c.ticks }

// Reset rewinds the clock for test reuse.
func (c *StepClock) Reset() { c.ticks = 0 }
