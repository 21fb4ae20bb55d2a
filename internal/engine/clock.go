package engine

import "time"

// Clock tracks tick sequencing and elapsed time for the evaluator.
//
// The engine is externally driven: whoever owns the control loop calls
// Tick with the current time, and the clock derives the elapsed
// milliseconds once per tick, shared by every time-based node. The
// first tick after a reset reports zero elapsed time.
//
// Thread-safety: the clock is owned by the single tick caller and is
// not protected; nothing else reads it mid-tick.
type Clock struct {
	seq     uint64
	last    time.Time
	started bool
}

// Advance records a tick at now and returns the milliseconds elapsed
// since the previous tick (0 on the first tick). A backwards time jump
// clamps to 0 rather than producing a negative interval.
func (c *Clock) Advance(now time.Time) int64 {
	c.seq++
	if !c.started {
		c.started = true
		c.last = now
		return 0
	}
	dt := now.Sub(c.last).Milliseconds()
	c.last = now
	if dt < 0 {
		return 0
	}
	return dt
}

// Seq returns the number of ticks recorded since the last reset.
func (c *Clock) Seq() uint64 { return c.seq }

// Reset rewinds the clock to its initial state. The next Advance
// reports zero elapsed time.
func (c *Clock) Reset() { *c = Clock{} }
