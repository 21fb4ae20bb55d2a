package engine

// evalHysteresis is a bistable threshold: sets at/above On, clears
// at/below Off, holds in between. Output depends only on the input
// history, never on elapsed time.
func (e *Engine) evalHysteresis(cfg HysteresisConfig, st *hystState) int32 {
	v := e.ChannelValue(cfg.Input)
	if v >= cfg.On {
		st.on = true
	} else if v <= cfg.Off {
		st.on = false
	}
	return boolOut(st.on)
}

// evalRateLimit bounds the per-tick output change to MaxRate*dt. The
// first evaluation seeds the output from the input, unlimited.
func (e *Engine) evalRateLimit(cfg RateLimitConfig, st *rateState, dt int64) int32 {
	in := e.ChannelValue(cfg.Input)
	if !st.seeded {
		st.seeded = true
		st.out = in
		return in
	}

	maxDelta := int64(cfg.MaxRate) * dt / 1000
	delta := int64(in) - int64(st.out)
	if delta > maxDelta {
		delta = maxDelta
	} else if delta < -maxDelta {
		delta = -maxDelta
	}
	st.out = sat32(int64(st.out) + delta)
	return st.out
}

// evalDebounce commits a new boolean input only after it holds
// continuously for the configured duration. Any reversal while pending
// resets the elapsed hold to zero.
func (e *Engine) evalDebounce(cfg DebounceConfig, st *debounceState, dt int64) int32 {
	cur := e.ChannelValue(cfg.Input) != 0

	if cur == st.committed {
		st.pending = false
		st.heldMS = 0
		return boolOut(st.committed)
	}

	if !st.pending || st.pendingVal != cur {
		st.pending = true
		st.pendingVal = cur
		st.heldMS = 0
	} else {
		st.heldMS += dt
	}

	if st.heldMS >= int64(cfg.DurationMS) {
		st.committed = cur
		st.pending = false
		st.heldMS = 0
	}
	return boolOut(st.committed)
}

// evalTable1D interpolates linearly between monotonic breakpoints.
// Out-of-range inputs clamp to the nearest edge value; an exact
// breakpoint match returns the stored value with zero error.
func (e *Engine) evalTable1D(cfg Table1DConfig) int32 {
	x := e.ChannelValue(cfg.Input)
	pts := cfg.Points

	if x <= pts[0].X {
		return pts[0].Y
	}
	last := len(pts) - 1
	if x >= pts[last].X {
		return pts[last].Y
	}

	// Find the bracketing segment. Tables are at most MaxTablePoints
	// long; a linear walk beats a binary search at this size.
	for i := 1; i <= last; i++ {
		if x <= pts[i].X {
			x0, y0 := int64(pts[i-1].X), int64(pts[i-1].Y)
			x1, y1 := int64(pts[i].X), int64(pts[i].Y)
			return sat32(y0 + (y1-y0)*(int64(x)-x0)/(x1-x0))
		}
	}
	return pts[last].Y
}

// evalMovingAvg maintains a running sum over a fixed circular buffer:
// the evicted sample is subtracted and the new one added, so the
// window is never re-summed. Output is sum divided by the window size,
// with unseen samples counting as zero.
func (e *Engine) evalMovingAvg(cfg MovingAvgConfig, st *avgState) int32 {
	in := e.ChannelValue(cfg.Input)
	st.sum -= int64(st.buf[st.idx])
	st.buf[st.idx] = in
	st.sum += int64(in)
	st.idx++
	if st.idx == len(st.buf) {
		st.idx = 0
	}
	return sat32(st.sum / int64(cfg.Window))
}
