package engine

// evalSwitch implements the virtual switch behaviors used for cabin
// controls: momentary pass-through, latching on/off pairs, and
// single-button toggles.
func (e *Engine) evalSwitch(cfg SwitchConfig, st *switchState) int32 {
	in := e.ChannelValue(cfg.Input) != 0

	switch cfg.Mode {
	case SwitchMomentary:
		st.on = in

	case SwitchLatching:
		if !st.prevIn && in {
			st.on = true
		}
		if cfg.Off != 0 {
			off := e.ChannelValue(cfg.Off) != 0
			if !st.prevOff && off {
				st.on = false
			}
			st.prevOff = off
		} else if st.prevIn && !in {
			// No off-input configured: release turns the switch off.
			st.on = false
		}

	case SwitchToggle:
		if !st.prevIn && in {
			st.on = !st.on
		}
	}

	st.prevIn = in
	return boolOut(st.on)
}

// evalCounter counts configured edges of the input between Min and
// Max, wrapping or saturating per config. A held non-zero reset input
// pins the count at Min.
func (e *Engine) evalCounter(cfg CounterConfig, st *counterState) int32 {
	if cfg.Reset != 0 && e.ChannelValue(cfg.Reset) != 0 {
		st.count = cfg.Min
		st.prevIn = e.ChannelValue(cfg.Input) != 0
		st.primed = true
		return st.count
	}

	in := e.ChannelValue(cfg.Input) != 0
	if st.primed && edgeFired(cfg.CountEdge, st.prevIn, in) {
		next := int64(st.count) + int64(cfg.Step)
		switch {
		case next > int64(cfg.Max):
			if cfg.Wrap {
				st.count = cfg.Min
			} else {
				st.count = cfg.Max
			}
		case next < int64(cfg.Min):
			if cfg.Wrap {
				st.count = cfg.Max
			} else {
				st.count = cfg.Min
			}
		default:
			st.count = int32(next)
		}
	}
	st.prevIn = in
	st.primed = true
	return st.count
}

// evalFlipFlop is an SR latch; set wins when both inputs are asserted
// in the same tick.
func (e *Engine) evalFlipFlop(cfg FlipFlopConfig, st *flipFlopState) int32 {
	set := e.ChannelValue(cfg.Set) != 0
	reset := e.ChannelValue(cfg.Reset) != 0
	if set {
		st.on = true
	} else if reset {
		st.on = false
	}
	return boolOut(st.on)
}
