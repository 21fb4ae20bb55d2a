package engine

// evalTimer advances a timer node by dt milliseconds.
//
// The timer starts only from idle, on the configured edge of its
// trigger input; edges arriving while running are ignored (no
// re-trigger). It returns to idle once elapsed >= delay. Time does not
// advance on the starting tick, so a pulse timer holds 1 for exactly
// [T, T+delay) when triggered at T.
func (e *Engine) evalTimer(cfg TimerConfig, st *timerState, dt int64) int32 {
	trig := e.ChannelValue(cfg.Trigger) != 0

	if st.running {
		st.elapsedMS += dt
		if st.elapsedMS >= int64(cfg.DelayMS) {
			st.elapsedMS = int64(cfg.DelayMS)
			st.running = false
			st.completed = true
		}
	} else if st.trigSeen && edgeFired(cfg.TrigEdge, st.prevTrig, trig) {
		st.running = true
		st.elapsedMS = 0
	}

	// First observation only seeds the previous level; a trigger
	// already high at registration is not an edge.
	st.prevTrig = trig
	st.trigSeen = true

	switch cfg.Mode {
	case TimerCountUp:
		if st.running {
			return sat32(st.elapsedMS)
		}
		if st.completed {
			return cfg.DelayMS
		}
		return 0
	case TimerCountDown:
		if st.running {
			return sat32(int64(cfg.DelayMS) - st.elapsedMS)
		}
		return 0
	case TimerPulse:
		return boolOut(st.running)
	default:
		return 0
	}
}
