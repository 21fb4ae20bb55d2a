package engine

// evalPID advances a PID node. Gains are milli-scaled, so the control
// law is out = (Kp*err + I + D) / 1000 clamped to [OutMin, OutMax].
//
// The integral and derivative advance once per configured sample time;
// between samples the node holds its last output. Anti-windup halts
// integral growth while the unclamped output is saturated in the same
// direction as the error.
func (e *Engine) evalPID(cfg PIDConfig, st *pidState, dt int64) int32 {
	st.sinceMS += dt
	if st.sinceMS < int64(cfg.SampleMS) {
		return st.out
	}
	sampleMS := st.sinceMS
	st.sinceMS = 0

	process := e.ChannelValue(cfg.Process)
	setpoint := cfg.Setpoint
	if cfg.SetpointCh != 0 {
		setpoint = e.ChannelValue(cfg.SetpointCh)
	}

	err := int64(setpoint) - int64(process)
	if cfg.Reversed {
		err = -err
	}

	// Proportional term, milli-scaled.
	p := int64(cfg.Kp) * err

	// Candidate integral: Ki is per second, the sample interval is ms.
	newIntegral := st.integral + int64(cfg.Ki)*err*sampleMS/1000

	// Derivative on error, optionally low-pass filtered.
	var d int64
	if st.hasPrev && sampleMS > 0 {
		raw := int64(cfg.Kd) * (err - int64(st.prevErr)) * 1000 / sampleMS
		if cfg.DAlpha > 0 && cfg.DAlpha < milli {
			st.dFilt = (int64(cfg.DAlpha)*raw + int64(milli-cfg.DAlpha)*st.dFilt) / milli
			d = st.dFilt
		} else {
			st.dFilt = raw
			d = raw
		}
	}
	st.prevErr = sat32(err)
	st.hasPrev = true

	unclamped := (p + newIntegral + d) / milli
	out := sat32(unclamped)
	if out > cfg.OutMax {
		out = cfg.OutMax
	} else if out < cfg.OutMin {
		out = cfg.OutMin
	}

	// Anti-windup: only commit integral growth when not saturated in
	// the error's direction.
	saturatedHigh := unclamped > int64(cfg.OutMax) && err > 0
	saturatedLow := unclamped < int64(cfg.OutMin) && err < 0
	if !saturatedHigh && !saturatedLow {
		st.integral = newIntegral
	}

	st.out = out
	return out
}
