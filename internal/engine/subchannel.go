package engine

// SubChannelKind selects which derived telemetry value of a node to
// read. Sub-channels are computed from node state on demand; they have
// no storage slot of their own.
type SubChannelKind uint8

const (
	// SubElapsed is a timer's elapsed milliseconds.
	SubElapsed SubChannelKind = 1
	// SubRemaining is a timer's remaining milliseconds (0 when idle).
	SubRemaining SubChannelKind = 2
	// SubState is a node's running/latched state as 0/1.
	SubState SubChannelKind = 3
)

// SubChannelID packs an owner channel and a telemetry kind into the
// derived address namespace: owner + kind*SubChannelBase. Owners are
// validated below SubChannelBase at registration, so a derived address
// can never collide with a primary ID.
func SubChannelID(owner Channel, kind SubChannelKind) Channel {
	return owner + Channel(kind)*SubChannelBase
}

// splitSubChannel reverses SubChannelID.
func splitSubChannel(ch Channel) (owner Channel, kind SubChannelKind) {
	return ch % SubChannelBase, SubChannelKind(ch / SubChannelBase)
}

// SubChannel reads one derived telemetry value from the node owning
// channel id. Only stateful types expose sub-channels; others report
// NOT_FOUND.
func (e *Engine) SubChannel(id Channel, kind SubChannelKind) (int32, error) {
	n := e.findNode(id)
	if n == nil {
		return 0, errNotFound(id)
	}

	switch st := n.st.(type) {
	case *timerState:
		cfg := n.cfg.(TimerConfig)
		switch kind {
		case SubElapsed:
			return sat32(st.elapsedMS), nil
		case SubRemaining:
			if !st.running {
				return 0, nil
			}
			return sat32(int64(cfg.DelayMS) - st.elapsedMS), nil
		case SubState:
			return boolOut(st.running), nil
		}
	case *hystState:
		if kind == SubState {
			return boolOut(st.on), nil
		}
	case *switchState:
		if kind == SubState {
			return boolOut(st.on), nil
		}
	case *flipFlopState:
		if kind == SubState {
			return boolOut(st.on), nil
		}
	}

	return 0, &EngineError{
		Code:    ErrCodeNotFound,
		Message: "node exposes no such sub-channel",
		Channel: id,
	}
}

// subChannelValue resolves a derived address read through the channel
// namespace (telemetry and bus transmission address sub-channels this
// way rather than through the typed query).
func (e *Engine) subChannelValue(ch Channel) (int32, error) {
	owner, kind := splitSubChannel(ch)
	if owner == 0 || kind < SubElapsed || kind > SubState {
		return 0, errInvalidChannel(ch, "not a sub-channel address")
	}
	return e.SubChannel(owner, kind)
}
