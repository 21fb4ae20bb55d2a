package engine

import (
	"log/slog"
	"time"
)

// Tick runs one evaluation pass: all enabled nodes in registration
// order, then all enabled output links. Runs to completion with no
// suspension points.
//
// The tick preamble re-checks recorded counts against capacity. Counts
// out of range indicate memory corruption; the whole pass is skipped
// rather than reading out of bounds.
func (e *Engine) Tick(now time.Time) {
	if len(e.nodes) > e.nodeCap || len(e.links) > e.linkCap {
		e.skippedTicks++
		slog.Warn("table counts exceed capacity, skipping tick",
			"nodes", len(e.nodes),
			"node_capacity", e.nodeCap,
			"links", len(e.links),
			"link_capacity", e.linkCap,
		)
		return
	}

	dt := e.clock.Advance(now)
	e.lastDT = dt

	for i := range e.nodes {
		n := &e.nodes[i]
		if !n.enabled || n.cfg == nil {
			// A node without its config is never dereferenced.
			continue
		}
		n.prevOut = n.out
		n.out = e.evalNode(n, dt)
		// Publish into the shared namespace so links, telemetry and
		// bus transmission see the value.
		_ = e.store.Set(n.id, n.out)
	}

	e.evalLinks()
}

// evalNode dispatches to the type's evaluation rule. One exhaustive
// switch over the config sum type; adding a node type without a case
// here fails the default branch, never a pointer cast.
func (e *Engine) evalNode(n *Node, dt int64) int32 {
	switch cfg := n.cfg.(type) {
	case MathConfig:
		return e.evalMath(cfg)
	case CompareConfig:
		return e.evalCompare(cfg)
	case LogicConfig:
		return e.evalLogic(cfg)
	case TimerConfig:
		return e.evalTimer(cfg, n.st.(*timerState), dt)
	case PIDConfig:
		return e.evalPID(cfg, n.st.(*pidState), dt)
	case HysteresisConfig:
		return e.evalHysteresis(cfg, n.st.(*hystState))
	case RateLimitConfig:
		return e.evalRateLimit(cfg, n.st.(*rateState), dt)
	case DebounceConfig:
		return e.evalDebounce(cfg, n.st.(*debounceState), dt)
	case Table1DConfig:
		return e.evalTable1D(cfg)
	case MovingAvgConfig:
		return e.evalMovingAvg(cfg, n.st.(*avgState))
	case SwitchConfig:
		return e.evalSwitch(cfg, n.st.(*switchState))
	case CounterConfig:
		return e.evalCounter(cfg, n.st.(*counterState))
	case FlipFlopConfig:
		return e.evalFlipFlop(cfg, n.st.(*flipFlopState))
	case NumberConfig:
		return cfg.Value
	default:
		return n.out
	}
}

// evalLinks runs after the node pass, so a node's new value is visible
// to its link the same tick it changes.
func (e *Engine) evalLinks() {
	for i := range e.links {
		l := &e.links[i]
		if !l.Enabled {
			continue
		}
		on := e.ChannelValue(l.Source) != 0
		if err := e.driver.SetOutputState(l.HWIndex, on); err != nil {
			slog.Error("output actuation failed",
				"hw_index", l.HWIndex,
				"channel", l.Output,
				"error", err,
			)
		}
		v := int32(0)
		if on {
			v = milli
		}
		_ = e.store.Set(l.Output, v)
	}
}

// edgeFired reports whether the prev->cur boolean transition matches
// the configured edge.
func edgeFired(edge Edge, prev, cur bool) bool {
	switch edge {
	case EdgeRising:
		return !prev && cur
	case EdgeFalling:
		return prev && !cur
	case EdgeBoth:
		return prev != cur
	default:
		return false
	}
}

func clamp32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func boolOut(on bool) int32 {
	if on {
		return 1
	}
	return 0
}
