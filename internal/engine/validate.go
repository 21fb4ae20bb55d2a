package engine

import "fmt"

func badConfig(format string, args ...any) *EngineError {
	return &EngineError{Code: ErrCodeBadConfig, Message: fmt.Sprintf(format, args...)}
}

// ValidateConfig runs the same structural checks AddNode applies, for
// host-side tools that want to reject a config before it reaches a
// device.
func ValidateConfig(cfg Config) error {
	if cfg == nil || !cfg.Type().Valid() {
		return &EngineError{Code: ErrCodeUnknownType, Message: "unknown node type"}
	}
	return cfg.validate()
}

func validInputs(inputs []Channel) error {
	if len(inputs) < 1 || len(inputs) > MaxInputs {
		return badConfig("input count %d outside 1..%d", len(inputs), MaxInputs)
	}
	for i, ch := range inputs {
		if ch == 0 {
			return badConfig("input %d references channel 0", i)
		}
	}
	return nil
}

func (c MathConfig) validate() error {
	if c.Op < MathAdd || c.Op > MathClamp {
		return badConfig("unknown math op %d", c.Op)
	}
	if err := validInputs(c.Inputs); err != nil {
		return err
	}
	if c.Op == MathClamp && c.Min > c.Max {
		return badConfig("clamp min %d above max %d", c.Min, c.Max)
	}
	return nil
}

func (c CompareConfig) validate() error {
	if c.Op < CmpGT || c.Op > CmpInRange {
		return badConfig("unknown compare op %d", c.Op)
	}
	if c.InputA == 0 {
		return badConfig("compare input references channel 0")
	}
	if c.Op == CmpInRange && c.Min > c.Max {
		return badConfig("range min %d above max %d", c.Min, c.Max)
	}
	return nil
}

func (c LogicConfig) validate() error {
	if c.Op < LogicAnd || c.Op > LogicNor {
		return badConfig("unknown logic op %d", c.Op)
	}
	return validInputs(c.Inputs)
}

func (c TimerConfig) validate() error {
	if c.Mode < TimerCountUp || c.Mode > TimerPulse {
		return badConfig("unknown timer mode %d", c.Mode)
	}
	if c.TrigEdge < EdgeRising || c.TrigEdge > EdgeBoth {
		return badConfig("unknown trigger edge %d", c.TrigEdge)
	}
	if c.Trigger == 0 {
		return badConfig("timer trigger references channel 0")
	}
	if c.DelayMS <= 0 {
		return badConfig("timer delay %d ms not positive", c.DelayMS)
	}
	return nil
}

func (c PIDConfig) validate() error {
	if c.Process == 0 {
		return badConfig("pid process input references channel 0")
	}
	if c.SampleMS <= 0 {
		return badConfig("pid sample time %d ms not positive", c.SampleMS)
	}
	if c.OutMin > c.OutMax {
		return badConfig("pid output min %d above max %d", c.OutMin, c.OutMax)
	}
	if c.DAlpha < 0 || c.DAlpha > milli {
		return badConfig("pid derivative filter alpha %d outside 0..1000", c.DAlpha)
	}
	return nil
}

func (c HysteresisConfig) validate() error {
	if c.Input == 0 {
		return badConfig("hysteresis input references channel 0")
	}
	if c.Off > c.On {
		return badConfig("hysteresis off threshold %d above on threshold %d", c.Off, c.On)
	}
	return nil
}

func (c RateLimitConfig) validate() error {
	if c.Input == 0 {
		return badConfig("rate limit input references channel 0")
	}
	if c.MaxRate <= 0 {
		return badConfig("rate limit %d not positive", c.MaxRate)
	}
	return nil
}

func (c DebounceConfig) validate() error {
	if c.Input == 0 {
		return badConfig("debounce input references channel 0")
	}
	if c.DurationMS <= 0 {
		return badConfig("debounce duration %d ms not positive", c.DurationMS)
	}
	return nil
}

func (c Table1DConfig) validate() error {
	if c.Input == 0 {
		return badConfig("table input references channel 0")
	}
	if len(c.Points) < 2 || len(c.Points) > MaxTablePoints {
		return badConfig("table point count %d outside 2..%d", len(c.Points), MaxTablePoints)
	}
	for i := 1; i < len(c.Points); i++ {
		if c.Points[i].X <= c.Points[i-1].X {
			return badConfig("table breakpoints not strictly increasing at index %d", i)
		}
	}
	return nil
}

func (c MovingAvgConfig) validate() error {
	if c.Input == 0 {
		return badConfig("moving average input references channel 0")
	}
	if c.Window < 1 || c.Window > MaxWindow {
		return badConfig("moving average window %d outside 1..%d", c.Window, MaxWindow)
	}
	return nil
}

func (c SwitchConfig) validate() error {
	if c.Mode < SwitchMomentary || c.Mode > SwitchToggle {
		return badConfig("unknown switch mode %d", c.Mode)
	}
	if c.Input == 0 {
		return badConfig("switch input references channel 0")
	}
	return nil
}

func (c CounterConfig) validate() error {
	if c.Input == 0 {
		return badConfig("counter input references channel 0")
	}
	if c.CountEdge < EdgeRising || c.CountEdge > EdgeBoth {
		return badConfig("unknown counter edge %d", c.CountEdge)
	}
	if c.Min > c.Max {
		return badConfig("counter min %d above max %d", c.Min, c.Max)
	}
	if c.Step == 0 {
		return badConfig("counter step is zero")
	}
	return nil
}

func (c FlipFlopConfig) validate() error {
	if c.Set == 0 || c.Reset == 0 {
		return badConfig("flip-flop set/reset reference channel 0")
	}
	return nil
}

func (c NumberConfig) validate() error { return nil }
