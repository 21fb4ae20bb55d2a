package engine

import "encoding/binary"

// Type-specific payload layouts, little-endian. These are the bytes
// carried in a configuration record after the fixed header; both the
// loader and the host-side compiler speak this format through
// MarshalConfig/ParseConfig so there is exactly one definition of each
// layout.

// MarshalConfig encodes a config into its wire payload.
func MarshalConfig(cfg Config) []byte {
	var b []byte
	switch c := cfg.(type) {
	case MathConfig:
		b = append(b, byte(c.Op), byte(len(c.Inputs)))
		for _, ch := range c.Inputs {
			b = appendU16(b, uint16(ch))
		}
		b = appendI32(b, c.Scale)
		b = appendI32(b, c.Offset)
		b = appendI32(b, c.Min)
		b = appendI32(b, c.Max)

	case CompareConfig:
		b = append(b, byte(c.Op))
		b = appendU16(b, uint16(c.InputA))
		b = appendU16(b, uint16(c.InputB))
		b = appendI32(b, c.Ref)
		b = appendI32(b, c.Min)
		b = appendI32(b, c.Max)

	case LogicConfig:
		b = append(b, byte(c.Op), byte(len(c.Inputs)))
		for _, ch := range c.Inputs {
			b = appendU16(b, uint16(ch))
		}

	case TimerConfig:
		b = append(b, byte(c.Mode), byte(c.TrigEdge))
		b = appendU16(b, uint16(c.Trigger))
		b = appendI32(b, c.DelayMS)

	case PIDConfig:
		b = appendU16(b, uint16(c.Process))
		b = appendU16(b, uint16(c.SetpointCh))
		b = appendI32(b, c.Setpoint)
		b = appendI32(b, c.Kp)
		b = appendI32(b, c.Ki)
		b = appendI32(b, c.Kd)
		b = appendI32(b, c.SampleMS)
		b = appendI32(b, c.DAlpha)
		b = appendI32(b, c.OutMin)
		b = appendI32(b, c.OutMax)
		var flags byte
		if c.Reversed {
			flags |= 0x01
		}
		b = append(b, flags)

	case HysteresisConfig:
		b = appendU16(b, uint16(c.Input))
		b = appendI32(b, c.On)
		b = appendI32(b, c.Off)

	case RateLimitConfig:
		b = appendU16(b, uint16(c.Input))
		b = appendI32(b, c.MaxRate)

	case DebounceConfig:
		b = appendU16(b, uint16(c.Input))
		b = appendI32(b, c.DurationMS)

	case Table1DConfig:
		b = appendU16(b, uint16(c.Input))
		b = append(b, byte(len(c.Points)))
		for _, p := range c.Points {
			b = appendI32(b, p.X)
			b = appendI32(b, p.Y)
		}

	case MovingAvgConfig:
		b = appendU16(b, uint16(c.Input))
		b = append(b, byte(c.Window))

	case SwitchConfig:
		b = appendU16(b, uint16(c.Input))
		b = appendU16(b, uint16(c.Off))
		b = append(b, byte(c.Mode))

	case CounterConfig:
		b = appendU16(b, uint16(c.Input))
		b = appendU16(b, uint16(c.Reset))
		b = append(b, byte(c.CountEdge))
		var flags byte
		if c.Wrap {
			flags |= 0x01
		}
		b = append(b, flags)
		b = appendI32(b, c.Min)
		b = appendI32(b, c.Max)
		b = appendI32(b, c.Step)

	case FlipFlopConfig:
		b = appendU16(b, uint16(c.Set))
		b = appendU16(b, uint16(c.Reset))

	case NumberConfig:
		b = appendI32(b, c.Value)
	}
	return b
}

// ParseConfig decodes a wire payload for the given node type. A short
// or malformed payload returns INVALID_CONFIG; an unknown type tag
// returns UNKNOWN_NODE_TYPE before any memory is committed.
func ParseConfig(t NodeType, payload []byte) (Config, error) {
	r := payloadReader{b: payload}

	switch t {
	case TypeMath:
		op := MathOp(r.u8())
		n := int(r.u8())
		if n < 1 || n > MaxInputs {
			return nil, badConfig("math input count %d outside 1..%d", n, MaxInputs)
		}
		inputs := make([]Channel, n)
		for i := range inputs {
			inputs[i] = Channel(r.u16())
		}
		cfg := MathConfig{
			Op:     op,
			Inputs: inputs,
			Scale:  r.i32(),
			Offset: r.i32(),
			Min:    r.i32(),
			Max:    r.i32(),
		}
		return cfg, r.done()

	case TypeComparison:
		cfg := CompareConfig{
			Op:     CompareOp(r.u8()),
			InputA: Channel(r.u16()),
			InputB: Channel(r.u16()),
			Ref:    r.i32(),
			Min:    r.i32(),
			Max:    r.i32(),
		}
		return cfg, r.done()

	case TypeLogic:
		op := LogicOp(r.u8())
		n := int(r.u8())
		if n < 1 || n > MaxInputs {
			return nil, badConfig("logic input count %d outside 1..%d", n, MaxInputs)
		}
		inputs := make([]Channel, n)
		for i := range inputs {
			inputs[i] = Channel(r.u16())
		}
		return LogicConfig{Op: op, Inputs: inputs}, r.done()

	case TypeTimer:
		cfg := TimerConfig{
			Mode:     TimerMode(r.u8()),
			TrigEdge: Edge(r.u8()),
			Trigger:  Channel(r.u16()),
			DelayMS:  r.i32(),
		}
		return cfg, r.done()

	case TypePID:
		cfg := PIDConfig{
			Process:    Channel(r.u16()),
			SetpointCh: Channel(r.u16()),
			Setpoint:   r.i32(),
			Kp:         r.i32(),
			Ki:         r.i32(),
			Kd:         r.i32(),
			SampleMS:   r.i32(),
			DAlpha:     r.i32(),
			OutMin:     r.i32(),
			OutMax:     r.i32(),
		}
		cfg.Reversed = r.u8()&0x01 != 0
		return cfg, r.done()

	case TypeHysteresis:
		cfg := HysteresisConfig{
			Input: Channel(r.u16()),
			On:    r.i32(),
			Off:   r.i32(),
		}
		return cfg, r.done()

	case TypeRateLimit:
		cfg := RateLimitConfig{Input: Channel(r.u16()), MaxRate: r.i32()}
		return cfg, r.done()

	case TypeDebounce:
		cfg := DebounceConfig{Input: Channel(r.u16()), DurationMS: r.i32()}
		return cfg, r.done()

	case TypeTable1D:
		input := Channel(r.u16())
		n := int(r.u8())
		if n < 2 || n > MaxTablePoints {
			return nil, badConfig("table point count %d outside 2..%d", n, MaxTablePoints)
		}
		points := make([]TablePoint, n)
		for i := range points {
			points[i] = TablePoint{X: r.i32(), Y: r.i32()}
		}
		return Table1DConfig{Input: input, Points: points}, r.done()

	case TypeMovingAvg:
		cfg := MovingAvgConfig{Input: Channel(r.u16()), Window: int(r.u8())}
		return cfg, r.done()

	case TypeSwitch:
		cfg := SwitchConfig{
			Input: Channel(r.u16()),
			Off:   Channel(r.u16()),
			Mode:  SwitchMode(r.u8()),
		}
		return cfg, r.done()

	case TypeCounter:
		cfg := CounterConfig{
			Input:     Channel(r.u16()),
			Reset:     Channel(r.u16()),
			CountEdge: Edge(r.u8()),
		}
		cfg.Wrap = r.u8()&0x01 != 0
		cfg.Min = r.i32()
		cfg.Max = r.i32()
		cfg.Step = r.i32()
		return cfg, r.done()

	case TypeFlipFlop:
		cfg := FlipFlopConfig{Set: Channel(r.u16()), Reset: Channel(r.u16())}
		return cfg, r.done()

	case TypeNumber:
		cfg := NumberConfig{Value: r.i32()}
		return cfg, r.done()

	default:
		return nil, &EngineError{Code: ErrCodeUnknownType, Message: "unknown node type tag"}
	}
}

// payloadReader is a bounds-checked cursor over a payload. Reads past
// the end return zero and latch the short flag; done() turns the latch
// into a single error so field parsing stays linear.
type payloadReader struct {
	b     []byte
	off   int
	short bool
}

func (r *payloadReader) u8() byte {
	if r.off+1 > len(r.b) {
		r.short = true
		return 0
	}
	v := r.b[r.off]
	r.off++
	return v
}

func (r *payloadReader) u16() uint16 {
	if r.off+2 > len(r.b) {
		r.short = true
		return 0
	}
	v := binary.LittleEndian.Uint16(r.b[r.off:])
	r.off += 2
	return v
}

func (r *payloadReader) i32() int32 {
	if r.off+4 > len(r.b) {
		r.short = true
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.b[r.off:]))
	r.off += 4
	return v
}

func (r *payloadReader) done() error {
	if r.short {
		return badConfig("payload shorter than its type layout")
	}
	return nil
}

func appendU16(b []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(b, v)
}

func appendI32(b []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(b, uint32(v))
}
