package engine

// evalMath computes a pure function of the node's inputs. Multiply and
// divide rescale by the milli fixed point; a zero divisor anywhere
// yields 0 for the whole result, never a fault.
func (e *Engine) evalMath(cfg MathConfig) int32 {
	in := func(i int) int64 { return int64(e.ChannelValue(cfg.Inputs[i])) }
	n := len(cfg.Inputs)

	switch cfg.Op {
	case MathAdd:
		var sum int64
		for i := 0; i < n; i++ {
			sum += in(i)
		}
		return sat32(sum)

	case MathSub:
		acc := in(0)
		for i := 1; i < n; i++ {
			acc -= in(i)
		}
		return sat32(acc)

	case MathMul:
		acc := in(0)
		for i := 1; i < n; i++ {
			acc = acc * in(i) / milli
		}
		return sat32(acc)

	case MathDiv:
		acc := in(0)
		for i := 1; i < n; i++ {
			d := in(i)
			if d == 0 {
				return 0
			}
			acc = acc * milli / d
		}
		return sat32(acc)

	case MathMin:
		min := in(0)
		for i := 1; i < n; i++ {
			if v := in(i); v < min {
				min = v
			}
		}
		return int32(min)

	case MathMax:
		max := in(0)
		for i := 1; i < n; i++ {
			if v := in(i); v > max {
				max = v
			}
		}
		return int32(max)

	case MathAverage:
		var sum int64
		for i := 0; i < n; i++ {
			sum += in(i)
		}
		return sat32(sum / int64(n))

	case MathAbs:
		v := in(0)
		if v < 0 {
			v = -v
		}
		return sat32(v)

	case MathScale:
		return sat32(in(0)*int64(cfg.Scale)/milli + int64(cfg.Offset))

	case MathClamp:
		return clamp32(int32(in(0)), cfg.Min, cfg.Max)

	default:
		return 0
	}
}

// sat32 saturates an int64 intermediate to the int32 channel range.
func sat32(v int64) int32 {
	if v > 1<<31-1 {
		return 1<<31 - 1
	}
	if v < -(1 << 31) {
		return -(1 << 31)
	}
	return int32(v)
}
