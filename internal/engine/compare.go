package engine

// evalCompare produces a 0/1 result from one input against a second
// input, a constant reference, or a configured range.
func (e *Engine) evalCompare(cfg CompareConfig) int32 {
	a := e.ChannelValue(cfg.InputA)

	if cfg.Op == CmpInRange {
		return boolOut(a >= cfg.Min && a <= cfg.Max)
	}

	b := cfg.Ref
	if cfg.InputB != 0 {
		b = e.ChannelValue(cfg.InputB)
	}

	switch cfg.Op {
	case CmpGT:
		return boolOut(a > b)
	case CmpLT:
		return boolOut(a < b)
	case CmpEQ:
		return boolOut(a == b)
	case CmpNE:
		return boolOut(a != b)
	case CmpGE:
		return boolOut(a >= b)
	case CmpLE:
		return boolOut(a <= b)
	default:
		return 0
	}
}

// evalLogic evaluates a boolean over non-zero-coerced inputs.
// And/Nand short-circuit: remaining channels are not read once the
// result is decided.
func (e *Engine) evalLogic(cfg LogicConfig) int32 {
	truthy := func(i int) bool { return e.ChannelValue(cfg.Inputs[i]) != 0 }
	n := len(cfg.Inputs)

	switch cfg.Op {
	case LogicAnd, LogicNand:
		all := true
		for i := 0; i < n; i++ {
			if !truthy(i) {
				all = false
				break
			}
		}
		if cfg.Op == LogicNand {
			return boolOut(!all)
		}
		return boolOut(all)

	case LogicOr, LogicNor:
		any := false
		for i := 0; i < n; i++ {
			if truthy(i) {
				any = true
				break
			}
		}
		if cfg.Op == LogicNor {
			return boolOut(!any)
		}
		return boolOut(any)

	case LogicNot:
		return boolOut(!truthy(0))

	case LogicXor:
		odd := false
		for i := 0; i < n; i++ {
			if truthy(i) {
				odd = !odd
			}
		}
		return boolOut(odd)

	default:
		return 0
	}
}
