package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rakyury/pmu30/internal/engine"
)

// Document spellings of the engine's operation enums.

var mathOps = map[string]engine.MathOp{
	"add":     engine.MathAdd,
	"sub":     engine.MathSub,
	"mul":     engine.MathMul,
	"div":     engine.MathDiv,
	"min":     engine.MathMin,
	"max":     engine.MathMax,
	"average": engine.MathAverage,
	"abs":     engine.MathAbs,
	"scale":   engine.MathScale,
	"clamp":   engine.MathClamp,
}

var compareOps = map[string]engine.CompareOp{
	"gt":       engine.CmpGT,
	"lt":       engine.CmpLT,
	"eq":       engine.CmpEQ,
	"ne":       engine.CmpNE,
	"ge":       engine.CmpGE,
	"le":       engine.CmpLE,
	"in_range": engine.CmpInRange,
}

var logicOps = map[string]engine.LogicOp{
	"and":  engine.LogicAnd,
	"or":   engine.LogicOr,
	"not":  engine.LogicNot,
	"xor":  engine.LogicXor,
	"nand": engine.LogicNand,
	"nor":  engine.LogicNor,
}

var timerModes = map[string]engine.TimerMode{
	"count_up":   engine.TimerCountUp,
	"count_down": engine.TimerCountDown,
	"pulse":      engine.TimerPulse,
}

var edges = map[string]engine.Edge{
	"rising":  engine.EdgeRising,
	"falling": engine.EdgeFalling,
	"both":    engine.EdgeBoth,
}

var switchModes = map[string]engine.SwitchMode{
	"momentary": engine.SwitchMomentary,
	"latching":  engine.SwitchLatching,
	"toggle":    engine.SwitchToggle,
}

func mathOp(f *fields, field string) engine.MathOp {
	return lookupOp(f, field, mathOps)
}

func compareOp(f *fields, field string) engine.CompareOp {
	return lookupOp(f, field, compareOps)
}

func logicOp(f *fields, field string) engine.LogicOp {
	return lookupOp(f, field, logicOps)
}

func timerMode(f *fields, field string) engine.TimerMode {
	return lookupOp(f, field, timerModes)
}

func switchMode(f *fields, field string) engine.SwitchMode {
	return lookupOp(f, field, switchModes)
}

// edge is optional in documents; most nodes trigger on rising edges.
func edge(f *fields, field string, def engine.Edge) engine.Edge {
	if f.err != nil {
		return def
	}
	if !f.lookup(field).Exists() {
		return def
	}
	return lookupOp(f, field, edges)
}

func lookupOp[T ~uint8](f *fields, field string, ops map[string]T) T {
	name := f.requiredString(field)
	if f.err != nil {
		return 0
	}
	op, ok := ops[name]
	if !ok {
		f.fail(field, fmt.Sprintf("unknown value %q (want one of %s)", name, opNames(ops)), f.lookup(field))
		return 0
	}
	return op
}

func opNames[T ~uint8](ops map[string]T) string {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
