package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/rakyury/pmu30/internal/engine"
)

// fields is an error-latching accessor over one document entry. The
// first failure is kept and every later accessor becomes a no-op, so
// per-type parsing reads as a flat struct literal.
type fields struct {
	name string
	v    cue.Value
	res  *resolver
	err  error
}

func (f *fields) fail(field, msg string, v cue.Value) {
	if f.err == nil {
		f.err = &CompileError{
			Field:   f.name + "." + field,
			Message: msg,
			Pos:     v.Pos(),
		}
	}
}

func (f *fields) lookup(field string) cue.Value {
	return f.v.LookupPath(cue.ParsePath(field))
}

func (f *fields) requiredInt(field string) int64 {
	if f.err != nil {
		return 0
	}
	v := f.lookup(field)
	if !v.Exists() {
		f.fail(field, "required field missing", f.v)
		return 0
	}
	n, err := v.Int64()
	if err != nil {
		f.fail(field, "must be an integer", v)
		return 0
	}
	return n
}

func (f *fields) optionalInt(field string, def int64) int64 {
	if f.err != nil {
		return def
	}
	v := f.lookup(field)
	if !v.Exists() {
		return def
	}
	n, err := v.Int64()
	if err != nil {
		f.fail(field, "must be an integer", v)
		return def
	}
	return n
}

func (f *fields) requiredString(field string) string {
	if f.err != nil {
		return ""
	}
	v := f.lookup(field)
	if !v.Exists() {
		f.fail(field, "required field missing", f.v)
		return ""
	}
	s, err := v.String()
	if err != nil {
		f.fail(field, "must be a string", v)
		return ""
	}
	return s
}

func (f *fields) optionalString(field, def string) string {
	if f.err != nil {
		return def
	}
	v := f.lookup(field)
	if !v.Exists() {
		return def
	}
	s, err := v.String()
	if err != nil {
		f.fail(field, "must be a string", v)
		return def
	}
	return s
}

func (f *fields) optionalBool(field string, def bool) bool {
	if f.err != nil {
		return def
	}
	v := f.lookup(field)
	if !v.Exists() {
		return def
	}
	b, err := v.Bool()
	if err != nil {
		f.fail(field, "must be a bool", v)
		return def
	}
	return b
}

func (f *fields) requiredRef(field string) engine.Channel {
	if f.err != nil {
		return 0
	}
	v := f.lookup(field)
	if !v.Exists() {
		f.fail(field, "required field missing", f.v)
		return 0
	}
	ch, err := f.res.ref(f.name+"."+field, v)
	if err != nil {
		f.err = err
		return 0
	}
	return ch
}

func (f *fields) optionalRef(field string) engine.Channel {
	if f.err != nil {
		return 0
	}
	v := f.lookup(field)
	if !v.Exists() {
		return 0
	}
	ch, err := f.res.ref(f.name+"."+field, v)
	if err != nil {
		f.err = err
		return 0
	}
	return ch
}

func (f *fields) refList(field string) []engine.Channel {
	if f.err != nil {
		return nil
	}
	v := f.lookup(field)
	if !v.Exists() {
		f.fail(field, "required field missing", f.v)
		return nil
	}
	iter, err := v.List()
	if err != nil {
		f.fail(field, "must be a list of channel references", v)
		return nil
	}
	var out []engine.Channel
	for i := 0; iter.Next(); i++ {
		ch, err := f.res.ref(fmt.Sprintf("%s.%s[%d]", f.name, field, i), iter.Value())
		if err != nil {
			f.err = err
			return nil
		}
		out = append(out, ch)
	}
	return out
}

// pointList parses table breakpoints, each a {x: _, y: _} struct.
func (f *fields) pointList(field string) []engine.TablePoint {
	if f.err != nil {
		return nil
	}
	v := f.lookup(field)
	if !v.Exists() {
		f.fail(field, "required field missing", f.v)
		return nil
	}
	iter, err := v.List()
	if err != nil {
		f.fail(field, "must be a list of {x, y} points", v)
		return nil
	}
	var out []engine.TablePoint
	for i := 0; iter.Next(); i++ {
		pv := iter.Value()
		x, xerr := pv.LookupPath(cue.ParsePath("x")).Int64()
		y, yerr := pv.LookupPath(cue.ParsePath("y")).Int64()
		if xerr != nil || yerr != nil {
			f.fail(fmt.Sprintf("%s[%d]", field, i), "point must have integer x and y", pv)
			return nil
		}
		out = append(out, engine.TablePoint{X: int32(x), Y: int32(y)})
	}
	return out
}
