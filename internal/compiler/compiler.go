// Package compiler turns CUE channel-definition documents into
// configuration blob records. Parsing walks the CUE value field by
// field so every error carries its source position.
package compiler

import (
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/rakyury/pmu30/internal/blob"
	"github.com/rakyury/pmu30/internal/engine"
)

// Document is a compiled channel-definition document, ready to encode.
type Document struct {
	Records []blob.Record
}

// Encode serializes the document into a configuration blob.
func (d *Document) Encode() ([]byte, error) {
	return blob.Encode(d.Records)
}

// Compile parses a CUE value holding a channel-definition document:
//
//	channels: <name>: { id: <int>, type: <node type>, ... }
//	outputs:  <name>: { id: <int>, source: <ref>, hw_index: <int> }
//
// Reference fields accept a channel name, a "name.elapsed" /
// "name.remaining" / "name.state" sub-channel form, or a raw numeric
// ID. Records are emitted in ascending channel-ID order, which is
// also the engine's evaluation order.
func Compile(v cue.Value) (*Document, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	names, err := collectNames(v)
	if err != nil {
		return nil, err
	}
	res := &resolver{names: names}

	var records []blob.Record

	chVal := v.LookupPath(cue.ParsePath("channels"))
	if chVal.Exists() {
		iter, err := chVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			rec, err := compileChannel(iter.Label(), iter.Value(), res)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}

	outVal := v.LookupPath(cue.ParsePath("outputs"))
	if outVal.Exists() {
		iter, err := outVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			rec, err := compileOutput(iter.Label(), iter.Value(), res)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}

	if len(records) == 0 {
		return nil, &CompileError{
			Field:   "channels",
			Message: "document defines no channels or outputs",
			Pos:     v.Pos(),
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Channel < records[j].Channel
	})

	doc := &Document{Records: records}
	if errs := Validate(doc); len(errs) > 0 {
		return nil, errs[0]
	}
	return doc, nil
}

// collectNames builds the name -> channel ID table used for reference
// resolution, covering both channels and outputs.
func collectNames(v cue.Value) (map[string]engine.Channel, error) {
	names := make(map[string]engine.Channel)
	for _, section := range []string{"channels", "outputs"} {
		secVal := v.LookupPath(cue.ParsePath(section))
		if !secVal.Exists() {
			continue
		}
		iter, err := secVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			name := iter.Label()
			idVal := iter.Value().LookupPath(cue.ParsePath("id"))
			if !idVal.Exists() {
				return nil, &CompileError{
					Field:   fmt.Sprintf("%s.%s.id", section, name),
					Message: "id is required",
					Pos:     iter.Value().Pos(),
				}
			}
			id, err := idVal.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			if id < 1 || id >= int64(engine.SubChannelBase) {
				return nil, &CompileError{
					Field:   fmt.Sprintf("%s.%s.id", section, name),
					Message: fmt.Sprintf("id %d outside 1..%d", id, engine.SubChannelBase-1),
					Pos:     idVal.Pos(),
				}
			}
			if prev, dup := names[name]; dup {
				return nil, &CompileError{
					Field:   fmt.Sprintf("%s.%s", section, name),
					Message: fmt.Sprintf("name already defined as channel %d", prev),
					Pos:     iter.Value().Pos(),
				}
			}
			names[name] = engine.Channel(id)
		}
	}
	return names, nil
}

// resolver maps reference fields to channel IDs.
type resolver struct {
	names map[string]engine.Channel
}

var subChannelKinds = map[string]engine.SubChannelKind{
	"elapsed":   engine.SubElapsed,
	"remaining": engine.SubRemaining,
	"state":     engine.SubState,
}

func (r *resolver) ref(field string, v cue.Value) (engine.Channel, error) {
	if id, err := v.Int64(); err == nil {
		if id < 1 || id > 0xFFFF {
			return 0, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("channel id %d out of range", id),
				Pos:     v.Pos(),
			}
		}
		return engine.Channel(id), nil
	}

	name, err := v.String()
	if err != nil {
		return 0, &CompileError{
			Field:   field,
			Message: "reference must be a channel name or numeric id",
			Pos:     v.Pos(),
		}
	}

	base, sub, hasSub := strings.Cut(name, ".")
	id, ok := r.names[base]
	if !ok {
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unknown channel %q", base),
			Pos:     v.Pos(),
		}
	}
	if !hasSub {
		return id, nil
	}
	kind, ok := subChannelKinds[sub]
	if !ok {
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unknown sub-channel %q (want elapsed, remaining or state)", sub),
			Pos:     v.Pos(),
		}
	}
	return engine.SubChannelID(id, kind), nil
}

// compileOutput parses one outputs entry into a power-output record.
func compileOutput(name string, v cue.Value, res *resolver) (blob.Record, error) {
	f := &fields{name: "outputs." + name, v: v, res: res}

	id := f.requiredInt("id")
	source := f.requiredRef("source")
	hwIndex := f.requiredInt("hw_index")
	if f.err != nil {
		return blob.Record{}, f.err
	}
	if hwIndex < 0 || hwIndex >= engine.OutputCount {
		return blob.Record{}, &CompileError{
			Field:   f.name + ".hw_index",
			Message: fmt.Sprintf("physical output %d outside 0..%d", hwIndex, engine.OutputCount-1),
			Pos:     v.Pos(),
		}
	}

	rec := blob.OutputRecord(engine.Channel(id), name, source, int(hwIndex))
	if f.optionalBool("disabled", false) {
		rec.Flags |= engine.FlagDisabled
	}
	if f.err != nil {
		return blob.Record{}, f.err
	}
	return rec, nil
}

// compileChannel parses one channels entry into a node record.
func compileChannel(name string, v cue.Value, res *resolver) (blob.Record, error) {
	f := &fields{name: "channels." + name, v: v, res: res}

	id := f.requiredInt("id")
	typeName := f.requiredString("type")
	if f.err != nil {
		return blob.Record{}, f.err
	}

	t, ok := engine.NodeTypeByName(typeName)
	if !ok {
		return blob.Record{}, &CompileError{
			Field:   f.name + ".type",
			Message: fmt.Sprintf("unknown node type %q", typeName),
			Pos:     v.Pos(),
		}
	}

	cfg, err := compileConfig(t, f)
	if err != nil {
		return blob.Record{}, err
	}

	rec := blob.NodeRecord(engine.Channel(id), name, cfg)
	rec.Default = int32(f.optionalInt("default", 0))
	if f.optionalBool("disabled", false) {
		rec.Flags |= engine.FlagDisabled
	}
	if f.err != nil {
		return blob.Record{}, f.err
	}
	return rec, nil
}

func compileConfig(t engine.NodeType, f *fields) (engine.Config, error) {
	var cfg engine.Config

	switch t {
	case engine.TypeMath:
		cfg = engine.MathConfig{
			Op:     mathOp(f, "op"),
			Inputs: f.refList("inputs"),
			Scale:  int32(f.optionalInt("scale", 1000)),
			Offset: int32(f.optionalInt("offset", 0)),
			Min:    int32(f.optionalInt("min", 0)),
			Max:    int32(f.optionalInt("max", 0)),
		}

	case engine.TypeComparison:
		cfg = engine.CompareConfig{
			Op:     compareOp(f, "op"),
			InputA: f.requiredRef("input"),
			InputB: f.optionalRef("input_b"),
			Ref:    int32(f.optionalInt("ref", 0)),
			Min:    int32(f.optionalInt("min", 0)),
			Max:    int32(f.optionalInt("max", 0)),
		}

	case engine.TypeLogic:
		cfg = engine.LogicConfig{
			Op:     logicOp(f, "op"),
			Inputs: f.refList("inputs"),
		}

	case engine.TypeTimer:
		cfg = engine.TimerConfig{
			Mode:     timerMode(f, "mode"),
			Trigger:  f.requiredRef("trigger"),
			TrigEdge: edge(f, "edge", engine.EdgeRising),
			DelayMS:  int32(f.requiredInt("delay_ms")),
		}

	case engine.TypePID:
		cfg = engine.PIDConfig{
			Process:    f.requiredRef("process"),
			SetpointCh: f.optionalRef("setpoint_channel"),
			Setpoint:   int32(f.optionalInt("setpoint", 0)),
			Kp:         int32(f.optionalInt("kp", 0)),
			Ki:         int32(f.optionalInt("ki", 0)),
			Kd:         int32(f.optionalInt("kd", 0)),
			SampleMS:   int32(f.requiredInt("sample_ms")),
			DAlpha:     int32(f.optionalInt("d_alpha", 0)),
			Reversed:   f.optionalBool("reversed", false),
			OutMin:     int32(f.requiredInt("out_min")),
			OutMax:     int32(f.requiredInt("out_max")),
		}

	case engine.TypeHysteresis:
		cfg = engine.HysteresisConfig{
			Input: f.requiredRef("input"),
			On:    int32(f.requiredInt("on")),
			Off:   int32(f.requiredInt("off")),
		}

	case engine.TypeRateLimit:
		cfg = engine.RateLimitConfig{
			Input:   f.requiredRef("input"),
			MaxRate: int32(f.requiredInt("max_rate")),
		}

	case engine.TypeDebounce:
		cfg = engine.DebounceConfig{
			Input:      f.requiredRef("input"),
			DurationMS: int32(f.requiredInt("duration_ms")),
		}

	case engine.TypeTable1D:
		cfg = engine.Table1DConfig{
			Input:  f.requiredRef("input"),
			Points: f.pointList("points"),
		}

	case engine.TypeMovingAvg:
		cfg = engine.MovingAvgConfig{
			Input:  f.requiredRef("input"),
			Window: int(f.requiredInt("window")),
		}

	case engine.TypeSwitch:
		cfg = engine.SwitchConfig{
			Input: f.requiredRef("input"),
			Off:   f.optionalRef("off"),
			Mode:  switchMode(f, "mode"),
		}

	case engine.TypeCounter:
		cfg = engine.CounterConfig{
			Input:     f.requiredRef("input"),
			Reset:     f.optionalRef("reset"),
			CountEdge: edge(f, "edge", engine.EdgeRising),
			Min:       int32(f.optionalInt("min", 0)),
			Max:       int32(f.requiredInt("max")),
			Step:      int32(f.optionalInt("step", 1)),
			Wrap:      f.optionalBool("wrap", false),
		}

	case engine.TypeFlipFlop:
		cfg = engine.FlipFlopConfig{
			Set:   f.requiredRef("set"),
			Reset: f.requiredRef("reset"),
		}

	case engine.TypeNumber:
		cfg = engine.NumberConfig{
			Value: int32(f.requiredInt("value")),
		}
	}

	if f.err != nil {
		return nil, f.err
	}

	// Catch structural problems (bad counts, non-monotonic tables,
	// inverted thresholds) where the document is, not on the device.
	if err := engine.ValidateConfig(cfg); err != nil {
		return nil, &CompileError{
			Field:   f.name,
			Message: err.Error(),
			Pos:     f.v.Pos(),
		}
	}
	return cfg, nil
}

// CompileError is a document error with its source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
