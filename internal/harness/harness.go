// Package harness runs conformance scenarios against the real
// execution engine: a compiled channel-definition document, a scripted
// input timeline driven through a fixed-step clock, and assertions
// over the resulting channel values and actuations. Traces are
// deterministic, so golden-file comparison pins exact tick-by-tick
// behavior.
package harness

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/rakyury/pmu30/internal/blob"
	"github.com/rakyury/pmu30/internal/compiler"
	"github.com/rakyury/pmu30/internal/engine"
	"github.com/rakyury/pmu30/internal/registry"
	"github.com/rakyury/pmu30/internal/testutil"
)

// Result is the outcome of one scenario run.
type Result struct {
	Passed   bool
	Failures []string
	Trace    []TickTrace
	BlobHash string
}

// TickTrace records what one tick changed: channel writes that differ
// from the previous tick, and every actuation the driver received.
type TickTrace struct {
	Tick       int            `json:"tick"`
	Writes     []ChannelWrite `json:"writes,omitempty"`
	Actuations []Actuation    `json:"actuations,omitempty"`
}

// ChannelWrite is one changed channel value.
type ChannelWrite struct {
	Channel uint16 `json:"channel"`
	Value   int32  `json:"value"`
}

// Actuation is one output driver call.
type Actuation struct {
	Output int  `json:"output"`
	On     bool `json:"on"`
}

const defaultTickMS = 100

func msDuration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

// Run executes a scenario and returns the result. Each run builds a
// fresh engine, registry and driver, so scenarios are isolated and
// reproducible.
func Run(scenario *Scenario) (*Result, error) {
	doc, err := compileConfig(scenario.Config)
	if err != nil {
		return nil, err
	}
	encoded, err := doc.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	names := make(map[string]engine.Channel, len(doc.Records))
	watch := make([]engine.Channel, 0, len(doc.Records))
	for _, rec := range doc.Records {
		if rec.Name != "" {
			names[rec.Name] = rec.Channel
		}
		watch = append(watch, rec.Channel)
	}
	sort.Slice(watch, func(i, j int) bool { return watch[i] < watch[j] })

	reg := registry.NewMemory()
	driver := testutil.NewRecordingDriver()
	eng := engine.New(reg, driver)
	if _, err := eng.LoadConfig(encoded, nil); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	tickMS := scenario.TickMS
	if tickMS == 0 {
		tickMS = defaultTickMS
	}
	clock := testutil.NewStepClock(msDuration(tickMS))

	result := &Result{Passed: true, BlobHash: blob.Hash(encoded)}
	prev := make(map[engine.Channel]int32, len(watch))

	for tick := 1; tick <= scenario.Ticks; tick++ {
		for _, step := range scenario.Inputs {
			if step.AtTick != tick {
				continue
			}
			ch, err := resolveChannel(names, step.Channel, step.Name)
			if err != nil {
				return nil, fmt.Errorf("inputs at tick %d: %w", tick, err)
			}
			if err := reg.Set(ch, step.Value); err != nil {
				return nil, err
			}
		}

		before := len(driver.Actuations)
		eng.Tick(clock.Next())

		tt := TickTrace{Tick: tick}
		for _, ch := range watch {
			v := eng.ChannelValue(ch)
			if v != prev[ch] {
				tt.Writes = append(tt.Writes, ChannelWrite{Channel: uint16(ch), Value: v})
				prev[ch] = v
			}
		}
		for _, a := range driver.Actuations[before:] {
			tt.Actuations = append(tt.Actuations, Actuation{Output: a.Index, On: a.On})
		}
		result.Trace = append(result.Trace, tt)

		for i := range scenario.Assertions {
			a := &scenario.Assertions[i]
			if a.AtTick == tick || (a.AtTick == 0 && tick == scenario.Ticks) {
				checkAssertion(i, a, eng, driver, names, result)
			}
		}
	}

	return result, nil
}

func checkAssertion(index int, a *Assertion, eng *engine.Engine, driver *testutil.RecordingDriver, names map[string]engine.Channel, result *Result) {
	failf := func(format string, args ...any) {
		result.Passed = false
		result.Failures = append(result.Failures,
			fmt.Sprintf("assertions[%d]: %s", index, fmt.Sprintf(format, args...)))
	}

	switch a.Type {
	case AssertChannelValue:
		ch, err := resolveChannel(names, a.Channel, a.Name)
		if err != nil {
			failf("%v", err)
			return
		}
		if got := eng.ChannelValue(ch); got != a.Value {
			failf("channel %d = %d, want %d", ch, got, a.Value)
		}

	case AssertOutputState:
		if got := driver.State(a.Output); got != a.On {
			failf("output %d = %v, want %v", a.Output, got, a.On)
		}

	case AssertActuationCount:
		count := 0
		for _, act := range driver.Actuations {
			if act.Index == a.Output {
				count++
			}
		}
		if count != a.Count {
			failf("output %d actuated %d times, want %d", a.Output, count, a.Count)
		}
	}
}

var subChannels = map[string]engine.SubChannelKind{
	"elapsed":   engine.SubElapsed,
	"remaining": engine.SubRemaining,
	"state":     engine.SubState,
}

// resolveChannel maps a scripted reference onto a channel ID. Names
// follow the document; a "name.state" form addresses sub-channel
// telemetry.
func resolveChannel(names map[string]engine.Channel, ch uint16, name string) (engine.Channel, error) {
	if name == "" {
		return engine.Channel(ch), nil
	}
	base, sub, hasSub := strings.Cut(name, ".")
	id, ok := names[base]
	if !ok {
		return 0, fmt.Errorf("unknown channel %q", base)
	}
	if !hasSub {
		return id, nil
	}
	kind, ok := subChannels[sub]
	if !ok {
		return 0, fmt.Errorf("unknown sub-channel %q", sub)
	}
	return engine.SubChannelID(id, kind), nil
}

// compileConfig reads and compiles a CUE channel-definition document.
func compileConfig(path string) (*compiler.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileString(string(data), cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return compiler.Compile(v)
}
