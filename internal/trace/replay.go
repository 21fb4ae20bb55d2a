package trace

import (
	"context"
	"fmt"
	"time"

	"github.com/rakyury/pmu30/internal/engine"
	"github.com/rakyury/pmu30/internal/registry"
	"github.com/rakyury/pmu30/internal/testutil"
)

// ReplayResult reports a determinism check: the recorded actuation
// sequence against a fresh re-run of the same config and inputs.
type ReplayResult struct {
	Token string
	Ticks int

	// Match is true when the re-run produced the recorded actuation
	// sequence exactly.
	Match bool

	// Mismatches describes each divergence, in tick order.
	Mismatches []string
}

// Replay re-runs a recorded session from its stored config blob and
// scripted inputs, and compares the resulting actuation sequence
// against the recording. The engine is deterministic, so any
// divergence means the config, the recording, or the engine changed.
func (s *Store) Replay(ctx context.Context, token string) (*ReplayResult, error) {
	sess, err := s.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	inputs, err := s.ReadInputs(ctx, token)
	if err != nil {
		return nil, err
	}
	recorded, err := s.ReadActuations(ctx, token, Filter{})
	if err != nil {
		return nil, err
	}

	inputsByTick := make(map[int][]Input)
	for _, in := range inputs {
		inputsByTick[in.Tick] = append(inputsByTick[in.Tick], in)
	}

	reg := registry.NewMemory()
	driver := testutil.NewRecordingDriver()
	eng := engine.New(reg, driver)
	if _, err := eng.LoadConfig(sess.Config, nil); err != nil {
		return nil, fmt.Errorf("replay %s: loading config: %w", token, err)
	}

	clock := testutil.NewStepClock(time.Duration(sess.TickMS) * time.Millisecond)

	var replayed []Actuation
	for tick := 1; tick <= sess.Ticks; tick++ {
		for _, in := range inputsByTick[tick] {
			if err := reg.Set(engine.Channel(in.Channel), in.Value); err != nil {
				return nil, fmt.Errorf("replay %s: input at tick %d: %w", token, tick, err)
			}
		}

		before := len(driver.Actuations)
		eng.Tick(clock.Next())
		for i, a := range driver.Actuations[before:] {
			replayed = append(replayed, Actuation{Tick: tick, Seq: i, Output: a.Index, On: a.On})
		}
	}

	result := &ReplayResult{Token: token, Ticks: sess.Ticks, Match: true}
	compareActuations(result, recorded, replayed)
	return result, nil
}

func compareActuations(result *ReplayResult, recorded, replayed []Actuation) {
	mismatch := func(format string, args ...any) {
		result.Match = false
		result.Mismatches = append(result.Mismatches, fmt.Sprintf(format, args...))
	}

	if len(recorded) != len(replayed) {
		mismatch("recorded %d actuations, replay produced %d", len(recorded), len(replayed))
	}

	n := min(len(recorded), len(replayed))
	for i := 0; i < n; i++ {
		want, got := recorded[i], replayed[i]
		if want != got {
			mismatch("actuation %d: recorded tick=%d seq=%d output=%d on=%v, replayed tick=%d seq=%d output=%d on=%v",
				i, want.Tick, want.Seq, want.Output, want.On,
				got.Tick, got.Seq, got.Output, got.On)
		}
	}
}
