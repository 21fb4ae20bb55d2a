package engine

import "testing"

func TestSwitchMomentary(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 100, SwitchConfig{Input: 1, Mode: SwitchMomentary})

	r.tick()
	if got := r.out(t, 100); got != 0 {
		t.Fatalf("output = %d, want 0", got)
	}
	r.store.Set(1, 1)
	r.tick()
	if got := r.out(t, 100); got != 1 {
		t.Errorf("output = %d, want 1", got)
	}
	r.store.Set(1, 0)
	r.tick()
	if got := r.out(t, 100); got != 0 {
		t.Errorf("output = %d, want 0 after release", got)
	}
}

func TestSwitchLatchingWithOffInput(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 100, SwitchConfig{Input: 1, Off: 2, Mode: SwitchLatching})

	r.store.Set(1, 1)
	r.tick()
	if got := r.out(t, 100); got != 1 {
		t.Fatalf("output = %d, want 1 (latched)", got)
	}
	r.store.Set(1, 0)
	r.tick()
	if got := r.out(t, 100); got != 1 {
		t.Errorf("output = %d, want 1 (held after release)", got)
	}
	r.store.Set(2, 1)
	r.tick()
	if got := r.out(t, 100); got != 0 {
		t.Errorf("output = %d, want 0 after off edge", got)
	}
	// A held off-input does not block the next latch.
	r.store.Set(1, 1)
	r.tick()
	if got := r.out(t, 100); got != 1 {
		t.Errorf("output = %d, want 1 (re-latched)", got)
	}
}

func TestSwitchLatchingWithoutOffInput(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 100, SwitchConfig{Input: 1, Mode: SwitchLatching})

	r.store.Set(1, 1)
	r.tick()
	if got := r.out(t, 100); got != 1 {
		t.Fatalf("output = %d, want 1", got)
	}
	r.store.Set(1, 0)
	r.tick()
	if got := r.out(t, 100); got != 0 {
		t.Errorf("output = %d, want 0 (release-off when no off input)", got)
	}
}

func TestSwitchToggle(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 100, SwitchConfig{Input: 1, Mode: SwitchToggle})

	press := func() {
		r.store.Set(1, 1)
		r.tick()
		r.store.Set(1, 0)
		r.tick()
	}

	press()
	if got := r.out(t, 100); got != 1 {
		t.Errorf("after first press = %d, want 1", got)
	}
	press()
	if got := r.out(t, 100); got != 0 {
		t.Errorf("after second press = %d, want 0", got)
	}
	// Holding the button is one edge, not a repeat.
	r.store.Set(1, 1)
	r.tick()
	r.tick()
	r.tick()
	if got := r.out(t, 100); got != 1 {
		t.Errorf("while held = %d, want 1", got)
	}
}

func TestCounterCountsAndSaturates(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 100, CounterConfig{Input: 1, CountEdge: EdgeRising, Min: 0, Max: 3, Step: 1})

	pulse := func() {
		r.store.Set(1, 1)
		r.tick()
		r.store.Set(1, 0)
		r.tick()
	}

	r.tick() // prime
	for i := 1; i <= 3; i++ {
		pulse()
		if got := r.out(t, 100); got != int32(i) {
			t.Fatalf("count after pulse %d = %d", i, got)
		}
	}
	pulse()
	if got := r.out(t, 100); got != 3 {
		t.Errorf("count = %d, want saturated 3", got)
	}
}

func TestCounterWraps(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 100, CounterConfig{Input: 1, CountEdge: EdgeRising, Min: 0, Max: 2, Step: 1, Wrap: true})

	r.tick()
	for i := 0; i < 3; i++ {
		r.store.Set(1, 1)
		r.tick()
		r.store.Set(1, 0)
		r.tick()
	}
	if got := r.out(t, 100); got != 0 {
		t.Errorf("count after wrap = %d, want 0", got)
	}
}

func TestCounterReset(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 100, CounterConfig{Input: 1, Reset: 2, CountEdge: EdgeRising, Min: 0, Max: 100, Step: 1})

	r.tick()
	r.store.Set(1, 1)
	r.tick()
	if got := r.out(t, 100); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}
	r.store.Set(2, 1)
	r.tick()
	if got := r.out(t, 100); got != 0 {
		t.Errorf("count with reset held = %d, want 0", got)
	}
}

func TestCounterBothEdges(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 100, CounterConfig{Input: 1, CountEdge: EdgeBoth, Min: 0, Max: 100, Step: 1})

	r.tick()
	r.store.Set(1, 1)
	r.tick()
	r.store.Set(1, 0)
	r.tick()
	if got := r.out(t, 100); got != 2 {
		t.Errorf("count = %d, want 2 (both edges)", got)
	}
}

func TestFlipFlop(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 100, FlipFlopConfig{Set: 1, Reset: 2})

	r.tick()
	if got := r.out(t, 100); got != 0 {
		t.Fatalf("initial output = %d, want 0", got)
	}
	r.store.Set(1, 1)
	r.tick()
	r.store.Set(1, 0)
	r.tick()
	if got := r.out(t, 100); got != 1 {
		t.Errorf("output = %d, want 1 (latched)", got)
	}
	r.store.Set(2, 1)
	r.tick()
	if got := r.out(t, 100); got != 0 {
		t.Errorf("output = %d, want 0 (reset)", got)
	}
	// Set wins over reset in the same tick.
	r.store.Set(1, 1)
	r.tick()
	if got := r.out(t, 100); got != 1 {
		t.Errorf("output = %d, want 1 (set dominates)", got)
	}
}
