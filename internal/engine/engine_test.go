package engine

import (
	"errors"
	"testing"
	"time"
)

// mapStore is a minimal ChannelStore for engine tests.
type mapStore struct {
	values map[Channel]int32
}

func newMapStore() *mapStore {
	return &mapStore{values: make(map[Channel]int32)}
}

func (s *mapStore) Get(ch Channel) int32 { return s.values[ch] }

func (s *mapStore) Set(ch Channel, v int32) error {
	s.values[ch] = v
	return nil
}

type actuation struct {
	index int
	on    bool
}

// fakeDriver records actuations in call order.
type fakeDriver struct {
	calls []actuation
	state map[int]bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{state: make(map[int]bool)}
}

func (d *fakeDriver) SetOutputState(index int, on bool) error {
	d.calls = append(d.calls, actuation{index: index, on: on})
	d.state[index] = on
	return nil
}

// rig bundles an engine with its collaborators and a fixed-step
// timeline. Each Tick advances 100ms; the first tick sees dt 0.
type rig struct {
	e      *Engine
	store  *mapStore
	driver *fakeDriver
	now    time.Time
	ticks  int
}

func newRig(t *testing.T, opts ...Option) *rig {
	t.Helper()
	store := newMapStore()
	driver := newFakeDriver()
	return &rig{
		e:      New(store, driver, opts...),
		store:  store,
		driver: driver,
		now:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *rig) tick() {
	r.e.Tick(r.now.Add(time.Duration(r.ticks) * 100 * time.Millisecond))
	r.ticks++
}

func (r *rig) mustAdd(t *testing.T, id Channel, cfg Config) {
	t.Helper()
	if err := r.e.AddNode(id, cfg); err != nil {
		t.Fatalf("AddNode(%d): %v", id, err)
	}
}

func (r *rig) out(t *testing.T, id Channel) int32 {
	t.Helper()
	n := r.e.Node(id)
	if n == nil {
		t.Fatalf("node %d not found", id)
	}
	return n.Output()
}

func TestAddNodeRejections(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 10, NumberConfig{Value: 1})

	tests := []struct {
		name string
		id   Channel
		cfg  Config
		code ErrorCode
	}{
		{"channel zero", 0, NumberConfig{}, ErrCodeInvalidChannel},
		{"above primary range", SubChannelBase, NumberConfig{}, ErrCodeInvalidChannel},
		{"duplicate", 10, NumberConfig{}, ErrCodeDuplicateChannel},
		{"nil config", 20, nil, ErrCodeUnknownType},
		{"bad config", 20, HysteresisConfig{Input: 1, On: 100, Off: 200}, ErrCodeBadConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.e.AddNode(tt.id, tt.cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := CodeOf(err); got != tt.code {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
		})
	}

	if got := r.e.Stats().Nodes; got != 1 {
		t.Errorf("node count after rejections = %d, want 1", got)
	}
}

func TestNodeCapacity(t *testing.T) {
	r := newRig(t, WithNodeCapacity(2))
	r.mustAdd(t, 1, NumberConfig{Value: 1})
	r.mustAdd(t, 2, NumberConfig{Value: 2})

	err := r.e.AddNode(3, NumberConfig{Value: 3})
	if !IsCapacityError(err) {
		t.Fatalf("expected capacity error, got %v", err)
	}

	// Freeing a slot makes registration possible again.
	if err := r.e.RemoveNode(1); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	if err := r.e.AddNode(3, NumberConfig{Value: 3}); err != nil {
		t.Fatalf("AddNode after removal: %v", err)
	}
}

func TestRemoveNodeCompacts(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 1, NumberConfig{Value: 1})
	r.mustAdd(t, 2, NumberConfig{Value: 2})
	r.mustAdd(t, 3, NumberConfig{Value: 3})

	if err := r.e.RemoveNode(2); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	if r.e.Node(2) != nil {
		t.Error("removed node still resolvable")
	}
	// Survivors keep their relative order and stay evaluable.
	r.tick()
	if got := r.out(t, 1); got != 1 {
		t.Errorf("node 1 output = %d, want 1", got)
	}
	if got := r.out(t, 3); got != 3 {
		t.Errorf("node 3 output = %d, want 3", got)
	}

	var ee *EngineError
	err := r.e.RemoveNode(99)
	if !errors.As(err, &ee) || ee.Code != ErrCodeNotFound {
		t.Errorf("RemoveNode(99) = %v, want NOT_FOUND", err)
	}
}

func TestDisableNodeHoldsOutput(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 10, NumberConfig{Value: 7})
	r.tick()
	if got := r.out(t, 10); got != 7 {
		t.Fatalf("output = %d, want 7", got)
	}

	if err := r.e.DisableNode(10); err != nil {
		t.Fatalf("DisableNode: %v", err)
	}
	r.tick()
	if got := r.out(t, 10); got != 7 {
		t.Errorf("disabled node output = %d, want held 7", got)
	}
	if r.e.Node(10).Enabled() {
		t.Error("node still reports enabled")
	}

	if err := r.e.EnableNode(10); err != nil {
		t.Fatalf("EnableNode: %v", err)
	}
	r.tick()
	if got := r.out(t, 10); got != 7 {
		t.Errorf("re-enabled output = %d, want 7", got)
	}
}

func TestResetNodeClearsStateOnly(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 10, CounterConfig{Input: 1, CountEdge: EdgeRising, Min: 0, Max: 100, Step: 1})

	r.tick() // prime
	r.store.Set(1, 1)
	r.tick()
	if got := r.out(t, 10); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}

	if err := r.e.ResetNode(10); err != nil {
		t.Fatalf("ResetNode: %v", err)
	}
	if got := r.out(t, 10); got != 0 {
		t.Errorf("output after reset = %d, want 0", got)
	}
	// Config survives: the counter still counts.
	r.store.Set(1, 0)
	r.tick()
	r.store.Set(1, 1)
	r.tick()
	if got := r.out(t, 10); got != 1 {
		t.Errorf("count after reset = %d, want 1", got)
	}
}

// Registration order is evaluation order: a consumer registered before
// its producer sees the producer's previous-tick value, one tick per
// hop.
func TestEvaluationOrderOneTickPerHop(t *testing.T) {
	r := newRig(t)
	// Consumer first: inverts channel 10.
	r.mustAdd(t, 20, LogicConfig{Op: LogicNot, Inputs: []Channel{10}})
	r.mustAdd(t, 10, NumberConfig{Value: 1})

	r.tick()
	// Node 20 ran before node 10 produced 1; it saw the zero value.
	if got := r.out(t, 20); got != 1 {
		t.Errorf("tick 1: consumer output = %d, want 1 (stale read)", got)
	}

	r.tick()
	if got := r.out(t, 20); got != 0 {
		t.Errorf("tick 2: consumer output = %d, want 0", got)
	}
}

// Producer registered before its consumer propagates the same tick.
func TestEvaluationOrderSameTick(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 10, NumberConfig{Value: 1})
	r.mustAdd(t, 20, LogicConfig{Op: LogicNot, Inputs: []Channel{10}})

	r.tick()
	if got := r.out(t, 20); got != 0 {
		t.Errorf("consumer output = %d, want 0 (fresh read)", got)
	}
}

func TestOutputLinkActuation(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 10, NumberConfig{Value: 1})
	if err := r.e.AddLink(OutputLink{Output: 100, Source: 10, HWIndex: 3, Enabled: true}); err != nil {
		t.Fatalf("AddLink: %v", err)
	}

	r.tick()
	if len(r.driver.calls) != 1 {
		t.Fatalf("actuations = %d, want 1", len(r.driver.calls))
	}
	if got := r.driver.calls[0]; got.index != 3 || !got.on {
		t.Errorf("actuation = %+v, want index 3 on", got)
	}
	// The link mirrors its state into the output channel as 0/1000.
	if got := r.store.Get(100); got != 1000 {
		t.Errorf("mirror channel = %d, want 1000", got)
	}
}

func TestOutputLinkFollowsSource(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 10, SwitchConfig{Input: 1, Mode: SwitchMomentary})
	if err := r.e.AddLink(OutputLink{Output: 100, Source: 10, HWIndex: 0, Enabled: true}); err != nil {
		t.Fatalf("AddLink: %v", err)
	}

	r.tick()
	if r.driver.state[0] {
		t.Error("output on with input low")
	}
	r.store.Set(1, 1)
	r.tick()
	if !r.driver.state[0] {
		t.Error("output off with input high")
	}
	r.store.Set(1, 0)
	r.tick()
	if r.driver.state[0] {
		t.Error("output on after input released")
	}
	if got := r.store.Get(100); got != 0 {
		t.Errorf("mirror channel = %d, want 0", got)
	}
}

func TestAddLinkRejections(t *testing.T) {
	r := newRig(t, WithLinkCapacity(1))

	tests := []struct {
		name string
		link OutputLink
	}{
		{"zero source", OutputLink{Output: 100, Source: 0, HWIndex: 0}},
		{"no-reference source", OutputLink{Output: 100, Source: NoReference, HWIndex: 0}},
		{"hw index out of range", OutputLink{Output: 100, Source: 10, HWIndex: OutputCount}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.e.AddLink(tt.link)
			if CodeOf(err) != ErrCodeBadReference {
				t.Errorf("error = %v, want BAD_REFERENCE", err)
			}
		})
	}

	if err := r.e.AddLink(OutputLink{Output: 100, Source: 10, HWIndex: 0, Enabled: true}); err != nil {
		t.Fatalf("AddLink: %v", err)
	}
	err := r.e.AddLink(OutputLink{Output: 101, Source: 10, HWIndex: 1, Enabled: true})
	if !IsCapacityError(err) {
		t.Errorf("error = %v, want capacity", err)
	}
}

func TestCorruptionGuardSkipsTick(t *testing.T) {
	r := newRig(t, WithNodeCapacity(2))
	r.mustAdd(t, 10, NumberConfig{Value: 1})

	r.e.SetNodeCountForTesting(3)
	r.tick()

	st := r.e.Stats()
	if st.SkippedTicks != 1 {
		t.Errorf("skipped ticks = %d, want 1", st.SkippedTicks)
	}
	if st.Ticks != 0 {
		t.Errorf("ticks = %d, want 0 (skipped pass must not advance the clock)", st.Ticks)
	}
}

func TestClearAll(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 10, NumberConfig{Value: 1})
	if err := r.e.AddLink(OutputLink{Output: 100, Source: 10, HWIndex: 0, Enabled: true}); err != nil {
		t.Fatalf("AddLink: %v", err)
	}
	r.tick()
	r.tick()

	r.e.ClearAll()
	st := r.e.Stats()
	if st.Nodes != 0 || st.Links != 0 {
		t.Errorf("occupancy after clear = %d nodes %d links, want 0/0", st.Nodes, st.Links)
	}
	if st.Ticks != 0 {
		t.Errorf("tick count after clear = %d, want 0", st.Ticks)
	}

	// The freed IDs are immediately reusable.
	if err := r.e.AddNode(10, NumberConfig{Value: 2}); err != nil {
		t.Fatalf("AddNode after clear: %v", err)
	}
}

func TestChannelValueResolution(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 10, NumberConfig{Value: 42})
	r.store.Set(10, 99) // stale external value
	r.store.Set(50, 7)  // pure external channel

	r.tick()
	if got := r.e.ChannelValue(10); got != 42 {
		t.Errorf("node channel = %d, want 42 (node wins over store)", got)
	}
	if got := r.e.ChannelValue(50); got != 7 {
		t.Errorf("external channel = %d, want 7", got)
	}
	if got := r.e.ChannelValue(60); got != 0 {
		t.Errorf("unknown channel = %d, want 0", got)
	}
}

func TestStats(t *testing.T) {
	r := newRig(t)
	r.mustAdd(t, 10, NumberConfig{Value: 1})
	r.tick()
	r.tick()

	st := r.e.Stats()
	if st.Nodes != 1 || st.NodeCapacity != NodeCapacity {
		t.Errorf("nodes = %d/%d, want 1/%d", st.Nodes, st.NodeCapacity, NodeCapacity)
	}
	if st.Ticks != 2 {
		t.Errorf("ticks = %d, want 2", st.Ticks)
	}
	if st.LastDTMS != 100 {
		t.Errorf("last dt = %dms, want 100", st.LastDTMS)
	}
}
