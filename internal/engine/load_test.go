package engine

import (
	"encoding/binary"
	"testing"
)

type testRecord struct {
	ch      Channel
	typ     byte
	flags   byte
	hwIndex byte
	source  Channel
	def     int32
	name    string
	payload []byte
}

func nodeRecord(ch Channel, cfg Config) testRecord {
	return testRecord{
		ch:      ch,
		typ:     RecordTypeByte(cfg.Type()),
		source:  NoReference,
		payload: MarshalConfig(cfg),
	}
}

func outputRecord(ch Channel, source Channel, hwIndex byte) testRecord {
	return testRecord{ch: ch, typ: RecordPowerOutput, source: source, hwIndex: hwIndex}
}

func buildBlob(records ...testRecord) []byte {
	b := binary.LittleEndian.AppendUint16(nil, uint16(len(records)))
	for _, r := range records {
		b = binary.LittleEndian.AppendUint16(b, uint16(r.ch))
		b = append(b, r.typ, r.flags, 0, r.hwIndex)
		b = binary.LittleEndian.AppendUint16(b, uint16(r.source))
		b = binary.LittleEndian.AppendUint32(b, uint32(r.def))
		b = append(b, byte(len(r.name)), byte(len(r.payload)))
		b = append(b, r.name...)
		b = append(b, r.payload...)
	}
	return b
}

func TestLoadConfig(t *testing.T) {
	r := newRig(t)
	blob := buildBlob(
		nodeRecord(10, NumberConfig{Value: 5}),
		nodeRecord(20, LogicConfig{Op: LogicNot, Inputs: []Channel{10}}),
		outputRecord(100, 20, 2),
	)

	n, err := r.e.LoadConfig(blob, nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if n != 3 {
		t.Errorf("loaded = %d, want 3", n)
	}

	st := r.e.Stats()
	if st.Nodes != 2 || st.Links != 1 {
		t.Errorf("occupancy = %d nodes %d links, want 2/1", st.Nodes, st.Links)
	}

	r.tick()
	if got := r.out(t, 10); got != 5 {
		t.Errorf("number output = %d, want 5", got)
	}
	if got := r.out(t, 20); got != 0 {
		t.Errorf("inverter output = %d, want 0", got)
	}
	if r.driver.state[2] {
		t.Error("physical output 2 on, want off")
	}
}

func TestLoadConfigReplacesPrevious(t *testing.T) {
	r := newRig(t)
	if _, err := r.e.LoadConfig(buildBlob(nodeRecord(10, NumberConfig{Value: 1})), nil); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if _, err := r.e.LoadConfig(buildBlob(nodeRecord(20, NumberConfig{Value: 2})), nil); err != nil {
		t.Fatalf("second load: %v", err)
	}

	st := r.e.Stats()
	if st.Nodes != 1 {
		t.Errorf("nodes = %d, want 1 (full reset before load)", st.Nodes)
	}
	if r.e.Node(10) != nil {
		t.Error("node from the previous configuration survived reload")
	}
	if st.Ticks != 0 {
		t.Errorf("ticks = %d, want 0 after reload", st.Ticks)
	}
}

// Loading the same blob twice yields the same table contents and the
// same tick behavior.
func TestLoadConfigIdempotent(t *testing.T) {
	blob := buildBlob(
		nodeRecord(10, NumberConfig{Value: 5}),
		nodeRecord(20, MathConfig{Op: MathScale, Inputs: []Channel{10}, Scale: 2000}),
		outputRecord(100, 20, 0),
	)

	outputs := func() []int32 {
		r := newRig(t)
		if _, err := r.e.LoadConfig(blob, nil); err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if _, err := r.e.LoadConfig(blob, nil); err != nil {
			t.Fatalf("reload: %v", err)
		}
		r.tick()
		r.tick()
		return []int32{r.out(t, 10), r.out(t, 20), r.store.Get(100)}
	}

	first := outputs()
	second := outputs()
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("run mismatch at %d: %d vs %d", i, first[i], second[i])
		}
	}
	if first[1] != 10 {
		t.Errorf("scaled output = %d, want 10", first[1])
	}
	if first[2] != 1000 {
		t.Errorf("mirror channel = %d, want 1000", first[2])
	}
}

func TestLoadConfigSkipsChannelZero(t *testing.T) {
	r := newRig(t)
	blob := buildBlob(
		nodeRecord(0, NumberConfig{Value: 1}),
		nodeRecord(10, NumberConfig{Value: 2}),
	)

	n, err := r.e.LoadConfig(blob, nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if n != 1 {
		t.Errorf("loaded = %d, want 1", n)
	}
	// The cursor stayed aligned: the record after the skip decoded.
	r.tick()
	if got := r.out(t, 10); got != 2 {
		t.Errorf("output = %d, want 2", got)
	}
}

func TestLoadConfigDropsDuplicates(t *testing.T) {
	r := newRig(t)
	blob := buildBlob(
		nodeRecord(10, NumberConfig{Value: 1}),
		nodeRecord(10, NumberConfig{Value: 99}),
		nodeRecord(20, NumberConfig{Value: 2}),
	)

	n, err := r.e.LoadConfig(blob, nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if n != 2 {
		t.Errorf("loaded = %d, want 2 (duplicate not counted)", n)
	}
	r.tick()
	if got := r.out(t, 10); got != 1 {
		t.Errorf("output = %d, want 1 (first record wins)", got)
	}
}

func TestLoadConfigTruncatedMidRecord(t *testing.T) {
	r := newRig(t)
	blob := buildBlob(
		nodeRecord(10, NumberConfig{Value: 1}),
		nodeRecord(20, NumberConfig{Value: 2}),
	)

	n, err := r.e.LoadConfig(blob[:len(blob)-3], nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if n != 1 {
		t.Errorf("loaded = %d, want 1 (records before the cut)", n)
	}
	if r.e.Node(20) != nil {
		t.Error("truncated record materialized a node")
	}
}

func TestLoadConfigShortBlob(t *testing.T) {
	r := newRig(t)
	for _, blob := range [][]byte{nil, {}, {0x01}} {
		if _, err := r.e.LoadConfig(blob, nil); CodeOf(err) != ErrCodeTruncated {
			t.Errorf("LoadConfig(%v) error = %v, want TRUNCATED_CONFIG", blob, err)
		}
	}
}

func TestLoadConfigSeedsDefaults(t *testing.T) {
	r := newRig(t)
	rec := nodeRecord(10, FlipFlopConfig{Set: 1, Reset: 2})
	rec.def = 1
	n, err := r.e.LoadConfig(buildBlob(rec), nil)
	if err != nil || n != 1 {
		t.Fatalf("LoadConfig = %d, %v", n, err)
	}
	if got := r.out(t, 10); got != 1 {
		t.Errorf("default output = %d, want 1", got)
	}
	if got := r.store.Get(10); got != 1 {
		t.Errorf("seeded store value = %d, want 1", got)
	}
}

func TestLoadConfigDisabledFlag(t *testing.T) {
	r := newRig(t)
	rec := nodeRecord(10, NumberConfig{Value: 5})
	rec.flags = FlagDisabled
	if _, err := r.e.LoadConfig(buildBlob(rec), nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	r.tick()
	if got := r.out(t, 10); got != 0 {
		t.Errorf("disabled node output = %d, want held default 0", got)
	}
	if r.e.Node(10).Enabled() {
		t.Error("node reports enabled")
	}
}

func TestLoadConfigCountsOutOfScopeRecordType(t *testing.T) {
	r := newRig(t)
	foreign := testRecord{ch: 30, typ: 0x7F, payload: []byte{1, 2, 3}}
	blob := buildBlob(
		foreign,
		nodeRecord(10, NumberConfig{Value: 2}),
	)

	n, err := r.e.LoadConfig(blob, nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if n != 2 {
		t.Errorf("loaded = %d, want 2 (out-of-scope record still counted)", n)
	}
	if r.e.Node(30) != nil {
		t.Error("out-of-scope record built a node")
	}
	r.tick()
	if got := r.out(t, 10); got != 2 {
		t.Errorf("output = %d, want 2 (cursor aligned past foreign record)", got)
	}
}

func TestLoadConfigUnlinkedOutputSkipped(t *testing.T) {
	r := newRig(t)
	blob := buildBlob(outputRecord(100, NoReference, 0))
	n, err := r.e.LoadConfig(blob, nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if n != 0 {
		t.Errorf("loaded = %d, want 0", n)
	}
	if got := r.e.Stats().Links; got != 0 {
		t.Errorf("links = %d, want 0", got)
	}
}

func TestLoadConfigFeedsWatchdog(t *testing.T) {
	r := newRig(t)
	blob := buildBlob(
		nodeRecord(10, NumberConfig{Value: 1}),
		nodeRecord(20, NumberConfig{Value: 2}),
		nodeRecord(30, NumberConfig{Value: 3}),
	)

	fed := 0
	if _, err := r.e.LoadConfig(blob, func() { fed++ }); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if fed != 3 {
		t.Errorf("watchdog fed %d times, want 3", fed)
	}
}

func TestLoadConfigBadPayload(t *testing.T) {
	r := newRig(t)
	rec := nodeRecord(10, TimerConfig{Mode: TimerPulse, Trigger: 1, TrigEdge: EdgeRising, DelayMS: 500})
	rec.payload = rec.payload[:3] // short for its type layout
	_, err := r.e.LoadConfig(buildBlob(rec), nil)
	if CodeOf(err) != ErrCodeBadConfig {
		t.Errorf("error = %v, want INVALID_CONFIG", err)
	}
}
