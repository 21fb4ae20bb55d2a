package engine

import (
	"reflect"
	"testing"
)

func TestConfigCodecRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"math", MathConfig{Op: MathScale, Inputs: []Channel{1, 2}, Scale: 2500, Offset: -100, Min: 0, Max: 0}},
		{"compare", CompareConfig{Op: CmpInRange, InputA: 7, Min: -5, Max: 5}},
		{"logic", LogicConfig{Op: LogicXor, Inputs: []Channel{1, 2, 3}}},
		{"timer", TimerConfig{Mode: TimerPulse, Trigger: 4, TrigEdge: EdgeFalling, DelayMS: 1500}},
		{"pid", PIDConfig{Process: 1, Setpoint: 10, Kp: 2000, Ki: 500, Kd: 100, SampleMS: 100, DAlpha: 300, Reversed: true, OutMin: -1000, OutMax: 1000}},
		{"hysteresis", HysteresisConfig{Input: 3, On: 700, Off: 300}},
		{"table", Table1DConfig{Input: 2, Points: []TablePoint{{X: 0, Y: 0}, {X: 100, Y: 1000}}}},
		{"counter", CounterConfig{Input: 1, Reset: 2, CountEdge: EdgeBoth, Min: -10, Max: 10, Step: 2, Wrap: true}},
		{"number", NumberConfig{Value: -123456}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfig(tt.cfg.Type(), MarshalConfig(tt.cfg))
			if err != nil {
				t.Fatalf("ParseConfig: %v", err)
			}
			if !reflect.DeepEqual(got, tt.cfg) {
				t.Errorf("round trip = %#v, want %#v", got, tt.cfg)
			}
		})
	}
}

func TestParseConfigShortPayload(t *testing.T) {
	full := MarshalConfig(TimerConfig{Mode: TimerPulse, Trigger: 1, TrigEdge: EdgeRising, DelayMS: 500})
	_, err := ParseConfig(TypeTimer, full[:len(full)-1])
	if CodeOf(err) != ErrCodeBadConfig {
		t.Errorf("error = %v, want INVALID_CONFIG", err)
	}
}

func TestParseConfigUnknownType(t *testing.T) {
	_, err := ParseConfig(NodeType(99), nil)
	if CodeOf(err) != ErrCodeUnknownType {
		t.Errorf("error = %v, want UNKNOWN_NODE_TYPE", err)
	}
}

func TestParseConfigBoundsCounts(t *testing.T) {
	// A math payload claiming zero inputs is rejected before any
	// channel bytes are read.
	_, err := ParseConfig(TypeMath, []byte{byte(MathAdd), 0})
	if CodeOf(err) != ErrCodeBadConfig {
		t.Errorf("error = %v, want INVALID_CONFIG", err)
	}
	_, err = ParseConfig(TypeTable1D, []byte{1, 0, 1})
	if CodeOf(err) != ErrCodeBadConfig {
		t.Errorf("table error = %v, want INVALID_CONFIG", err)
	}
}
