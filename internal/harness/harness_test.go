package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakyury/pmu30/internal/engine"
)

func scenarioPath(name string) string {
	return filepath.Join("testdata", "scenarios", name+".yaml")
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(scenarioPath("basic_link"))
	require.NoError(t, err)

	assert.Equal(t, "basic_link", s.Name)
	assert.Equal(t, 5, s.Ticks)
	assert.Len(t, s.Inputs, 2)
	assert.Len(t, s.Assertions, 4)

	// Config resolves relative to the scenario file.
	assert.FileExists(t, s.Config)
}

func TestLoadScenarioErrors(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "ok.cue")
	require.NoError(t, os.WriteFile(config, []byte("channels: {}\n"), 0o644))

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "config: ok.cue\nticks: 1\nassertions: [{type: output_state, output: 0}]\n",
			want: "name is required",
		},
		{
			name: "missing config",
			yaml: "name: x\nticks: 1\nassertions: [{type: output_state, output: 0}]\n",
			want: "config is required",
		},
		{
			name: "missing assertions",
			yaml: "name: x\nconfig: ok.cue\nticks: 1\n",
			want: "assertions",
		},
		{
			name: "zero ticks",
			yaml: "name: x\nconfig: ok.cue\nticks: 0\nassertions: [{type: output_state, output: 0}]\n",
			want: "ticks must be positive",
		},
		{
			name: "unknown field rejected",
			yaml: "name: x\nconfig: ok.cue\nticks: 1\ntikts: 3\nassertions: [{type: output_state, output: 0}]\n",
			want: "failed to parse YAML",
		},
		{
			name: "unknown assertion type",
			yaml: "name: x\nconfig: ok.cue\nticks: 1\nassertions: [{type: channel_wibble}]\n",
			want: "unknown assertion type",
		},
		{
			name: "input outside run",
			yaml: "name: x\nconfig: ok.cue\nticks: 2\ninputs: [{at_tick: 3, channel: 1, value: 1}]\nassertions: [{type: output_state, output: 0}]\n",
			want: "at_tick 3 outside 1..2",
		},
		{
			name: "input needs channel or name",
			yaml: "name: x\nconfig: ok.cue\nticks: 2\ninputs: [{at_tick: 1, value: 1}]\nassertions: [{type: output_state, output: 0}]\n",
			want: "exactly one of channel or name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "scenario.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunBasicLink(t *testing.T) {
	s, err := LoadScenario(scenarioPath("basic_link"))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Passed, "failures: %v", result.Failures)
	assert.NotEmpty(t, result.BlobHash)
	require.Len(t, result.Trace, 5)

	// The first tick changes nothing, so only the actuation shows up.
	assert.Empty(t, result.Trace[0].Writes)
	assert.Equal(t, []Actuation{{Output: 0, On: false}}, result.Trace[0].Actuations)

	// Tick 2 flips the switch; its mirror channel scales to 0/1000.
	assert.Equal(t, []ChannelWrite{
		{Channel: 10, Value: 1},
		{Channel: 100, Value: 1000},
	}, result.Trace[1].Writes)

	// Steady state records no writes.
	assert.Empty(t, result.Trace[2].Writes)
}

func TestRunWarnPulse(t *testing.T) {
	s, err := LoadScenario(scenarioPath("warn_pulse"))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Passed, "failures: %v", result.Failures)
}

func TestRunReportsFailures(t *testing.T) {
	s, err := LoadScenario(scenarioPath("basic_link"))
	require.NoError(t, err)
	s.Assertions = []Assertion{
		{Type: AssertChannelValue, AtTick: 2, Name: "ignition_on", Value: 42},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "channel 10 = 1, want 42")
}

func TestRunUnknownInputName(t *testing.T) {
	s, err := LoadScenario(scenarioPath("basic_link"))
	require.NoError(t, err)
	s.Inputs = []InputStep{{AtTick: 1, Name: "no_such_channel", Value: 1}}

	_, err = Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown channel "no_such_channel"`)
}

func TestResolveChannel(t *testing.T) {
	names := map[string]engine.Channel{"warn_timer": 20}

	tests := []struct {
		name    string
		channel uint16
		ref     string
		want    engine.Channel
		wantErr string
	}{
		{name: "numeric", channel: 7, want: 7},
		{name: "by name", ref: "warn_timer", want: 20},
		{name: "elapsed", ref: "warn_timer.elapsed", want: engine.SubChannelID(20, engine.SubElapsed)},
		{name: "remaining", ref: "warn_timer.remaining", want: engine.SubChannelID(20, engine.SubRemaining)},
		{name: "state", ref: "warn_timer.state", want: engine.SubChannelID(20, engine.SubState)},
		{name: "unknown name", ref: "bogus", wantErr: `unknown channel "bogus"`},
		{name: "unknown sub-channel", ref: "warn_timer.bogus", wantErr: `unknown sub-channel "bogus"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveChannel(names, tt.channel, tt.ref)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGoldenTraces(t *testing.T) {
	for _, name := range []string{"basic_link", "warn_pulse"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(scenarioPath(name))
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Passed, "failures: %v", result.Failures)
		})
	}
}
