package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: a channel-definition
// document, a scripted input timeline, and assertions over channel
// values and physical outputs.
type Scenario struct {
	// Name uniquely identifies this scenario (also the golden file name).
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is the path to the CUE channel-definition document,
	// relative to the scenario file.
	Config string `yaml:"config"`

	// TickMS is the simulated tick interval in milliseconds (default 100).
	TickMS int `yaml:"tick_ms,omitempty"`

	// Ticks is the number of ticks to run.
	Ticks int `yaml:"ticks"`

	// Inputs scripts external channel writes. Each step is applied
	// immediately before the numbered tick runs.
	Inputs []InputStep `yaml:"inputs,omitempty"`

	// Assertions validate channel values and output states, either at
	// a specific tick or after the final one.
	Assertions []Assertion `yaml:"assertions"`
}

// InputStep writes one value into the external channel registry before
// tick AtTick (1-based) runs.
type InputStep struct {
	AtTick int `yaml:"at_tick"`

	// Channel addresses the target numerically; Name addresses it by
	// its document name. Exactly one must be set.
	Channel uint16 `yaml:"channel,omitempty"`
	Name    string `yaml:"name,omitempty"`

	Value int32 `yaml:"value"`
}

// Assertion validates simulator state.
type Assertion struct {
	// Type selects the check:
	// - "channel_value": a channel reads Value
	// - "output_state": physical output Output is On
	// - "actuation_count": the driver saw Count calls for Output
	Type string `yaml:"type"`

	// AtTick runs the check right after the numbered tick; 0 means
	// after the final tick.
	AtTick int `yaml:"at_tick,omitempty"`

	Channel uint16 `yaml:"channel,omitempty"`
	Name    string `yaml:"name,omitempty"`
	Value   int32  `yaml:"value,omitempty"`

	Output int  `yaml:"output,omitempty"`
	On     bool `yaml:"on,omitempty"`

	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertChannelValue   = "channel_value"
	AssertOutputState    = "output_state"
	AssertActuationCount = "actuation_count"
)

// LoadScenario reads and parses a scenario YAML file. The config path
// is resolved relative to the scenario file. Unknown fields are
// rejected so a typo fails loudly instead of silently skipping a
// check.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Config != "" && !filepath.IsAbs(scenario.Config) {
		scenario.Config = filepath.Join(filepath.Dir(path), scenario.Config)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Config == "" {
		return fmt.Errorf("config is required")
	}
	if _, err := os.Stat(s.Config); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", s.Config)
	}
	if s.Ticks <= 0 {
		return fmt.Errorf("ticks must be positive")
	}
	if s.TickMS < 0 {
		return fmt.Errorf("tick_ms must not be negative")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Inputs {
		if step.AtTick < 1 || step.AtTick > s.Ticks {
			return fmt.Errorf("inputs[%d]: at_tick %d outside 1..%d", i, step.AtTick, s.Ticks)
		}
		if (step.Channel == 0) == (step.Name == "") {
			return fmt.Errorf("inputs[%d]: exactly one of channel or name is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, s, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, s *Scenario, a *Assertion) error {
	if a.AtTick < 0 || a.AtTick > s.Ticks {
		return fmt.Errorf("assertions[%d]: at_tick %d outside 0..%d", index, a.AtTick, s.Ticks)
	}

	switch a.Type {
	case AssertChannelValue:
		if (a.Channel == 0) == (a.Name == "") {
			return fmt.Errorf("assertions[%d]: exactly one of channel or name is required for channel_value", index)
		}
	case AssertOutputState:
		if a.Output < 0 {
			return fmt.Errorf("assertions[%d]: output must not be negative", index)
		}
	case AssertActuationCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
