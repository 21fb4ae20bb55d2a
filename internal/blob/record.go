// Package blob implements the configuration blob wire format shared
// by the compiler, the CLI and test fixtures. The engine carries its
// own decoder for the same bytes; this package is the host-side view,
// with names, hashing and record-level access the device never needs.
package blob

import (
	"fmt"

	"github.com/rakyury/pmu30/internal/engine"
)

// FormatVersion identifies the wire layout this package reads and
// writes. Bump on any header or payload layout change.
const FormatVersion = 1

// MaxRecords is the largest record count the 2-byte prefix can carry.
const MaxRecords = 0xFFFF

// Record is one configuration record as it appears on the wire.
type Record struct {
	Channel  engine.Channel
	Type     byte
	Flags    byte
	HWDevice byte
	HWIndex  byte
	Source   engine.Channel
	Default  int32
	Name     string
	Payload  []byte
}

// NodeRecord builds a record for a processing node.
func NodeRecord(ch engine.Channel, name string, cfg engine.Config) Record {
	return Record{
		Channel: ch,
		Type:    engine.RecordTypeByte(cfg.Type()),
		Source:  engine.Channel(engine.NoReference),
		Name:    CanonicalName(name),
		Payload: engine.MarshalConfig(cfg),
	}
}

// OutputRecord builds a record linking a source channel to a physical
// output.
func OutputRecord(ch engine.Channel, name string, source engine.Channel, hwIndex int) Record {
	return Record{
		Channel: ch,
		Type:    engine.RecordPowerOutput,
		HWIndex: byte(hwIndex),
		Source:  source,
		Name:    CanonicalName(name),
	}
}

// NodeType reports the node type for a node record, false for
// non-node records.
func (r Record) NodeType() (engine.NodeType, bool) {
	if r.Type < engine.RecordNodeBase {
		return 0, false
	}
	t := engine.NodeType(r.Type - engine.RecordNodeBase + 1)
	if !t.Valid() {
		return 0, false
	}
	return t, true
}

// IsOutput reports whether the record is a power-output link.
func (r Record) IsOutput() bool {
	return r.Type == engine.RecordPowerOutput
}

// Config decodes the payload of a node record.
func (r Record) Config() (engine.Config, error) {
	t, ok := r.NodeType()
	if !ok {
		return nil, fmt.Errorf("record %d is not a node record (type 0x%02X)", r.Channel, r.Type)
	}
	cfg, err := engine.ParseConfig(t, r.Payload)
	if err != nil {
		return nil, fmt.Errorf("channel %d: %w", r.Channel, err)
	}
	return cfg, nil
}

func (r Record) validate() error {
	if r.Channel == 0 {
		return fmt.Errorf("channel 0 is reserved")
	}
	if len(r.Name) > 255 {
		return fmt.Errorf("channel %d: name %d bytes exceeds 255", r.Channel, len(r.Name))
	}
	if len(r.Payload) > 255 {
		return fmt.Errorf("channel %d: payload %d bytes exceeds 255", r.Channel, len(r.Payload))
	}
	return nil
}
