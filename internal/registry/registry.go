// Package registry provides the channel value store the engine reads
// external inputs from and mirrors its outputs into. On the device
// this is a fixed array shared with the I/O layer; here it is an
// in-memory map serving the simulator, the CLI and tests.
package registry

import (
	"sort"

	"github.com/rakyury/pmu30/internal/engine"
)

// Memory is a last-writer-wins channel value store. It is not safe
// for concurrent use; the engine's single-writer tick loop is the
// only mutator during a run.
type Memory struct {
	values map[engine.Channel]int32
}

func NewMemory() *Memory {
	return &Memory{values: make(map[engine.Channel]int32)}
}

// Get returns the stored value, 0 for channels never written.
func (m *Memory) Get(ch engine.Channel) int32 {
	return m.values[ch]
}

func (m *Memory) Set(ch engine.Channel, v int32) error {
	m.values[ch] = v
	return nil
}

// Reset clears every stored value.
func (m *Memory) Reset() {
	clear(m.values)
}

// Snapshot returns all non-zero channels in ascending ID order.
func (m *Memory) Snapshot() []ChannelValue {
	out := make([]ChannelValue, 0, len(m.values))
	for ch, v := range m.values {
		if v != 0 {
			out = append(out, ChannelValue{Channel: ch, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

// ChannelValue is one entry of a registry snapshot.
type ChannelValue struct {
	Channel engine.Channel
	Value   int32
}

var _ engine.ChannelStore = (*Memory)(nil)
