package engine

import (
	"encoding/binary"
	"log/slog"
)

// Configuration blob wire format, little-endian:
//
//	[2B record count]
//	per record:
//	  [2B channel id][1B record type][1B flags][1B hw device]
//	  [1B hw index][2B source id][4B default value]
//	  [1B name len][1B config size][name bytes][config payload]
//
// Record type bytes. Power outputs sit below the node range; node
// records map 0x20..0x2D onto the fourteen node types in tag order.
const (
	RecordPowerOutput = 0x10
	RecordNodeBase    = 0x20
)

// Record flag bits.
const (
	FlagDisabled = 0x01
)

const recordHeaderSize = 14

// RecordTypeByte returns the wire tag for a node type.
func RecordTypeByte(t NodeType) byte {
	return RecordNodeBase + byte(t) - 1
}

// nodeTypeOf maps a wire tag back to a node type, false for tags
// outside the node range.
func nodeTypeOf(b byte) (NodeType, bool) {
	if b < RecordNodeBase || b > RecordNodeBase+byte(TypeNumber)-1 {
		return 0, false
	}
	return NodeType(b - RecordNodeBase + 1), true
}

// LoadConfig tears down the current tables and loads a configuration
// blob. It returns the number of records applied. The optional
// watchdog callback runs between records so firmware can feed a
// hardware watchdog during long loads.
//
// A blob too short to carry the record count is rejected. A blob
// truncated mid-record keeps every record decoded before the cut and
// returns the partial count without error. Records for channel 0 are
// skipped with the cursor kept aligned; duplicate channel IDs are
// dropped and not counted. Record types outside the power-output and
// node ranges are consumed and counted without building anything.
func (e *Engine) LoadConfig(blob []byte, watchdog func()) (int, error) {
	e.reset()

	if len(blob) < 2 {
		return 0, &EngineError{
			Code:    ErrCodeTruncated,
			Message: "blob shorter than record count prefix",
		}
	}
	count := int(binary.LittleEndian.Uint16(blob))
	cur := 2

	loaded := 0
	for i := 0; i < count; i++ {
		if watchdog != nil {
			watchdog()
		}
		if len(blob)-cur < recordHeaderSize {
			slog.Warn("config blob truncated mid-record",
				"record", i, "loaded", loaded)
			return loaded, nil
		}

		ch := Channel(binary.LittleEndian.Uint16(blob[cur:]))
		typByte := blob[cur+2]
		flags := blob[cur+3]
		hwIndex := int(blob[cur+5])
		source := Channel(binary.LittleEndian.Uint16(blob[cur+6:]))
		def := int32(binary.LittleEndian.Uint32(blob[cur+8:]))
		nameLen := int(blob[cur+12])
		cfgSize := int(blob[cur+13])

		total := recordHeaderSize + nameLen + cfgSize
		if len(blob)-cur < total {
			slog.Warn("config blob truncated mid-record",
				"record", i, "loaded", loaded)
			return loaded, nil
		}
		name := string(blob[cur+recordHeaderSize : cur+recordHeaderSize+nameLen])
		payload := blob[cur+recordHeaderSize+nameLen : cur+total]
		cur += total

		if ch == 0 {
			slog.Warn("skipping record for reserved channel 0", "record", i)
			continue
		}

		switch {
		case typByte == RecordPowerOutput:
			if source == Channel(NoReference) {
				// Unlinked output, nothing to drive.
				continue
			}
			link := OutputLink{
				Output:  ch,
				Source:  source,
				HWIndex: hwIndex,
				Enabled: flags&FlagDisabled == 0,
			}
			if err := e.AddLink(link); err != nil {
				return loaded, err
			}
			loaded++

		default:
			t, ok := nodeTypeOf(typByte)
			if !ok {
				// Record types outside this engine's scope (other
				// subsystems share the blob) are consumed and counted
				// but build nothing.
				slog.Debug("consuming out-of-scope record",
					"record", i, "channel", ch, "type", typByte)
				loaded++
				continue
			}
			cfg, err := ParseConfig(t, payload)
			if err != nil {
				return loaded, err
			}
			if err := e.AddNode(ch, cfg); err != nil {
				if CodeOf(err) == ErrCodeDuplicateChannel {
					slog.Warn("dropping duplicate channel record",
						"record", i, "channel", ch, "name", name)
					continue
				}
				return loaded, err
			}
			if n := e.findNode(ch); n != nil {
				n.out = def
				n.prevOut = def
			}
			if err := e.store.Set(ch, def); err != nil {
				slog.Error("seeding default value failed",
					"channel", ch, "error", err)
			}
			if flags&FlagDisabled != 0 {
				e.DisableNode(ch)
			}
			loaded++
		}
	}
	return loaded, nil
}
