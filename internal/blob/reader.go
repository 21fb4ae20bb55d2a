package blob

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rakyury/pmu30/internal/engine"
)

// ErrTruncated marks a blob cut short mid-record. Decode wraps it
// with the record index so callers can report where the cut happened.
var ErrTruncated = errors.New("blob truncated")

const headerSize = 14

// Decode parses a blob into records. Unlike the engine's loader it is
// strict: truncation is an error, because on the host a short blob
// means a broken build artifact, not a flash glitch.
func Decode(b []byte) ([]Record, error) {
	if len(b) < 2 {
		return nil, fmt.Errorf("record count prefix: %w", ErrTruncated)
	}
	count := int(binary.LittleEndian.Uint16(b))
	cur := 2

	records := make([]Record, 0, count)
	for i := 0; i < count; i++ {
		if len(b)-cur < headerSize {
			return records, fmt.Errorf("record %d header: %w", i, ErrTruncated)
		}
		r := Record{
			Channel:  engine.Channel(binary.LittleEndian.Uint16(b[cur:])),
			Type:     b[cur+2],
			Flags:    b[cur+3],
			HWDevice: b[cur+4],
			HWIndex:  b[cur+5],
			Source:   engine.Channel(binary.LittleEndian.Uint16(b[cur+6:])),
			Default:  int32(binary.LittleEndian.Uint32(b[cur+8:])),
		}
		nameLen := int(b[cur+12])
		cfgSize := int(b[cur+13])
		total := headerSize + nameLen + cfgSize
		if len(b)-cur < total {
			return records, fmt.Errorf("record %d body: %w", i, ErrTruncated)
		}
		r.Name = string(b[cur+headerSize : cur+headerSize+nameLen])
		if cfgSize > 0 {
			r.Payload = append([]byte(nil), b[cur+headerSize+nameLen:cur+total]...)
		}
		cur += total
		records = append(records, r)
	}
	if cur != len(b) {
		return records, fmt.Errorf("%d trailing bytes after record %d", len(b)-cur, count)
	}
	return records, nil
}
