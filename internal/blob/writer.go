package blob

import (
	"encoding/binary"
	"fmt"

	"github.com/rakyury/pmu30/internal/engine"
)

// Writer accumulates records and encodes them as a blob. Records are
// emitted in the order they were added; the compiler is responsible
// for deterministic ordering.
type Writer struct {
	records []Record
	seen    map[engine.Channel]bool
}

func NewWriter() *Writer {
	return &Writer{seen: make(map[engine.Channel]bool)}
}

// Add appends a record. Duplicate channel IDs are rejected here so a
// malformed blob never leaves the host.
func (w *Writer) Add(r Record) error {
	if err := r.validate(); err != nil {
		return err
	}
	if w.seen[r.Channel] {
		return fmt.Errorf("channel %d: duplicate record", r.Channel)
	}
	if len(w.records) >= MaxRecords {
		return fmt.Errorf("record count exceeds %d", MaxRecords)
	}
	w.seen[r.Channel] = true
	w.records = append(w.records, r)
	return nil
}

// Len reports the number of records added so far.
func (w *Writer) Len() int { return len(w.records) }

// Bytes encodes the accumulated records.
func (w *Writer) Bytes() []byte {
	b := binary.LittleEndian.AppendUint16(nil, uint16(len(w.records)))
	for _, r := range w.records {
		b = appendRecord(b, r)
	}
	return b
}

func appendRecord(b []byte, r Record) []byte {
	b = binary.LittleEndian.AppendUint16(b, uint16(r.Channel))
	b = append(b, r.Type, r.Flags, r.HWDevice, r.HWIndex)
	b = binary.LittleEndian.AppendUint16(b, uint16(r.Source))
	b = binary.LittleEndian.AppendUint32(b, uint32(r.Default))
	b = append(b, byte(len(r.Name)), byte(len(r.Payload)))
	b = append(b, r.Name...)
	b = append(b, r.Payload...)
	return b
}

// Encode is a convenience for building a blob from a record slice.
func Encode(records []Record) ([]byte, error) {
	w := NewWriter()
	for _, r := range records {
		if err := w.Add(r); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}
