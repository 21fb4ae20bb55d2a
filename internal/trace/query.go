package trace

import "strings"

// Filter narrows trace queries. Zero-valued fields are ignored;
// FromTick/ToTick bound the tick range inclusively, Channel restricts
// writes and Output restricts actuations. Tick 0 never occurs in a
// recording (ticks are 1-based), so 0 safely means unset.
type Filter struct {
	FromTick int
	ToTick   int

	// Channel filters writes; nil matches all channels.
	Channel *uint16

	// Output filters actuations; nil matches all outputs.
	Output *int
}

// writesSQL compiles the filter into the writes query.
func (f Filter) writesSQL(token string) (string, []any) {
	var b strings.Builder
	b.WriteString(`
		SELECT tick, channel, value
		FROM writes
		WHERE session = ?`)
	args := []any{token}

	args = f.tickRange(&b, args)
	if f.Channel != nil {
		b.WriteString(" AND channel = ?")
		args = append(args, *f.Channel)
	}

	b.WriteString(" ORDER BY tick ASC, rowid ASC")
	return b.String(), args
}

// actuationsSQL compiles the filter into the actuations query.
func (f Filter) actuationsSQL(token string) (string, []any) {
	var b strings.Builder
	b.WriteString(`
		SELECT tick, seq, output, on_state
		FROM actuations
		WHERE session = ?`)
	args := []any{token}

	args = f.tickRange(&b, args)
	if f.Output != nil {
		b.WriteString(" AND output = ?")
		args = append(args, *f.Output)
	}

	b.WriteString(" ORDER BY tick ASC, seq ASC")
	return b.String(), args
}

func (f Filter) tickRange(b *strings.Builder, args []any) []any {
	if f.FromTick > 0 {
		b.WriteString(" AND tick >= ?")
		args = append(args, f.FromTick)
	}
	if f.ToTick > 0 {
		b.WriteString(" AND tick <= ?")
		args = append(args, f.ToTick)
	}
	return args
}
