package trace

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rakyury/pmu30/internal/blob"
)

// Session describes one recorded simulator run.
type Session struct {
	Token     string
	StartedAt time.Time
	BlobHash  string
	Config    []byte
	TickMS    int
	Ticks     int
}

// Write is one recorded channel write.
type Write struct {
	Tick    int
	Channel uint16
	Value   int32
}

// Actuation is one recorded output driver call. Seq preserves the
// call order within a tick.
type Actuation struct {
	Tick   int
	Seq    int
	Output int
	On     bool
}

// Input is one scripted external channel write, applied before its
// tick runs.
type Input struct {
	Tick    int
	Channel uint16
	Value   int32
}

// BeginSession creates a session row for a run of the given config
// blob and returns it with a fresh UUID token. The config itself is
// stored so the session can be replayed without the source document.
func (s *Store) BeginSession(ctx context.Context, config []byte, tickMS int) (Session, error) {
	if tickMS <= 0 {
		return Session{}, fmt.Errorf("begin session: tick_ms must be positive, got %d", tickMS)
	}

	sess := Session{
		Token:     uuid.Must(uuid.NewV7()).String(),
		StartedAt: time.Now().UTC(),
		BlobHash:  blob.Hash(config),
		Config:    config,
		TickMS:    tickMS,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, started_at, blob_hash, config, tick_ms, ticks)
		VALUES (?, ?, ?, ?, ?, 0)
	`,
		sess.Token,
		sess.StartedAt.Format(time.RFC3339Nano),
		sess.BlobHash,
		sess.Config,
		sess.TickMS,
	)
	if err != nil {
		return Session{}, fmt.Errorf("begin session: %w", err)
	}

	return sess, nil
}

// FinishSession records the final tick count of a session.
func (s *Store) FinishSession(ctx context.Context, token string, ticks int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ticks = ? WHERE token = ?`, ticks, token)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish session: unknown session %q", token)
	}
	return nil
}

// RecordInput stores one scripted input for a session tick.
func (s *Store) RecordInput(ctx context.Context, token string, in Input) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inputs (session, tick, channel, value)
		VALUES (?, ?, ?, ?)
	`, token, in.Tick, in.Channel, in.Value)
	if err != nil {
		return fmt.Errorf("record input: %w", err)
	}
	return nil
}

// RecordTick stores the writes and actuations one tick produced, in a
// single transaction so a crash never leaves a half-recorded tick.
func (s *Store) RecordTick(ctx context.Context, token string, tick int, writes []Write, acts []Actuation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record tick: %w", err)
	}
	defer tx.Rollback()

	for _, w := range writes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO writes (session, tick, channel, value)
			VALUES (?, ?, ?, ?)
		`, token, tick, w.Channel, w.Value); err != nil {
			return fmt.Errorf("record tick %d write: %w", tick, err)
		}
	}

	for i, a := range acts {
		on := 0
		if a.On {
			on = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO actuations (session, tick, seq, output, on_state)
			VALUES (?, ?, ?, ?, ?)
		`, token, tick, i, a.Output, on); err != nil {
			return fmt.Errorf("record tick %d actuation: %w", tick, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record tick %d: %w", tick, err)
	}
	return nil
}
