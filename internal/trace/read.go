package trace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound reports a token with no session row.
var ErrSessionNotFound = errors.New("session not found")

// GetSession returns one session by token, including its stored
// config blob.
func (s *Store) GetSession(ctx context.Context, token string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, started_at, blob_hash, config, tick_ms, ticks
		FROM sessions
		WHERE token = ?
	`, token)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, token)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all sessions, oldest first. The config blob is
// omitted; fetch a single session to replay it.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, started_at, blob_hash, tick_ms, ticks
		FROM sessions
		ORDER BY started_at ASC, token ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		var started string
		if err := rows.Scan(&sess.Token, &started, &sess.BlobHash, &sess.TickMS, &sess.Ticks); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.StartedAt, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// ReadInputs returns a session's scripted inputs ordered by tick.
func (s *Store) ReadInputs(ctx context.Context, token string) ([]Input, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tick, channel, value
		FROM inputs
		WHERE session = ?
		ORDER BY tick ASC, rowid ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query inputs: %w", err)
	}
	defer rows.Close()

	inputs := []Input{}
	for rows.Next() {
		var in Input
		if err := rows.Scan(&in.Tick, &in.Channel, &in.Value); err != nil {
			return nil, fmt.Errorf("scan input: %w", err)
		}
		inputs = append(inputs, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inputs: %w", err)
	}

	return inputs, nil
}

// ReadWrites returns a session's recorded channel writes matching the
// filter, in deterministic tick order.
func (s *Store) ReadWrites(ctx context.Context, token string, f Filter) ([]Write, error) {
	clause, args := f.writesSQL(token)
	rows, err := s.db.QueryContext(ctx, clause, args...)
	if err != nil {
		return nil, fmt.Errorf("query writes: %w", err)
	}
	defer rows.Close()

	writes := []Write{}
	for rows.Next() {
		var w Write
		if err := rows.Scan(&w.Tick, &w.Channel, &w.Value); err != nil {
			return nil, fmt.Errorf("scan write: %w", err)
		}
		writes = append(writes, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate writes: %w", err)
	}

	return writes, nil
}

// ReadActuations returns a session's recorded actuations matching the
// filter, ordered by tick then call sequence.
func (s *Store) ReadActuations(ctx context.Context, token string, f Filter) ([]Actuation, error) {
	clause, args := f.actuationsSQL(token)
	rows, err := s.db.QueryContext(ctx, clause, args...)
	if err != nil {
		return nil, fmt.Errorf("query actuations: %w", err)
	}
	defer rows.Close()

	acts := []Actuation{}
	for rows.Next() {
		var a Actuation
		var on int
		if err := rows.Scan(&a.Tick, &a.Seq, &a.Output, &on); err != nil {
			return nil, fmt.Errorf("scan actuation: %w", err)
		}
		a.On = on != 0
		acts = append(acts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actuations: %w", err)
	}

	return acts, nil
}

func scanSession(row *sql.Row) (Session, error) {
	var sess Session
	var started string
	if err := row.Scan(&sess.Token, &started, &sess.BlobHash, &sess.Config, &sess.TickMS, &sess.Ticks); err != nil {
		return Session{}, err
	}
	var err error
	sess.StartedAt, err = time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return Session{}, fmt.Errorf("parse started_at: %w", err)
	}
	return sess, nil
}
