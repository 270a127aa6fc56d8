package store

import (
	"context"
	"fmt"

	"github.com/roach88/roster/internal/membership"
)

// AppendEvent inserts an event into the log.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a duplicate id is
// silently ignored. A different event at an already used seq is an error.
func (s *Store) AppendEvent(ctx context.Context, ev StoredEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events
		(seq, id, batch_id, kind, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		ev.Seq,
		ev.ID,
		ev.BatchID,
		ev.Kind,
		ev.Payload,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// AppendEvents inserts events in a single transaction.
func (s *Store) AppendEvents(ctx context.Context, events []StoredEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append events: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events
		(seq, id, batch_id, kind, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("append events: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, ev.Seq, ev.ID, ev.BatchID, ev.Kind, ev.Payload); err != nil {
			return fmt.Errorf("append events: seq %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append events: commit: %w", err)
	}
	return nil
}

// WriteSnapshot stores idx as the index state after seq.
// Uses ON CONFLICT(seq) DO NOTHING - the first snapshot at a seq wins.
func (s *Store) WriteSnapshot(ctx context.Context, seq int64, idx *membership.Index) error {
	indexJSON, err := marshalIndex(idx)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	digest, err := idx.Digest()
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots
		(seq, digest, index_json)
		VALUES (?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`, seq, digest, indexJSON)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
