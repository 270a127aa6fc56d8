package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNoSnapshot is returned by LatestSnapshot when no snapshot was written.
var ErrNoSnapshot = errors.New("no snapshot")

// ReadEvents returns all events with seq > afterSeq ordered by seq ASC.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadEvents(ctx context.Context, afterSeq int64) ([]StoredEvent, error) {
	return s.queryEvents(ctx, `
		SELECT seq, id, batch_id, kind, payload
		FROM events
		WHERE seq > ?
		ORDER BY seq ASC
	`, afterSeq)
}

// ReadEventsRange returns events with afterSeq < seq <= upTo ordered by seq ASC.
func (s *Store) ReadEventsRange(ctx context.Context, afterSeq, upTo int64) ([]StoredEvent, error) {
	return s.queryEvents(ctx, `
		SELECT seq, id, batch_id, kind, payload
		FROM events
		WHERE seq > ? AND seq <= ?
		ORDER BY seq ASC
	`, afterSeq, upTo)
}

// ReadBatch returns the events of one batch ordered by seq ASC.
func (s *Store) ReadBatch(ctx context.Context, batchID string) ([]StoredEvent, error) {
	return s.queryEvents(ctx, `
		SELECT seq, id, batch_id, kind, payload
		FROM events
		WHERE batch_id = ?
		ORDER BY seq ASC
	`, batchID)
}

// ReadEvent retrieves a single event by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadEvent(ctx context.Context, id string) (StoredEvent, error) {
	var ev StoredEvent
	err := s.db.QueryRowContext(ctx, `
		SELECT seq, id, batch_id, kind, payload
		FROM events
		WHERE id = ?
	`, id).Scan(&ev.Seq, &ev.ID, &ev.BatchID, &ev.Kind, &ev.Payload)
	if err != nil {
		return StoredEvent{}, err
	}
	return ev, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]StoredEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []StoredEvent{}
	for rows.Next() {
		var ev StoredEvent
		if err := rows.Scan(&ev.Seq, &ev.ID, &ev.BatchID, &ev.Kind, &ev.Payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ListBatches returns batch ids in the order their first event was applied.
func (s *Store) ListBatches(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id
		FROM events
		GROUP BY batch_id
		ORDER BY MIN(seq) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	batches := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return batches, nil
}

// LastSeq returns the highest seq in the log, or 0 for an empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// CountEvents returns the number of events in the log.
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// KindCounts returns the number of logged events per kind.
func (s *Store) KindCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM events GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("kind counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan kind count: %w", err)
		}
		counts[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kind counts: %w", err)
	}
	return counts, nil
}

// LatestSnapshot returns the snapshot with the highest seq.
// Returns ErrNoSnapshot if none exists. The stored digest is verified
// against the decoded index.
func (s *Store) LatestSnapshot(ctx context.Context) (Snapshot, error) {
	var (
		snap      Snapshot
		indexJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT seq, digest, index_json
		FROM snapshots
		ORDER BY seq DESC
		LIMIT 1
	`).Scan(&snap.Seq, &snap.Digest, &indexJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}

	idx, err := unmarshalIndex(indexJSON)
	if err != nil {
		return Snapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	digest, err := idx.Digest()
	if err != nil {
		return Snapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	if digest != snap.Digest {
		return Snapshot{}, fmt.Errorf("latest snapshot: seq %d digest mismatch", snap.Seq)
	}
	snap.Index = idx
	return snap, nil
}
