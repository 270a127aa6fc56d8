package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/roach88/roster/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustStoredEvent encodes ev at seq in batch, failing the test on error.
func mustStoredEvent(t *testing.T, seq int64, batch string, ev ir.Event) StoredEvent {
	t.Helper()
	stored, err := NewStoredEvent(seq, batch, ev)
	if err != nil {
		t.Fatalf("NewStoredEvent() failed: %v", err)
	}
	return stored
}

// appendAll appends events with consecutive seqs starting at 1.
func appendAll(t *testing.T, s *Store, batch string, events ...ir.Event) {
	t.Helper()
	ctx := context.Background()
	last, err := s.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	for i, ev := range events {
		if err := s.AppendEvent(ctx, mustStoredEvent(t, last+int64(i)+1, batch, ev)); err != nil {
			t.Fatalf("AppendEvent() failed: %v", err)
		}
	}
}

// getTableIndexes returns all index names for a table.
func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to query indexes: %v", err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}
