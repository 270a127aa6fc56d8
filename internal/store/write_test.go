package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roster/internal/ir"
	"github.com/roach88/roster/internal/membership"
)

func TestAppendEvent_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := mustStoredEvent(t, 1, "batch-1", ir.MemberAdded{ParentID: "id", ChildID: "user_id"})
	require.NoError(t, s.AppendEvent(ctx, ev))

	got, err := s.ReadEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev, got)
	assert.Equal(t, `{"child_id":"user_id","parent_id":"id"}`, got.Payload)
}

func TestAppendEvent_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := mustStoredEvent(t, 1, "batch-1", ir.SessionEnded{})
	require.NoError(t, s.AppendEvent(ctx, ev))
	require.NoError(t, s.AppendEvent(ctx, ev))

	n, err := s.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAppendEvent_SeqConflict(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendEvent(ctx, mustStoredEvent(t, 1, "b", ir.SessionEnded{})))
	err := s.AppendEvent(ctx, mustStoredEvent(t, 1, "b", ir.MemberAdded{ParentID: "p", ChildID: "c"}))
	assert.Error(t, err, "a different event at the same seq must be rejected")
}

func TestAppendEvents_Transactional(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	good := mustStoredEvent(t, 1, "b", ir.MemberAdded{ParentID: "p", ChildID: "c"})
	conflicting := mustStoredEvent(t, 1, "b", ir.SessionEnded{})

	err := s.AppendEvents(ctx, []StoredEvent{good, conflicting})
	require.Error(t, err)

	n, err := s.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "failed batch must not leave partial writes")

	require.NoError(t, s.AppendEvents(ctx, []StoredEvent{good}))
	n, err = s.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWriteSnapshot_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	idx := membership.NewIndex(map[string][]string{
		"id":       {"old_user_id", "user_id"},
		"other_id": {"other_user_id"},
	})
	require.NoError(t, s.WriteSnapshot(ctx, 7, idx))

	snap, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), snap.Seq)
	assert.True(t, idx.Equal(snap.Index))

	digest, err := idx.Digest()
	require.NoError(t, err)
	assert.Equal(t, digest, snap.Digest)
}

func TestWriteSnapshot_FirstWriteWins(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := membership.NewIndex(map[string][]string{"a": {"1"}})
	require.NoError(t, s.WriteSnapshot(ctx, 3, first))
	require.NoError(t, s.WriteSnapshot(ctx, 3, membership.Empty()))

	snap, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, first.Equal(snap.Index))
}

func TestLatestSnapshot_PicksHighestSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteSnapshot(ctx, 10, membership.NewIndex(map[string][]string{"late": {"x"}})))
	require.NoError(t, s.WriteSnapshot(ctx, 2, membership.NewIndex(map[string][]string{"early": {"x"}})))

	snap, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), snap.Seq)
	assert.Equal(t, []string{"late"}, snap.Index.Parents())
}

func TestLatestSnapshot_None(t *testing.T) {
	s := createTestStore(t)
	_, err := s.LatestSnapshot(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestLatestSnapshot_DigestMismatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.db.Exec(`INSERT INTO snapshots (seq, digest, index_json) VALUES (1, 'bogus', '{"a":["1"]}')`)
	require.NoError(t, err)

	_, err = s.LatestSnapshot(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest mismatch")
}
