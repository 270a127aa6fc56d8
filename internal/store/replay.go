package store

import (
	"context"
	"fmt"

	"github.com/roach88/roster/internal/membership"
)

// ReplayResult is the outcome of folding the event log.
type ReplayResult struct {
	Index   *membership.Index
	LastSeq int64
	Events  int
}

// ReplayIndex folds every logged event with seq <= upTo through
// membership.Reduce, starting from the empty index. Snapshots are ignored.
// upTo <= 0 replays the whole log.
func (s *Store) ReplayIndex(ctx context.Context, upTo int64) (ReplayResult, error) {
	return s.ReplayFrom(ctx, Snapshot{Index: membership.Empty()}, upTo)
}

// ReplayFrom folds the events after from.Seq (and <= upTo when upTo > 0)
// onto from.Index.
func (s *Store) ReplayFrom(ctx context.Context, from Snapshot, upTo int64) (ReplayResult, error) {
	var (
		events []StoredEvent
		err    error
	)
	if upTo > 0 {
		events, err = s.ReadEventsRange(ctx, from.Seq, upTo)
	} else {
		events, err = s.ReadEvents(ctx, from.Seq)
	}
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	result := ReplayResult{Index: from.Index, LastSeq: from.Seq}
	if result.Index == nil {
		result.Index = membership.Empty()
	}
	for _, stored := range events {
		ev, err := stored.Event()
		if err != nil {
			return ReplayResult{}, fmt.Errorf("replay: seq %d: %w", stored.Seq, err)
		}
		result.Index = membership.Reduce(result.Index, ev)
		result.LastSeq = stored.Seq
		result.Events++
	}
	return result, nil
}
