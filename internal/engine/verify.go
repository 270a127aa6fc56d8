package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/roster/internal/store"
)

// VerifyReport is the outcome of Verify.
type VerifyReport struct {
	Events  int    `json:"events"`
	LastSeq int64  `json:"last_seq"`
	Parents int    `json:"parents"`
	Digest  string `json:"digest"`

	// Deterministic is true when two replays of the log produced the same
	// digest. Both run in this process over the same rows, so this only
	// catches order-dependent folding or unstable reads; it cannot detect
	// drift between the stored form and the live index (see WireStable).
	Deterministic bool `json:"deterministic"`

	// WireStable is true when every stored event decodes and re-encodes to
	// the same payload and id. A mismatch means the log was edited or was
	// written by an encoder that no longer round-trips, and replay may not
	// rebuild what was published.
	WireStable bool     `json:"wire_stable"`
	WireErrors []string `json:"wire_errors,omitempty"`

	HasSnapshot    bool   `json:"has_snapshot"`
	SnapshotSeq    int64  `json:"snapshot_seq,omitempty"`
	SnapshotDigest string `json:"snapshot_digest,omitempty"`
	// SnapshotAgrees is true when the latest snapshot equals a replay of the
	// log up to the snapshot's seq. Vacuously true without a snapshot.
	SnapshotAgrees bool   `json:"snapshot_agrees"`
	SnapshotError  string `json:"snapshot_error,omitempty"`
}

// OK reports whether every check passed.
func (r VerifyReport) OK() bool {
	return r.Deterministic && r.WireStable && r.SnapshotAgrees
}

// maxWireErrors caps the mismatches listed in a report.
const maxWireErrors = 10

// Verify rebuilds the index from the full log twice, ignoring snapshots,
// and checks that both rebuilds agree. Every stored event must re-encode to
// its stored payload and id. When a snapshot exists it is compared against
// a replay truncated at the snapshot's seq.
//
// Only read errors are returned; disagreements are reported in VerifyReport.
func Verify(ctx context.Context, s *store.Store) (VerifyReport, error) {
	if s == nil {
		return VerifyReport{}, newStoreRequiredError("verify")
	}

	first, err := s.ReplayIndex(ctx, 0)
	if err != nil {
		return VerifyReport{}, fmt.Errorf("verify: first replay: %w", err)
	}
	second, err := s.ReplayIndex(ctx, 0)
	if err != nil {
		return VerifyReport{}, fmt.Errorf("verify: second replay: %w", err)
	}

	d1, err := first.Index.Digest()
	if err != nil {
		return VerifyReport{}, fmt.Errorf("verify: %w", err)
	}
	d2, err := second.Index.Digest()
	if err != nil {
		return VerifyReport{}, fmt.Errorf("verify: %w", err)
	}

	report := VerifyReport{
		Events:         first.Events,
		LastSeq:        first.LastSeq,
		Parents:        first.Index.Len(),
		Digest:         d1,
		Deterministic:  d1 == d2 && first.LastSeq == second.LastSeq,
		SnapshotAgrees: true,
	}

	if report.WireErrors, err = checkWire(ctx, s); err != nil {
		return VerifyReport{}, fmt.Errorf("verify: %w", err)
	}
	report.WireStable = len(report.WireErrors) == 0

	snap, err := s.LatestSnapshot(ctx)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		return report, nil
	case err != nil:
		report.HasSnapshot = true
		report.SnapshotAgrees = false
		report.SnapshotError = err.Error()
		return report, nil
	}

	report.HasSnapshot = true
	report.SnapshotSeq = snap.Seq
	report.SnapshotDigest = snap.Digest

	if snap.Seq > report.LastSeq {
		report.SnapshotAgrees = false
		report.SnapshotError = fmt.Sprintf("snapshot seq %d is beyond the last logged seq %d", snap.Seq, report.LastSeq)
		return report, nil
	}

	atSnap := first
	if snap.Seq < report.LastSeq {
		// upTo <= 0 means the whole log, so an empty-log snapshot at seq 0
		// is compared against the empty index directly.
		if snap.Seq == 0 {
			atSnap = store.ReplayResult{}
		} else {
			atSnap, err = s.ReplayIndex(ctx, snap.Seq)
			if err != nil {
				return VerifyReport{}, fmt.Errorf("verify: replay to snapshot: %w", err)
			}
		}
	}
	if atSnap.Index == nil {
		report.SnapshotAgrees = snap.Index.Len() == 0
	} else {
		report.SnapshotAgrees = atSnap.Index.Equal(snap.Index)
	}
	if !report.SnapshotAgrees && report.SnapshotError == "" {
		report.SnapshotError = fmt.Sprintf("snapshot at seq %d disagrees with the log", snap.Seq)
	}
	return report, nil
}

// checkWire re-encodes every stored event and lists those whose payload or
// id differ from what is stored.
func checkWire(ctx context.Context, s *store.Store) ([]string, error) {
	events, err := s.ReadEvents(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}

	var (
		problems []string
		total    int
	)
	report := func(format string, args ...any) {
		total++
		if len(problems) < maxWireErrors {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	for _, row := range events {
		ev, err := row.Event()
		if err != nil {
			report("seq %d: decode: %v", row.Seq, err)
			continue
		}
		again, err := store.NewStoredEvent(row.Seq, row.BatchID, ev)
		switch {
		case err != nil:
			report("seq %d: re-encode: %v", row.Seq, err)
		case again.Payload != row.Payload:
			report("seq %d: payload re-encodes as %s, stored %s", row.Seq, again.Payload, row.Payload)
		case again.ID != row.ID:
			report("seq %d: id %s does not match content", row.Seq, row.ID)
		}
	}

	if total > len(problems) {
		problems = append(problems, fmt.Sprintf("... and %d more", total-len(problems)))
	}
	return problems, nil
}
