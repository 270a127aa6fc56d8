package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/roster/internal/ir"
	"github.com/roach88/roster/internal/membership"
	"github.com/roach88/roster/internal/store"
)

// Engine is the single-writer membership event loop.
//
// The engine applies events in FIFO order: each event is stamped with the
// next logical seq, appended to the store, folded into the current index
// with membership.Reduce, and only then published to readers.
//
// CRITICAL: All mutations happen in one goroutine, either the Run loop or a
// caller that owns the engine exclusively and uses Apply directly.
//
// Thread-safety model:
//   - Enqueue(), Current(), NewBatch(): safe from any goroutine
//   - Run(), Apply(), ApplyBatch(), Recover(), Snapshot(): single writer only
//   - OnChange(): register subscribers before starting the writer
type Engine struct {
	store    *store.Store // nil for a memory-only engine
	clock    *Clock
	queue    *eventQueue
	batchGen BatchIDGenerator
	logger   *slog.Logger

	current atomic.Pointer[membership.Index]

	snapshotEvery int64
	sinceSnapshot int64

	mu        sync.Mutex
	listeners []ChangeFunc
}

// ChangeFunc observes an index transition. changed lists the parents whose
// member sets were replaced. Called on the writer goroutine, so it must not
// block.
type ChangeFunc func(prev, next *membership.Index, changed []string)

// Applied describes the outcome of applying one event.
type Applied struct {
	Seq     int64
	ID      string
	BatchID string
	Kind    string
	// Changed is false when the reducer returned the previous index itself.
	Changed bool
	// Parents lists the parents whose member sets changed, sorted.
	Parents []string
}

// BatchResult summarizes ApplyBatch.
type BatchResult struct {
	BatchID  string
	Applied  []Applied
	Changed  int
	FirstSeq int64
	LastSeq  int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithSnapshotEvery writes a snapshot after every n applied events.
// n <= 0 disables automatic snapshots (the default).
func WithSnapshotEvery(n int) Option {
	return func(e *Engine) {
		e.snapshotEvery = int64(n)
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithInitial sets the index the engine starts from before any event.
func WithInitial(idx *membership.Index) Option {
	return func(e *Engine) {
		if idx != nil {
			e.current.Store(idx)
		}
	}
}

// WithClock sets a pre-configured clock, for resuming at a known seq.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// New creates an Engine. s may be nil, in which case events are reduced in
// memory only and Recover/Snapshot return STORE_REQUIRED errors.
func New(s *store.Store, gen BatchIDGenerator, opts ...Option) *Engine {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	e := &Engine{
		store:    s,
		clock:    NewClock(),
		queue:    newEventQueue(),
		batchGen: gen,
		logger:   slog.Default(),
	}
	e.current.Store(membership.Empty())

	for _, opt := range opts {
		opt(e)
	}
	indexParents.Set(float64(e.Current().Len()))
	return e
}

// Current returns the latest published index.
// Thread-safe: may be called from any goroutine.
func (e *Engine) Current() *membership.Index {
	return e.current.Load()
}

// Seq returns the seq of the last applied event.
func (e *Engine) Seq() int64 {
	return e.clock.Current()
}

// NewBatch generates a new batch id.
// Thread-safe: may be called from any goroutine.
func (e *Engine) NewBatch() string {
	return e.batchGen.Generate()
}

// OnChange registers fn to be called after each event that changes the index.
func (e *Engine) OnChange(fn ChangeFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Enqueue submits an event for processing by the Run loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(s Submission) bool {
	return e.queue.Enqueue(s)
}

// Run starts the single-writer event loop.
// Blocks until context is cancelled or Stop() is called. Submissions already
// queued when Stop() is called are still applied.
//
// ERROR HANDLING: On failure, the error is logged with the submission's
// context and processing continues. The failed event was never published, so
// the current index still matches the log.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "seq", e.clock.Current())

	for {
		sub, ok := e.queue.TryDequeue()
		if ok {
			if _, err := e.Apply(ctx, sub); err != nil {
				e.logSubmissionError(sub, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed, so an
			// empty queue here means shutdown.
			if e.queue.Len() == 0 && e.queueClosed() {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine.
// Closes the queue, which will cause Run() to return once it drains.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) queueClosed() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}

// Apply stamps, persists, reduces and publishes one event.
// CRITICAL: single writer only.
//
// The event is appended to the store before the new index is published; a
// persist failure leaves both the index and the clock unchanged.
func (e *Engine) Apply(ctx context.Context, sub Submission) (Applied, error) {
	stored, err := e.stage(sub, e.clock.Peek())
	if err != nil {
		return Applied{}, err
	}

	if e.store != nil {
		if err := e.store.AppendEvent(ctx, stored); err != nil {
			return Applied{}, persistError(stored, err)
		}
	}
	return e.publish(ctx, sub, stored), nil
}

// ApplyBatch applies events under one fresh batch id, all or nothing.
//
// Every event is validated and encoded first, then the whole batch is
// appended in one transaction. Only after the commit are the events folded
// into the index, so a bad event or a failed write leaves the log, the
// index and the clock as they were.
func (e *Engine) ApplyBatch(ctx context.Context, events []ir.Event) (BatchResult, error) {
	res := BatchResult{
		BatchID: e.NewBatch(),
		Applied: make([]Applied, 0, len(events)),
	}
	if len(events) == 0 {
		return res, nil
	}

	first := e.clock.Peek()
	subs := make([]Submission, len(events))
	rows := make([]store.StoredEvent, len(events))
	for i, ev := range events {
		subs[i] = Submission{BatchID: res.BatchID, Event: ev}
		stored, err := e.stage(subs[i], first+int64(i))
		if err != nil {
			return res, fmt.Errorf("apply batch %s: event %d: %w", res.BatchID, i, err)
		}
		rows[i] = stored
	}

	if e.store != nil {
		if err := e.store.AppendEvents(ctx, rows); err != nil {
			return res, fmt.Errorf("apply batch %s: %w", res.BatchID, persistError(rows[0], err))
		}
	}

	for i, sub := range subs {
		a := e.publish(ctx, sub, rows[i])
		if a.Changed {
			res.Changed++
		}
		res.Applied = append(res.Applied, a)
	}
	res.FirstSeq = first
	res.LastSeq = rows[len(rows)-1].Seq
	return res, nil
}

// stage validates sub and encodes it for the log at seq. Nothing is
// written and nothing is published.
func (e *Engine) stage(sub Submission, seq int64) (store.StoredEvent, error) {
	if sub.Event == nil {
		applyErrorsTotal.WithLabelValues(string(ErrCodeInvalidEvent)).Inc()
		return store.StoredEvent{}, &RuntimeError{
			Code:    ErrCodeInvalidEvent,
			Message: "submission has no event",
		}
	}

	stored, err := store.NewStoredEvent(seq, sub.BatchID, sub.Event)
	if err != nil {
		applyErrorsTotal.WithLabelValues(string(ErrCodeInvalidEvent)).Inc()
		return store.StoredEvent{}, &RuntimeError{
			Code:    ErrCodeInvalidEvent,
			Message: "encode event",
			Seq:     seq,
			Kind:    sub.Event.Kind(),
			Err:     err,
		}
	}

	if ids := ir.NonNFC(sub.Event); len(ids) > 0 {
		e.logger.Warn("event ids are not NFC-normalized; they are matched byte for byte",
			"seq", seq,
			"kind", stored.Kind,
			"ids", ids,
		)
	}
	return stored, nil
}

func persistError(stored store.StoredEvent, err error) error {
	applyErrorsTotal.WithLabelValues(string(ErrCodePersistFailed)).Inc()
	return &RuntimeError{
		Code:    ErrCodePersistFailed,
		Message: "append event",
		Seq:     stored.Seq,
		Kind:    stored.Kind,
		Err:     err,
	}
}

// publish commits the seq of a durable event, folds it into the index and
// notifies subscribers.
func (e *Engine) publish(ctx context.Context, sub Submission, stored store.StoredEvent) Applied {
	seq := stored.Seq
	if !e.clock.Advance(seq) {
		e.logger.Error("clock moved during apply; Apply called outside the single writer", "seq", seq)
		e.clock.Resume(seq)
	}

	prev := e.Current()
	next := membership.Reduce(prev, sub.Event)

	result := Applied{
		Seq:     seq,
		ID:      stored.ID,
		BatchID: sub.BatchID,
		Kind:    stored.Kind,
		Changed: next != prev,
		Parents: []string{},
	}

	if result.Changed {
		result.Parents = membership.ChangedParents(prev, next)
		e.current.Store(next)
		indexParents.Set(float64(next.Len()))
		eventsAppliedTotal.WithLabelValues(kindLabel(stored.Kind)).Inc()
		e.notify(prev, next, result.Parents)
	} else {
		eventsNoopTotal.WithLabelValues(kindLabel(stored.Kind)).Inc()
	}

	e.logger.Debug("event applied",
		"seq", seq,
		"kind", stored.Kind,
		"batch", sub.BatchID,
		"changed", result.Changed,
		"parents", result.Parents,
	)

	e.maybeSnapshot(ctx)
	return result
}

// Recover rebuilds the current index from the latest snapshot plus the tail
// of the log, and resumes the clock after the last logged event.
// CRITICAL: single writer only; call before Run.
func (e *Engine) Recover(ctx context.Context) (store.ReplayResult, error) {
	if e.store == nil {
		return store.ReplayResult{}, newStoreRequiredError("recover")
	}

	from, err := e.store.LatestSnapshot(ctx)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		from = store.Snapshot{Index: membership.Empty()}
	case err != nil:
		// A corrupt snapshot is not fatal; the log is the source of truth.
		e.logger.Warn("ignoring unusable snapshot", "error", err)
		from = store.Snapshot{Index: membership.Empty()}
	}

	res, err := e.store.ReplayFrom(ctx, from, 0)
	if err != nil {
		return store.ReplayResult{}, &RuntimeError{
			Code:    ErrCodeRecoveryFailed,
			Message: "replay log",
			Err:     err,
		}
	}

	prev := e.Current()
	e.current.Store(res.Index)
	e.clock.Resume(res.LastSeq)
	e.sinceSnapshot = res.LastSeq - from.Seq
	indexParents.Set(float64(res.Index.Len()))
	if res.Index != prev && !res.Index.Equal(prev) {
		e.notify(prev, res.Index, membership.ChangedParents(prev, res.Index))
	}

	e.logger.Info("engine recovered",
		"snapshot_seq", from.Seq,
		"replayed", res.Events,
		"seq", res.LastSeq,
		"parents", res.Index.Len(),
	)
	return res, nil
}

// Snapshot persists the current index at the current seq.
// CRITICAL: single writer only.
func (e *Engine) Snapshot(ctx context.Context) (store.Snapshot, error) {
	if e.store == nil {
		return store.Snapshot{}, newStoreRequiredError("snapshot")
	}
	seq := e.clock.Current()
	idx := e.Current()
	digest, err := idx.Digest()
	if err != nil {
		return store.Snapshot{}, &RuntimeError{Code: ErrCodeSnapshotFailed, Message: "digest index", Seq: seq, Err: err}
	}
	if err := e.store.WriteSnapshot(ctx, seq, idx); err != nil {
		return store.Snapshot{}, &RuntimeError{Code: ErrCodeSnapshotFailed, Message: "write snapshot", Seq: seq, Err: err}
	}
	e.sinceSnapshot = 0
	snapshotsTotal.Inc()
	e.logger.Info("snapshot written", "seq", seq, "parents", idx.Len())
	return store.Snapshot{Seq: seq, Digest: digest, Index: idx}, nil
}

// maybeSnapshot writes a periodic snapshot. Failures are logged only: the
// event is already durable and a later snapshot or a full replay recovers it.
func (e *Engine) maybeSnapshot(ctx context.Context) {
	if e.store == nil || e.snapshotEvery <= 0 {
		return
	}
	e.sinceSnapshot++
	if e.sinceSnapshot < e.snapshotEvery {
		return
	}
	if _, err := e.Snapshot(ctx); err != nil {
		applyErrorsTotal.WithLabelValues(string(ErrCodeSnapshotFailed)).Inc()
		e.logger.Error("periodic snapshot failed", "seq", e.clock.Current(), "error", err)
	}
}

func (e *Engine) notify(prev, next *membership.Index, changed []string) {
	e.mu.Lock()
	listeners := e.listeners
	e.mu.Unlock()
	for _, fn := range listeners {
		fn(prev, next, changed)
	}
}

// logSubmissionError logs a failed submission with enough context for
// manual investigation and replay.
func (e *Engine) logSubmissionError(sub Submission, err error) {
	attrs := []any{"batch", sub.BatchID, "error", err}
	if sub.Event != nil {
		attrs = append(attrs, "kind", sub.Event.Kind())
		if parent, ok := ir.TargetParent(sub.Event); ok {
			attrs = append(attrs, "parent", parent)
		}
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		attrs = append(attrs, "code", re.Code, "seq", re.Seq)
	}
	e.logger.Error("event processing failed", attrs...)
}
