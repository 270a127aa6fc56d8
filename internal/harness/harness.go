package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/roster/internal/engine"
	"github.com/roach88/roster/internal/ir"
	"github.com/roach88/roster/internal/membership"
	"github.com/roach88/roster/internal/store"
)

// Harness is the scenario execution context.
// It runs scenarios with a deterministic clock and batch id.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and an engine seeded with the initial index
// 2. Decode and apply each event, recording a trace step
// 3. Compare the final index with expect and evaluate assertions
// 4. Replay the log onto the initial index and require the same final index
//
// Scenario errors (malformed envelopes, store failures) are returned as
// errors; failed expectations are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:", store.WithSynchronous("OFF"))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	initial := membership.NewIndex(scenario.Initial)

	h := &Harness{
		store: st,
		engine: engine.New(st,
			engine.NewFixedGenerator("scenario-"+scenario.Name),
			engine.WithInitial(initial),
			engine.WithLogger(logger),
		),
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()
	result.Initial = initial

	if err := h.executeEvents(ctx, scenario.Events, result); err != nil {
		return nil, fmt.Errorf("failed to execute events: %w", err)
	}
	result.Final = h.engine.Current()

	if scenario.Expect != nil {
		if err := assertExpect(membership.NewIndex(scenario.Expect), result.Final); err != nil {
			result.AddError(err.Error())
		}
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	if err := h.checkReplay(ctx, initial, result); err != nil {
		return nil, err
	}

	return result, nil
}

// executeEvents applies every event under one batch.
func (h *Harness) executeEvents(ctx context.Context, events []EventStep, result *Result) error {
	batchID := h.engine.NewBatch()

	for i, step := range events {
		env, err := step.Envelope()
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		ev, err := env.Event()
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}

		applied, err := h.engine.Apply(ctx, engine.Submission{BatchID: batchID, Event: ev})
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}

		traceStep := TraceStep{
			Seq:     applied.Seq,
			Kind:    applied.Kind,
			Changed: applied.Changed,
		}
		if parent, ok := ir.TargetParent(ev); ok && parent != "" {
			traceStep.ParentID = parent
			if ids := h.engine.Current().Get(parent).IDs(); len(ids) > 0 {
				traceStep.Members = ids
			}
		}
		result.AddStep(traceStep)

		h.logger.Info("scenario event applied",
			"step", i,
			"kind", applied.Kind,
			"seq", applied.Seq,
			"changed", applied.Changed,
		)
	}
	return nil
}

// checkReplay folds the logged events onto the initial index and compares
// the outcome with the index the engine published.
func (h *Harness) checkReplay(ctx context.Context, initial *membership.Index, result *Result) error {
	replayed, err := h.store.ReplayFrom(ctx, store.Snapshot{Index: initial}, 0)
	if err != nil {
		return fmt.Errorf("failed to replay scenario log: %w", err)
	}
	if !replayed.Index.Equal(result.Final) {
		result.AddError(fmt.Sprintf("replay diverged: engine %s, replay %s",
			formatIndex(result.Final), formatIndex(replayed.Index)))
	}
	return nil
}

// formatIndex renders an index as canonical JSON for error messages.
func formatIndex(idx *membership.Index) string {
	data, err := idx.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<unprintable index: %v>", err)
	}
	return string(data)
}
