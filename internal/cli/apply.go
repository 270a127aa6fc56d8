package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/roster/internal/engine"
	"github.com/roach88/roster/internal/ir"
)

// maxLineBytes bounds one NDJSON envelope.
const maxLineBytes = 4 << 20

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Database      string
	File          string // "" or "-" reads stdin
	SnapshotEvery int
	MetricsFile   string
}

// ApplyResult is the outcome of one apply invocation.
type ApplyResult struct {
	BatchID  string   `json:"batch_id"`
	Events   int      `json:"events"`
	Changed  int      `json:"changed"`
	NoOps    int      `json:"noops"`
	FirstSeq int64    `json:"first_seq"`
	LastSeq  int64    `json:"last_seq"`
	Parents  []string `json:"parents"`
	Total    int      `json:"total_parents"`
}

// WriteText renders the result for humans.
func (r ApplyResult) WriteText(w io.Writer, verbose bool) {
	if r.Events == 0 {
		fmt.Fprintln(w, "No events to apply.")
		return
	}
	fmt.Fprintf(w, "Batch %s: applied %d event(s) (seq %d-%d), %d changed, %d no-op\n",
		r.BatchID, r.Events, r.FirstSeq, r.LastSeq, r.Changed, r.NoOps)
	if len(r.Parents) > 0 {
		fmt.Fprintf(w, "Parents changed: %s\n", strings.Join(r.Parents, ", "))
	}
	if verbose {
		fmt.Fprintf(w, "Index now holds %d parent(s)\n", r.Total)
	}
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply membership events to the log",
		Long: `Apply newline-delimited JSON event envelopes as one batch.

Each line is {"kind": "...", "payload": {...}}. Every line is decoded before
anything is written, so a malformed line rejects the whole batch. Events of
unknown kinds are logged and leave the index unchanged.

Exit codes:
  0 - Events applied
  2 - Command error (malformed input, database error, etc.)

Examples:
  roster apply --db ./roster.db --file events.ndjson
  cat events.ndjson | roster apply --db ./roster.db
  roster apply --db ./roster.db --file events.ndjson --snapshot-every 1000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required, created if missing)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "NDJSON input file (default stdin)")
	cmd.Flags().IntVar(&opts.SnapshotEvery, "snapshot-every", 0, "write an index snapshot every N events (0 disables)")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file after applying")

	return cmd
}

func runApply(ctx context.Context, opts *ApplyOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	in := cmd.InOrStdin()
	if opts.File != "" && opts.File != "-" {
		f, err := os.Open(opts.File)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open input", err)
		}
		defer f.Close()
		in = f
	}

	events, err := readEvents(in)
	if err != nil {
		return err
	}

	st, err := opts.openStore(opts.Database, true)
	if err != nil {
		return err
	}
	defer st.Close()

	eng, _, err := recoverEngine(ctx, st, opts.RootOptions, cmd, engine.WithSnapshotEvery(opts.SnapshotEvery))
	if err != nil {
		return err
	}

	out := newFormatter(opts.RootOptions, cmd)
	if len(events) == 0 {
		return out.Success(ApplyResult{Parents: []string{}, Total: eng.Current().Len()})
	}

	batch, err := eng.ApplyBatch(ctx, events)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to apply events", err)
	}

	result := ApplyResult{
		BatchID:  batch.BatchID,
		Events:   len(batch.Applied),
		Changed:  batch.Changed,
		NoOps:    len(batch.Applied) - batch.Changed,
		FirstSeq: batch.FirstSeq,
		LastSeq:  batch.LastSeq,
		Parents:  changedParents(batch),
		Total:    eng.Current().Len(),
	}

	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, prometheus.DefaultGatherer); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	return out.Success(result)
}

// readEvents decodes every non-blank line of r. Unknown kinds decode to
// ir.Unrecognized; only malformed lines are errors.
func readEvents(r io.Reader) ([]ir.Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		events []ir.Event
		lineNo int
	)
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		ev, err := ir.DecodeEvent(line)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("line %d: invalid event", lineNo), err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read input", err)
	}
	return events, nil
}

// changedParents returns the sorted union of the parents each event changed.
func changedParents(batch engine.BatchResult) []string {
	parents := []string{}
	for _, a := range batch.Applied {
		parents = append(parents, a.Parents...)
	}
	slices.Sort(parents)
	return slices.Compact(parents)
}
