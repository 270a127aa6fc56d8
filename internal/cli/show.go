package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
	Parent   string // optional - one parent only
	Stats    bool
}

// ShowResult is the recovered index, or one parent's members.
type ShowResult struct {
	Seq     int64               `json:"seq"`
	Index   map[string][]string `json:"index,omitempty"`
	Parent  string              `json:"parent,omitempty"`
	Members []string            `json:"members,omitempty"`
	Stats   *LogStats           `json:"stats,omitempty"`
}

// LogStats summarizes the event log.
type LogStats struct {
	Events  int            `json:"events"`
	Batches int            `json:"batches"`
	Kinds   map[string]int `json:"kinds"`
}

// WriteText renders the result for humans.
func (r ShowResult) WriteText(w io.Writer, verbose bool) {
	if r.Parent != "" {
		if len(r.Members) == 0 {
			fmt.Fprintf(w, "%s: (no members)\n", r.Parent)
		} else {
			fmt.Fprintf(w, "%s: %s\n", r.Parent, strings.Join(r.Members, ", "))
		}
	} else if len(r.Index) == 0 {
		fmt.Fprintln(w, "Index is empty.")
	} else {
		for _, parent := range sortedKeys(r.Index) {
			fmt.Fprintf(w, "%s: %s\n", parent, strings.Join(r.Index[parent], ", "))
		}
	}

	if verbose || r.Stats != nil {
		fmt.Fprintf(w, "As of seq %d\n", r.Seq)
	}
	if r.Stats != nil {
		fmt.Fprintf(w, "Events: %d in %d batch(es)\n", r.Stats.Events, r.Stats.Batches)
		for _, kind := range sortedKeys(r.Stats.Kinds) {
			fmt.Fprintf(w, "  %s: %d\n", kind, r.Stats.Kinds[kind])
		}
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the membership index",
		Long: `Recover the membership index from the latest snapshot and the event log,
and print it.

Examples:
  roster show --db ./roster.db
  roster show --db ./roster.db --parent town-square
  roster show --db ./roster.db --stats --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Parent, "parent", "", "show one parent only")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "include event log statistics")

	return cmd
}

func runShow(ctx context.Context, opts *ShowOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := opts.openStore(opts.Database, false)
	if err != nil {
		return err
	}
	defer st.Close()

	eng, _, err := recoverEngine(ctx, st, opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	idx := eng.Current()
	result := ShowResult{Seq: eng.Seq()}
	if opts.Parent != "" {
		result.Parent = opts.Parent
		result.Members = idx.Get(opts.Parent).IDs()
	} else {
		result.Index = idx.ToMap()
	}

	if opts.Stats {
		stats := &LogStats{}
		if stats.Events, err = st.CountEvents(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to count events", err)
		}
		batches, err := st.ListBatches(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list batches", err)
		}
		stats.Batches = len(batches)
		if stats.Kinds, err = st.KindCounts(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to count kinds", err)
		}
		result.Stats = stats
	}

	return newFormatter(opts.RootOptions, cmd).Success(result)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
