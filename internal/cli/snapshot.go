package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// SnapshotOptions holds flags for the snapshot command.
type SnapshotOptions struct {
	*RootOptions
	Database string
}

// SnapshotResult describes a written snapshot.
type SnapshotResult struct {
	Seq     int64  `json:"seq"`
	Digest  string `json:"digest"`
	Parents int    `json:"parents"`
}

// WriteText renders the result for humans.
func (r SnapshotResult) WriteText(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "Snapshot written at seq %d (%d parent(s))\n", r.Seq, r.Parents)
	if verbose {
		fmt.Fprintf(w, "  Digest: %s\n", r.Digest)
	}
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Persist an index snapshot at the current seq",
		Long: `Recover the membership index and write it as a snapshot at the last
logged seq, so later recoveries only replay events after it.

Examples:
  roster snapshot --db ./roster.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSnapshot(ctx context.Context, opts *SnapshotOptions, cmd *cobra.Command) error {
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

	snap, err := eng.Snapshot(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to write snapshot", err)
	}

	return newFormatter(opts.RootOptions, cmd).Success(SnapshotResult{
		Seq:     snap.Seq,
		Digest:  snap.Digest,
		Parents: snap.Index.Len(),
	})
}
