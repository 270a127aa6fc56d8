package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/roster/internal/engine"
	"github.com/roach88/roster/internal/store"
)

// openStore opens the database at path. Unless create is set the file must
// already exist, so a typo in --db fails instead of creating an empty log.
func (o *RootOptions) openStore(path string, create bool) (*store.Store, error) {
	if !create {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
		}
	}
	st, err := store.Open(path, store.WithBusyTimeout(o.BusyTimeout))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// recoverEngine builds an engine over st and rebuilds its index from the log.
func recoverEngine(ctx context.Context, st *store.Store, opts *RootOptions, cmd *cobra.Command, engineOpts ...engine.Option) (*engine.Engine, store.ReplayResult, error) {
	engineOpts = append([]engine.Option{engine.WithLogger(opts.Logger(cmd))}, engineOpts...)
	eng := engine.New(st, opts.BatchGen, engineOpts...)

	res, err := eng.Recover(ctx)
	if err != nil {
		return nil, store.ReplayResult{}, WrapExitError(ExitCommandError, "failed to recover index", err)
	}
	return eng, res, nil
}
