package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/roster/internal/testutil"
)

type cliRun struct {
	stdout string
	stderr string
	err    error
}

// runCLI executes the root command with deterministic batch ids.
func runCLI(t *testing.T, stdin []byte, args ...string) cliRun {
	t.Helper()
	return runCLIWith(t, &RootOptions{BatchGen: testutil.NewSequentialBatchGenerator("b")}, stdin, args...)
}

func runCLIWith(t *testing.T, opts *RootOptions, stdin []byte, args ...string) cliRun {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetIn(bytes.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return cliRun{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "roster.db")
}

// decodeData unmarshals a JSON CLIResponse and its data into out.
func decodeData(t *testing.T, stdout string, out any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &raw), stdout)
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}
