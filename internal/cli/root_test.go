package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roster/internal/ir"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "roster", cmd.Use)
	assert.Contains(t, cmd.Long, "membership")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"apply", "show", "replay", "snapshot", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	busyFlag := cmd.PersistentFlags().Lookup("busy-timeout")
	require.NotNil(t, busyFlag)
	assert.Equal(t, "5s", busyFlag.DefValue)
}

func TestDBFlagsRequired(t *testing.T) {
	for _, name := range []string{"apply", "show", "replay", "snapshot"} {
		t.Run(name, func(t *testing.T) {
			cmd := NewRootCommand()
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			flag := sub.Flags().Lookup("db")
			require.NotNil(t, flag)
			assert.Equal(t, []string{"true"}, flag.Annotations["cobra_annotation_bash_completion_one_required_flag"])
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	run := runCLI(t, nil, "--format", "xml", "show", "--db", tempDB(t))
	require.Error(t, run.err)
	assert.Equal(t, ExitCommandError, GetExitCode(run.err))
	assert.Contains(t, run.err.Error(), `invalid format "xml"`)
}

func TestExecute_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"help", []string{"--help"}, ExitSuccess},
		{"unknown command", []string{"frobnicate"}, ExitCommandError},
		{"missing required flag", []string{"replay"}, ExitCommandError},
		{"missing database", []string{"show", "--db", "/nonexistent/roster.db"}, ExitCommandError},
		{"test without paths", []string{"test"}, ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := Execute(context.Background(), tt.args, &stdout, &stderr)
			assert.Equal(t, tt.want, code, "stderr: %s", stderr.String())
			if tt.want != ExitSuccess {
				assert.Contains(t, stderr.String(), "Error:")
			}
		})
	}
}

func TestVerboseLogsToStderr(t *testing.T) {
	db := tempDB(t)
	run := runCLI(t, []byte(`{"kind":"member_added","payload":{"parent_id":"p","child_id":"a"}}`+"\n"),
		"-v", "apply", "--db", db)
	require.NoError(t, run.err)
	assert.Contains(t, run.stderr, "event applied")
	assert.NotContains(t, run.stdout, "event applied")

	quiet := runCLI(t, nil, "show", "--db", db)
	require.NoError(t, quiet.err)
	assert.Empty(t, quiet.stderr)
}

func TestVersionFlag(t *testing.T) {
	run := runCLI(t, nil, "--version")
	require.NoError(t, run.err)
	assert.Equal(t, "roster version "+ir.EngineVersion+" (wire v"+ir.WireVersion+")\n", run.stdout)
}
