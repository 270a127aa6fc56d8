package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "test.yaml", `
name: test_scenario
description: "Test scenario for validation"
initial:
  chan-1: [u1]
events:
  - kind: member_added
    payload:
      parent_id: chan-1
      child_id: u2
expect:
  chan-1: [u1, u2]
assertions:
  - type: member_count
    parent: chan-1
    count: 2
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, map[string][]string{"chan-1": {"u1"}}, scenario.Initial)
	require.Len(t, scenario.Events, 1)
	assert.Equal(t, "member_added", scenario.Events[0].Kind)
	assert.Equal(t, "chan-1", scenario.Events[0].Payload["parent_id"])
	assert.Equal(t, map[string][]string{"chan-1": {"u1", "u2"}}, scenario.Expect)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, Assertion{Type: AssertMemberCount, Parent: "chan-1", Count: 2}, scenario.Assertions[0])
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_EmptyExpectIsKept(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: reset
description: "reset"
events:
  - kind: session_ended
expect: {}
`))
	require.NoError(t, err)
	assert.NotNil(t, scenario.Expect)
	assert.Empty(t, scenario.Expect)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			yaml:    "name: [unterminated",
			wantErr: "failed to parse YAML",
		},
		{
			name: "unknown field",
			yaml: `
name: x
description: x
events: [{kind: session_ended}]
expect: {}
assertion: []
`,
			wantErr: "field assertion not found",
		},
		{
			name:    "missing name",
			yaml:    "description: x\nevents: [{kind: session_ended}]\nexpect: {}\n",
			wantErr: "name is required",
		},
		{
			name:    "name escapes golden dir",
			yaml:    "name: ../../x\ndescription: x\nevents: [{kind: session_ended}]\nexpect: {}\n",
			wantErr: "must be a plain file name",
		},
		{
			name:    "name with separator",
			yaml:    "name: a/b\ndescription: x\nevents: [{kind: session_ended}]\nexpect: {}\n",
			wantErr: "must be a plain file name",
		},
		{
			name:    "name with backslash",
			yaml:    "name: 'a\\\\b'\ndescription: x\nevents: [{kind: session_ended}]\nexpect: {}\n",
			wantErr: "must be a plain file name",
		},
		{
			name:    "missing description",
			yaml:    "name: x\nevents: [{kind: session_ended}]\nexpect: {}\n",
			wantErr: "description is required",
		},
		{
			name:    "no events",
			yaml:    "name: x\ndescription: x\nexpect: {}\n",
			wantErr: "events list is required",
		},
		{
			name:    "no expect and no assertions",
			yaml:    "name: x\ndescription: x\nevents: [{kind: session_ended}]\n",
			wantErr: "expect or assertions is required",
		},
		{
			name:    "event without kind",
			yaml:    "name: x\ndescription: x\nevents: [{payload: {parent_id: p}}]\nexpect: {}\n",
			wantErr: "events[0]: kind is required",
		},
		{
			name: "unknown assertion",
			yaml: `
name: x
description: x
events: [{kind: session_ended}]
assertions: [{type: trace_contains}]
`,
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name: "untouched without parents",
			yaml: `
name: x
description: x
events: [{kind: session_ended}]
assertions: [{type: untouched}]
`,
			wantErr: "parents list is required for untouched",
		},
		{
			name: "member_count without parent",
			yaml: `
name: x
description: x
events: [{kind: session_ended}]
assertions: [{type: member_count, count: 1}]
`,
			wantErr: "parent is required for member_count",
		},
		{
			name: "negative member_count",
			yaml: `
name: x
description: x
events: [{kind: session_ended}]
assertions: [{type: member_count, parent: p, count: -1}]
`,
			wantErr: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEventStep_Envelope(t *testing.T) {
	step := EventStep{
		Kind: "members_added_list",
		Payload: map[string]any{
			"parent_id": "p",
			"children":  []any{map[string]any{"id": "a"}},
		},
	}
	env, err := step.Envelope()
	require.NoError(t, err)
	assert.Equal(t, "members_added_list", env.Kind)
	assert.JSONEq(t, `{"parent_id":"p","children":[{"id":"a"}]}`, string(env.Payload))

	env, err = EventStep{Kind: "session_ended"}.Envelope()
	require.NoError(t, err)
	assert.Nil(t, env.Payload)
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	a := writeScenario(t, dir, "b.yaml", "x")
	b := writeScenario(t, dir, "nested/a.yml", "x")
	writeScenario(t, dir, "README.md", "x")

	files, err := FindScenarios(dir, a)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)

	_, err = FindScenarios(filepath.Join(dir, "missing"))
	require.Error(t, err)

	files, err = FindScenarios(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.NotNil(t, files)
}

func TestBundledScenariosLoad(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	names := make(map[string]bool)
	for _, f := range files {
		scenario, err := LoadScenario(f)
		require.NoError(t, err, f)
		assert.False(t, names[scenario.Name], "duplicate scenario name %s", scenario.Name)
		names[scenario.Name] = true
		assert.Equal(t, scenario.Name+".yaml", filepath.Base(f))
	}
}
