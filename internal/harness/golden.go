package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/roster/internal/ir"
)

// TraceSnapshot captures the trace and final index of a scenario execution.
// Serialized with canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceStep
	Final        map[string][]string
}

// toCanonicalMap converts a TraceSnapshot to the shapes ir.MarshalCanonical
// accepts.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, step := range s.Trace {
		stepMap := map[string]any{
			"seq":     step.Seq,
			"kind":    step.Kind,
			"changed": step.Changed,
		}
		if step.ParentID != "" {
			stepMap["parent_id"] = step.ParentID
		}
		if len(step.Members) > 0 {
			stepMap["members"] = step.Members
		}
		traceList[i] = stepMap
	}

	final := s.Final
	if final == nil {
		final = map[string][]string{}
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"final":         final,
	}
}

// MarshalTrace returns the canonical JSON golden form of a result.
func MarshalTrace(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Final:        result.Final.ToMap(),
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass. Returns error if
// scenario execution fails; a trace mismatch fails t via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
