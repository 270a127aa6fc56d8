package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/roster/internal/membership"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Trace    []TraceStep // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, step := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s changed=%t %v\n",
				step.Seq, step.Kind, step.ParentID, step.Changed, step.Members)
		}
	}

	return buf.String()
}

// assertExpect compares the final index with the scenario's expect block.
func assertExpect(want, got *membership.Index) error {
	if want.Equal(got) {
		return nil
	}
	return &AssertionError{
		Type:     "expect",
		Expected: formatIndex(want),
		Actual:   formatIndex(got),
	}
}

// assertIdentity checks that no event replaced the index.
func assertIdentity(result *Result) error {
	if result.Final == result.Initial {
		return nil
	}
	var changedAt []int64
	for _, step := range result.Trace {
		if step.Changed {
			changedAt = append(changedAt, step.Seq)
		}
	}
	return &AssertionError{
		Type:     AssertIdentity,
		Expected: "final index is the initial index",
		Actual:   fmt.Sprintf("index replaced at seq %v", changedAt),
		Trace:    result.Trace,
	}
}

// assertUntouched checks that each listed parent still holds the very same
// member set it started with.
func assertUntouched(result *Result, assertion Assertion) error {
	for _, parent := range assertion.Parents {
		before := result.Initial.Get(parent)
		after := result.Final.Get(parent)
		if before != after {
			return &AssertionError{
				Type:     AssertUntouched,
				Expected: fmt.Sprintf("parent %q keeps its initial member set %v", parent, before.IDs()),
				Actual:   fmt.Sprintf("member set replaced, now %v", after.IDs()),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

// assertEmpty checks that the final index has no parents.
func assertEmpty(result *Result) error {
	if result.Final.Len() == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertEmpty,
		Expected: "empty index",
		Actual:   formatIndex(result.Final),
		Trace:    result.Trace,
	}
}

// assertMemberCount checks the number of members of one parent.
func assertMemberCount(result *Result, assertion Assertion) error {
	got := result.Final.Get(assertion.Parent).Len()
	if got == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertMemberCount,
		Expected: fmt.Sprintf("%d members of %q", assertion.Count, assertion.Parent),
		Actual:   fmt.Sprintf("%d members", got),
		Trace:    result.Trace,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertIdentity:
			err = assertIdentity(result)
		case AssertUntouched:
			err = assertUntouched(result, assertion)
		case AssertEmpty:
			err = assertEmpty(result)
		case AssertMemberCount:
			err = assertMemberCount(result, assertion)
		default:
			err = fmt.Errorf("unknown assertion type: %s", assertion.Type)
		}

		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}

	return errs
}
