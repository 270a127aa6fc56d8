package harness

import "github.com/roach88/roster/internal/membership"

// TraceStep records the effect of one scenario event.
type TraceStep struct {
	Seq      int64  `json:"seq"`
	Kind     string `json:"kind"`
	ParentID string `json:"parent_id,omitempty"`
	// Changed is false when the reducer returned the previous index itself.
	Changed bool `json:"changed"`
	// Members is the target parent's member set after the event, sorted.
	Members []string `json:"members,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: expect matched and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains one step per event, in order.
	Trace []TraceStep `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Initial and Final are the index before the first and after the last event.
	Initial *membership.Index `json:"-"`
	Final   *membership.Index `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceStep{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a trace step.
func (r *Result) AddStep(step TraceStep) {
	r.Trace = append(r.Trace, step)
}
