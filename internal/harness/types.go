package harness

import (
	"github.com/roach88/snrecon/internal/engine"
	"github.com/roach88/snrecon/internal/order"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step   int    `json:"step"`
	Action string `json:"action"`
	Result any    `json:"result,omitempty"`
	// Error is the engine error code, or the message for other errors.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step and assertion succeeded.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	// Lines is the order after the last step.
	Lines []order.Line `json:"lines"`

	// State is the workflow state after the last step.
	State engine.State `json:"state"`

	// Leftovers are the serials persisted for the scope after the last step.
	Leftovers []string `json:"leftovers"`

	// Fingerprint identifies the last reconciliation result, empty when
	// no reconcile step ran.
	Fingerprint string `json:"fingerprint,omitempty"`

	last *engine.ReconciliationResult
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Errors:    []string{},
		Lines:     []order.Line{},
		Leftovers: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addTrace appends an event for a step.
func (r *Result) addTrace(step int, action string, result any, errText string) {
	r.Trace = append(r.Trace, TraceEvent{
		Step:   step,
		Action: action,
		Result: result,
		Error:  errText,
	})
}
