package harness

import (
	"github.com/roach88/graphpush/internal/cypher"
	"github.com/roach88/graphpush/internal/ir"
)

// Result is the outcome of running a scenario.
type Result struct {
	// Pass indicates overall test success.
	// True if the outcome matched and every assertion held.
	Pass bool `json:"pass"`

	// Outcome is the observed compile outcome (one of the Outcome* constants).
	Outcome string `json:"outcome"`

	// Code is the refusal code for cannot_compile outcomes.
	Code string `json:"code,omitempty"`

	// Reason is the refusal message for any outcome but compiled.
	Reason string `json:"reason,omitempty"`

	// Query, Params, Columns and Plans describe the compiled query.
	Query   string        `json:"query,omitempty"`
	Params  *ir.Params    `json:"params,omitempty"`
	Columns []string      `json:"columns,omitempty"`
	Plans   []cypher.Plan `json:"-"`

	// Recorded counts the refusals the engine logged to its cache.
	Recorded int `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
