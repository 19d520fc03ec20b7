package harness

import (
	"github.com/roach88/planir/internal/plan"
)

// TraceEvent is one application of one pass.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Pass    string `json:"pass"`
	Changed bool   `json:"changed"`
	Nodes   int    `json:"nodes"` // size of the plan the pass returned
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if the run behaved as expected and every assertion held.
	Pass bool

	RunID      string
	Plan       plan.Operator // nil if the run failed
	Applied    []string
	Iterations int

	// Trace contains every pass application in order.
	Trace []TraceEvent

	// Err is the pipeline error, if the run failed.
	Err error

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace records a pass application.
func (r *Result) AddTrace(pass string, changed bool, out plan.Operator) {
	nodes := 0
	if out != nil {
		nodes = plan.Count(out)
	}
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     int64(len(r.Trace) + 1),
		Pass:    pass,
		Changed: changed,
		Nodes:   nodes,
	})
}
