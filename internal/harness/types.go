package harness

import (
	"github.com/roach88/pulsenet/internal/engine"
	"github.com/roach88/pulsenet/internal/ir"
)

// TraceEvent is one delivered pulse as recorded in the run log.
type TraceEvent struct {
	Press       int    `json:"press"`
	Seq         int64  `json:"seq"`
	Source      string `json:"source"`
	Level       string `json:"level"`
	Destination string `json:"destination"`
}

// String renders the event as "src -low-> dst".
func (e TraceEvent) String() string {
	return e.Source + " -" + e.Level + "-> " + e.Destination
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	RunID string `json:"run_id"`
	Mode  string `json:"mode"`

	// Value is the run's integer result (finite: low*high, converge: LCM).
	Value        int64          `json:"result"`
	Low          int64          `json:"low"`
	High         int64          `json:"high"`
	Presses      int            `json:"presses"` // presses simulated
	StoppedEarly bool           `json:"stopped_early"`
	FirstHigh    map[string]int `json:"first_high,omitempty"`

	// ErrorCode is the runtime error code when the run failed.
	ErrorCode string `json:"error_code,omitempty"`

	// Trace holds the recorded pulses in delivery order.
	Trace []TraceEvent `json:"trace"`

	// State is every module's state after the last simulated press.
	State map[string]engine.ModuleState `json:"state,omitempty"`

	// Errors contains failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]engine.ModuleState),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddPulse appends a recorded pulse to the trace.
func (r *Result) AddPulse(p ir.PulseRecord) {
	r.Trace = append(r.Trace, TraceEvent{
		Press:       p.Press,
		Seq:         p.Seq,
		Source:      p.Source,
		Level:       p.Level.String(),
		Destination: p.Destination,
	})
}
