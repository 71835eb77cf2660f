package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/pulsenet/internal/ir"
)

// maxTraceInError bounds how much of the trace an AssertionError prints.
const maxTraceInError = 40

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for i, event := range e.Trace {
			if i == maxTraceInError {
				fmt.Fprintf(&buf, "  ... %d more\n", len(e.Trace)-i)
				break
			}
			fmt.Fprintf(&buf, "  [%d] press %d: %s\n", event.Seq, event.Press, event)
		}
	}

	return buf.String()
}

// matches reports whether the event fits the pattern.
func (m PulseMatch) matches(e TraceEvent) bool {
	return (m.Press == 0 || m.Press == e.Press) &&
		(m.Source == "" || m.Source == e.Source) &&
		(m.Level == "" || m.Level == e.Level) &&
		(m.Destination == "" || m.Destination == e.Destination)
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertTraceContains checks that at least one pulse matches.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if assertion.Pulse.matches(event) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: assertion.Pulse.String(),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the patterns match pulses in order.
// Matches need not be consecutive: each pattern is matched against the
// first pulse after the previous match.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for i, want := range assertion.Pulses {
		found := false
		for pos < len(trace) {
			event := trace[pos]
			pos++
			if want.matches(event) {
				found = true
				break
			}
		}
		if !found {
			actual := fmt.Sprintf("%s not found after %s", want, assertion.Pulses[max(i-1, 0)])
			if i == 0 {
				actual = fmt.Sprintf("%s not found", want)
			}
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("pulses in order: %s", joinMatches(assertion.Pulses)),
				Actual:   actual,
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that exactly Count pulses match.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if assertion.Pulse.matches(event) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Pulse),
			Actual:   fmt.Sprintf("%d occurrences", count),
		}
	}
	return nil
}

// assertFinalState checks a module's memory and remembered inputs after
// the last simulated press. Inputs use subset semantics.
func assertFinalState(result *Result, assertion Assertion) error {
	state, ok := result.State[assertion.Module]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("module %s", assertion.Module),
			Actual:   "module not found",
		}
	}

	if assertion.Memory != "" {
		got := "off"
		if state.Memory == ir.High {
			got = "on"
		}
		if got != assertion.Memory {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s memory %s", assertion.Module, assertion.Memory),
				Actual:   fmt.Sprintf("memory %s", got),
			}
		}
	}

	var mismatches []string
	for _, src := range sortedInputNames(assertion.Inputs) {
		want := assertion.Inputs[src]
		got, ok := state.Inputs[src]
		switch {
		case !ok:
			mismatches = append(mismatches, fmt.Sprintf("%s: not an input", src))
		case got.String() != want:
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %s, got %s", src, want, got))
		}
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s inputs %s", assertion.Module, formatInputs(assertion.Inputs)),
			Actual:   strings.Join(mismatches, "; "),
		}
	}
	return nil
}

func joinMatches(ms []PulseMatch) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = m.String()
	}
	return strings.Join(parts, ", ")
}

func sortedInputNames(inputs map[string]string) []string {
	names := make([]string, 0, len(inputs))
	for k := range inputs {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

func formatInputs(inputs map[string]string) string {
	names := sortedInputNames(inputs)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + "=" + inputs[n]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
