package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while building or driving a
// network.
//
// Runtime errors include:
//   - Malformed network: the declaration list or the convergence target
//     cannot be simulated
//   - Runaway simulation: a press exceeded the pulse quota
//   - Incomplete convergence: the press bound ran out before every feeder
//     emitted high
//   - Result overflow: the combined result does not fit in int64
//
// None of these are transient; nothing is retried.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Module names the module involved, if any.
	Module string

	// Press is the press during which the error was detected (0 = none).
	Press int

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeMalformedNetwork indicates the network cannot be simulated.
	ErrCodeMalformedNetwork RuntimeErrorCode = "MALFORMED_NETWORK"

	// ErrCodeRunawaySimulation indicates a press never drained its queue
	// within the pulse quota.
	ErrCodeRunawaySimulation RuntimeErrorCode = "RUNAWAY_SIMULATION"

	// ErrCodeIncompleteConvergence indicates the press bound was reached
	// with unresolved feeders.
	ErrCodeIncompleteConvergence RuntimeErrorCode = "INCOMPLETE_CONVERGENCE"

	// ErrCodeResultOverflow indicates the result exceeded int64.
	ErrCodeResultOverflow RuntimeErrorCode = "RESULT_OVERFLOW"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Module != "" && e.Press > 0 {
		return fmt.Sprintf("%s: %s (module=%s, press=%d)", e.Code, e.Message, e.Module, e.Press)
	}
	if e.Module != "" {
		return fmt.Sprintf("%s: %s (module=%s)", e.Code, e.Message, e.Module)
	}
	if e.Press > 0 {
		return fmt.Sprintf("%s: %s (press=%d)", e.Code, e.Message, e.Press)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsMalformedNetwork returns true if the error is a malformed network error.
// Uses errors.As to handle wrapped errors.
func IsMalformedNetwork(err error) bool {
	return hasCode(err, ErrCodeMalformedNetwork)
}

// IsRunaway returns true if a press exceeded its pulse quota.
// Matches both RuntimeError with ErrCodeRunawaySimulation and QuotaExceededError.
func IsRunaway(err error) bool {
	if hasCode(err, ErrCodeRunawaySimulation) {
		return true
	}
	var se *QuotaExceededError
	return errors.As(err, &se)
}

// IsIncompleteConvergence returns true if convergence mode ran out of presses.
func IsIncompleteConvergence(err error) bool {
	return hasCode(err, ErrCodeIncompleteConvergence)
}

// NewMalformedError creates a RuntimeError for a malformed network.
func NewMalformedError(module, message string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeMalformedNetwork,
		Message: message,
		Module:  module,
	}
}

// NewIncompleteConvergenceError creates a RuntimeError listing the feeders
// still unresolved after maxPresses presses.
func NewIncompleteConvergenceError(target string, maxPresses int, unresolved []string) *RuntimeError {
	details := map[string]string{
		"max_presses": fmt.Sprintf("%d", maxPresses),
	}
	for _, f := range unresolved {
		details["unresolved."+f] = "true"
	}
	return &RuntimeError{
		Code:    ErrCodeIncompleteConvergence,
		Message: fmt.Sprintf("%d feeder(s) unresolved after %d presses", len(unresolved), maxPresses),
		Module:  target,
		Press:   maxPresses,
		Details: details,
	}
}

// NewOverflowError creates a RuntimeError for a result that overflows int64.
func NewOverflowError(what string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeResultOverflow,
		Message: what + " overflows int64",
	}
}
