package compiler

import (
	"fmt"

	"github.com/roach88/pulsenet/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Syntax errors from the text front-end (E100)
	ErrSyntax = "E100" // line is not "name -> outputs"

	// Declaration errors (E101-E109)
	ErrEmptyName          = "E101" // module name is empty
	ErrDuplicateName      = "E102" // module declared more than once
	ErrUnknownKind        = "E103" // missing or unknown kind tag
	ErrReservedName       = "E104" // button/broadcaster misuse
	ErrMissingBroadcaster = "E105" // no broadcaster declaration

	// Output errors (E110-E119)
	ErrEmptyOutput     = "E110" // empty destination name
	ErrTaggedOutput    = "E111" // destination starts with a kind tag
	ErrReservedOutput  = "E112" // destination is button or broadcaster
	ErrDuplicateOutput = "E113" // destination listed twice by one module
)

// ValidationError represents a declaration validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks declarations before network construction.
// Returns all errors found (does not fail-fast).
func Validate(decls []ir.Declaration) []ValidationError {
	var errs []ValidationError
	add := func(d ir.Declaration, field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
			Line:    d.Line,
		})
	}

	seen := make(map[string]int, len(decls))
	hasBroadcaster := false

	for i, d := range decls {
		field := fmt.Sprintf("modules[%d]", i)
		if d.Name != "" {
			field = d.Name
		}

		switch {
		case d.Name == "":
			add(d, field, ErrEmptyName, "module name is required")
		case d.Name == ir.ButtonName:
			add(d, field, ErrReservedName, "%q is reserved for the external press source", ir.ButtonName)
		case d.Kind == ir.KindBroadcaster && d.Name != ir.BroadcasterName:
			add(d, field, ErrReservedName, "only %q may have the broadcaster kind", ir.BroadcasterName)
		case d.Name == ir.BroadcasterName && d.Kind != ir.KindBroadcaster:
			add(d, field, ErrReservedName, "%q cannot carry a kind tag", ir.BroadcasterName)
		case d.Kind != ir.KindBroadcaster && d.Kind != ir.KindFlipFlop && d.Kind != ir.KindConjunction:
			add(d, field, ErrUnknownKind, "module needs a %c or %c kind tag", ir.TagFlipFlop, ir.TagConjunction)
		}

		if d.Name != "" {
			if first, dup := seen[d.Name]; dup {
				add(d, field, ErrDuplicateName, "module already declared at modules[%d]", first)
			} else {
				seen[d.Name] = i
			}
		}
		if d.Name == ir.BroadcasterName {
			hasBroadcaster = true
		}

		outputs := make(map[string]bool, len(d.Outputs))
		for j, dest := range d.Outputs {
			outField := fmt.Sprintf("%s.outputs[%d]", field, j)
			switch {
			case dest == "":
				add(d, outField, ErrEmptyOutput, "output name is empty")
			case dest[0] == ir.TagFlipFlop || dest[0] == ir.TagConjunction:
				add(d, outField, ErrTaggedOutput, "output %q starts with a kind tag", dest)
			case dest == ir.BroadcasterName || dest == ir.ButtonName:
				add(d, outField, ErrReservedOutput, "%q cannot receive pulses from modules", dest)
			case outputs[dest]:
				add(d, outField, ErrDuplicateOutput, "output %q listed more than once", dest)
			}
			outputs[dest] = true
		}
	}

	if len(decls) > 0 && !hasBroadcaster {
		errs = append(errs, ValidationError{
			Field:   ir.BroadcasterName,
			Message: "network has no broadcaster declaration",
			Code:    ErrMissingBroadcaster,
		})
	}

	return errs
}
