package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/pulsenet/internal/ir"
)

// NetworkPath is where CompileSource looks for the network struct.
const NetworkPath = "network"

// CompileNetwork parses a CUE network struct into declarations.
//
// Each field is a module; declaration order follows field order:
//
//	network: {
//		broadcaster: outputs: ["a", "inv"]
//		a:   {kind: "flipflop", outputs: ["con"]}
//		inv: {kind: "conjunction", outputs: ["a"]}
//	}
//
// kind may be omitted for the broadcaster. Kind and reserved-name checks
// are left to Validate so that every problem is reported at once.
func CompileNetwork(v cue.Value) ([]ir.Declaration, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var decls []ir.Declaration
	for iter.Next() {
		d, err := compileModule(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}

	if len(decls) == 0 {
		return nil, &CompileError{
			Field:   NetworkPath,
			Message: "at least one module is required",
			Pos:     v.Pos(),
		}
	}
	return decls, nil
}

// CompileSource compiles a CUE document and reads its network field.
func CompileSource(filename string, src []byte) ([]ir.Declaration, error) {
	v := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	network := v.LookupPath(cue.ParsePath(NetworkPath))
	if !network.Exists() {
		return nil, &CompileError{
			Field:   NetworkPath,
			Message: "network is required",
			Pos:     v.Pos(),
		}
	}
	return CompileNetwork(network)
}

func compileModule(name string, v cue.Value) (ir.Declaration, error) {
	d := ir.Declaration{
		Name:    normalizeName(name),
		Line:    v.Pos().Line(),
		Outputs: []string{},
	}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	switch {
	case kindVal.Exists():
		s, err := kindVal.String()
		if err != nil {
			return d, formatCUEError(err)
		}
		kind, err := ir.ParseKind(s)
		if err != nil {
			return d, &CompileError{
				Field:   fmt.Sprintf("%s.kind", name),
				Message: err.Error(),
				Pos:     kindVal.Pos(),
			}
		}
		d.Kind = kind
	case d.Name == ir.BroadcasterName:
		d.Kind = ir.KindBroadcaster
	default:
		d.Kind = ir.KindSink
	}

	outputsVal := v.LookupPath(cue.ParsePath("outputs"))
	if !outputsVal.Exists() {
		return d, nil
	}
	outIter, err := outputsVal.List()
	if err != nil {
		return d, formatCUEError(err)
	}
	for outIter.Next() {
		dest, err := outIter.Value().String()
		if err != nil {
			return d, formatCUEError(err)
		}
		d.Outputs = append(d.Outputs, normalizeName(dest))
	}
	return d, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
