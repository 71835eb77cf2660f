package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/pulsenet/internal/compiler"
	"github.com/roach88/pulsenet/internal/ir"
)

// Codes reported in CLIError.Code and "Error [code]" lines. Codes from
// E100 up come from network validation (compiler.Validate).
const (
	ErrCodeGeneric     = "E001"
	ErrCodeLoadFailed  = "E004" // network file could not be parsed
	ErrCodeNotFound    = "E005" // file, database or run missing
	ErrCodeBuildFailed = "E006" // CUE evaluation failed
	ErrCodeWriteFailed = "E007"
	ErrCodeDatabase    = "E008" // Run log could not be opened or read
	ErrCodeRuntime     = "E009" // Simulation failed
	ErrCodeDeterminism = "E010" // Replay differs from the stored run
	ErrCodeTestFailed  = "E011" // One or more scenarios failed
)

// LoadError is a network file that could not be turned into a valid
// declaration list. At most one of Pos and Line is set.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE source
	Line    int       // line format
}

func (e *LoadError) Error() string {
	switch {
	case e.Pos.IsValid():
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadNetwork reads a network file. Files ending in .cue are compiled as
// CUE documents; anything else is parsed as the line format.
//
// The declarations are not validated; callers run compiler.Validate.
func LoadNetwork(path string) ([]ir.Declaration, error) {
	switch info, err := os.Stat(path); {
	case errors.Is(err, fs.ErrNotExist):
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "network file not found: " + path}
	case err != nil:
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing network file: %v", err)}
	case info.IsDir():
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "not a file: " + path}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading network file: %v", err)}
	}

	var decls []ir.Declaration
	if isCUEFile(path) {
		decls, err = compiler.CompileSource(path, data)
	} else {
		decls, err = compiler.ParseText(bytes.NewReader(data))
	}
	if err != nil {
		return nil, convertCompileError(err)
	}
	return decls, nil
}

// LoadValidNetwork loads a network file and rejects it if validation
// reports any error.
func LoadValidNetwork(path string) ([]ir.Declaration, error) {
	decls, err := LoadNetwork(path)
	if err != nil {
		return nil, err
	}
	if errs := compiler.Validate(decls); len(errs) > 0 {
		first := errs[0]
		msg := first.Message
		if first.Field != "" {
			msg = first.Field + ": " + msg
		}
		if len(errs) > 1 {
			msg = fmt.Sprintf("%s (and %d more)", msg, len(errs)-1)
		}
		return nil, &LoadError{Code: first.Code, Message: msg, Line: first.Line}
	}
	return decls, nil
}

func isCUEFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".cue")
}

// convertCompileError keeps the source position of a front-end error.
// Errors raised by CUE evaluation itself get ErrCodeBuildFailed.
func convertCompileError(err error) *LoadError {
	if ce := (*compiler.CompileError)(nil); errors.As(err, &ce) {
		code := ErrCodeLoadFailed
		if ce.Field == "cue" {
			code = ErrCodeBuildFailed
		}
		return &LoadError{Code: code, Message: ce.Field + ": " + ce.Message, Pos: ce.Pos}
	}
	if ve := (*compiler.ValidationError)(nil); errors.As(err, &ve) {
		return &LoadError{Code: ve.Code, Message: ve.Message, Line: ve.Line}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// loadErrorCode splits err into a CLI error code and message.
func loadErrorCode(err error) (code, message string) {
	if le := (*LoadError)(nil); errors.As(err, &le) {
		return le.Code, le.Message
	}
	return ErrCodeGeneric, err.Error()
}
