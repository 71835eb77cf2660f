package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pulsenet/internal/compiler"
	"github.com/roach88/pulsenet/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Modules  int                        `json:"modules"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Feedback []compiler.FeedbackWarning `json:"feedback,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <network-file>",
		Short: "Validate a network without simulating it",
		Long: `Validate a network file (.cue or line format).

Reports every problem at once: empty or duplicate names, unknown kinds,
reserved names, a missing broadcaster and malformed outputs. With
--verbose, feedback loops are listed as informational notes.

Exit codes:
  0 - Network is valid
  1 - Validation errors found
  2 - Command error (file not found, syntax error)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	decls, err := LoadNetwork(path)
	if err != nil {
		code, message := loadErrorCode(err)
		return formatter.Failure(ExitCommandError, code, message, nil)
	}
	formatter.VerboseLog("Validating %d declaration(s) from %s", len(decls), path)

	result := ValidateDeclarations(decls)
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidateDeclarations validates declarations and, when they are valid,
// analyses them for feedback loops.
func ValidateDeclarations(decls []ir.Declaration) ValidationResult {
	result := ValidationResult{Modules: len(decls)}
	result.Errors = compiler.Validate(decls)
	result.Valid = len(result.Errors) == 0
	if result.Valid {
		result.Feedback = compiler.AnalyzeFeedback(decls)
	}
	return result
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Network valid (%d module(s))\n", result.Modules)
	if formatter.Verbose {
		for _, fw := range result.Feedback {
			fmt.Fprintf(formatter.Writer, "  note: %s\n", fw.Message)
		}
	}
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.JSON() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return exitf(ExitFailure, "validation failed with %d error(s)", len(errs))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range errs {
		if e.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", e.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", e.Code, e.Field, e.Message)
	}

	return exitf(ExitFailure, "validation failed with %d error(s)", len(errs))
}
