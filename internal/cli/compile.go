package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/pulsenet/internal/compiler"
	"github.com/roach88/pulsenet/internal/ir"
)

// Emit formats for the compile command.
const (
	EmitJSON = "json"
	EmitText = "text"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
	Emit   string // "json" (canonical declarations) or "text" (line format)
}

// CompilationResult holds the compiled network and its static analysis.
type CompilationResult struct {
	NetworkHash  string                     `json:"network_hash"`
	Declarations []ir.Declaration           `json:"declarations"`
	Feedback     []compiler.FeedbackWarning `json:"feedback"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	Modules      int
	Flipflops    int
	Conjunctions int
	Edges        int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <network-file>",
		Short: "Compile a network to canonical declarations",
		Long: `Compile a network file (.cue or line format) to canonical declarations.

The network is parsed and validated, analysed for feedback loops, and
written either as canonical JSON or in the line format:

  broadcaster -> a, b
  %a -> con
  &con -> output

Examples:
  pulsenet compile network.txt
  pulsenet compile network.cue --emit text -o network.txt
  pulsenet compile network.txt --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Emit, "emit", EmitJSON, "output file format (json|text)")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Emit != EmitJSON && opts.Emit != EmitText {
		return formatter.Failure(ExitCommandError, ErrCodeGeneric,
			fmt.Sprintf("invalid emit format %q: must be json or text", opts.Emit), nil)
	}

	decls, err := LoadNetwork(path)
	if err != nil {
		code, message := loadErrorCode(err)
		return formatter.Failure(ExitCommandError, code, message, nil)
	}
	formatter.VerboseLog("Parsed %d declaration(s) from %s", len(decls), path)

	if errs := compiler.Validate(decls); len(errs) > 0 {
		return outputCompileErrors(formatter, errs)
	}

	hash, err := ir.NetworkHash(decls)
	if err != nil {
		return formatter.Failure(ExitCommandError, ErrCodeGeneric, "hashing network", err)
	}

	result := &CompilationResult{
		NetworkHash:  hash,
		Declarations: decls,
		Feedback:     compiler.AnalyzeFeedback(decls),
	}
	if result.Feedback == nil {
		result.Feedback = []compiler.FeedbackWarning{}
	}
	for _, w := range result.Feedback {
		formatter.VerboseLog("Feedback: %s", w.Message)
	}

	if opts.Output != "" {
		if err := writeNetworkFile(result, opts.Emit, opts.Output); err != nil {
			return formatter.Failure(ExitCommandError, ErrCodeWriteFailed, "writing output file", err)
		}
	}

	return outputCompileSuccess(formatter, result, calculateStats(decls), opts.Output)
}

// calculateStats computes summary statistics from the declarations.
func calculateStats(decls []ir.Declaration) CompilationStats {
	stats := CompilationStats{Modules: len(decls)}
	for _, d := range decls {
		switch d.Kind {
		case ir.KindFlipFlop:
			stats.Flipflops++
		case ir.KindConjunction:
			stats.Conjunctions++
		}
		stats.Edges += len(d.Outputs)
	}
	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d module(s): %d flip-flop(s), %d conjunction(s), %d edge(s)\n",
		stats.Modules, stats.Flipflops, stats.Conjunctions, stats.Edges)
	fmt.Fprintf(w, "Network hash: %s\n\n", result.NetworkHash)

	fmt.Fprint(w, compiler.FormatText(result.Declarations))
	fmt.Fprintln(w)

	if len(result.Feedback) > 0 {
		fmt.Fprintln(w, "Feedback loops:")
		for _, fw := range result.Feedback {
			fmt.Fprintf(w, "  %s\n", fw.Message)
		}
		fmt.Fprintln(w)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote network to %s\n", outputFile)
	}

	return nil
}

// outputCompileErrors outputs every validation error.
func outputCompileErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.JSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, e := range errs {
			cliErrors[i] = CLIError{Code: e.Code, Message: e.Message, Details: e.Field}
		}

		if err := formatter.encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}

		// Compilation errors are command-level errors (exit code 2)
		return exitf(ExitCommandError, "compilation failed with %d error(s)", len(errs))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
	}
	fmt.Fprintln(formatter.Writer)

	return exitf(ExitCommandError, "compilation failed with %d error(s)", len(errs))
}

// writeNetworkFile writes the declarations as canonical JSON or line format.
func writeNetworkFile(result *CompilationResult, emit, filename string) error {
	var data []byte
	switch emit {
	case EmitText:
		data = []byte(compiler.FormatText(result.Declarations))
	default:
		canonical, err := ir.MarshalCanonical(ir.DeclarationsValue(result.Declarations))
		if err != nil {
			return fmt.Errorf("marshaling declarations: %w", err)
		}
		data = append(canonical, '\n')
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
