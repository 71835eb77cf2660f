package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// Output formats accepted by --format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ValidFormats lists the --format values in help order.
var ValidFormats = []string{FormatText, FormatJSON}

// RootOptions holds the persistent flags shared by every subcommand.
type RootOptions struct {
	Verbose bool
	Format  string
}

// NewRootCommand builds the pulsenet command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	root := &cobra.Command{
		Use:   "pulsenet",
		Short: "pulsenet - pulse propagation network simulator",
		Long: `Simulate networks of flip-flop, conjunction and broadcaster modules
connected by directed edges, driven by button presses.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(opts.Format); err != nil {
				return err
			}
			configureLogger(cmd, opts.Verbose)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", FormatText, "output format (json|text)")

	for _, newCmd := range []func(*RootOptions) *cobra.Command{
		NewCompileCommand,
		NewValidateCommand,
		NewPressCommand,
		NewRunCommand,
		NewConvergeCommand,
		NewTraceCommand,
		NewReplayCommand,
		NewTestCommand,
	} {
		root.AddCommand(newCmd(opts))
	}

	return root
}

func checkFormat(format string) error {
	if slices.Contains(ValidFormats, format) {
		return nil
	}
	return fmt.Errorf("invalid format %q: must be one of %v", format, ValidFormats)
}

// configureLogger sends slog output to the command's stderr; -v lowers the
// level to debug.
func configureLogger(cmd *cobra.Command, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
}
