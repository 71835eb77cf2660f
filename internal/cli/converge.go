package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/pulsenet/internal/engine"
)

// ConvergeOptions holds flags for the converge command.
type ConvergeOptions struct {
	SimulationOptions
	Target     string
	MaxPresses int
}

// NewConvergeCommand creates the converge command.
func NewConvergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvergeOptions{SimulationOptions: SimulationOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "converge <network-file>",
		Short: "Find the first press that sends low to the target",
		Long: `Press the button until every feeder of the conjunction in front of
--target has sent it a high pulse, then report the least common multiple
of the first press on which each feeder did so.

The target must have a single input, and that input must be a
conjunction. The answer assumes each feeder sends high every k presses,
starting at press k. --max-presses bounds the search (0 = unbounded).

Example:
  pulsenet converge network.txt --target rx
  pulsenet converge network.txt --target rx --max-presses 100000 --db ./runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConverge(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Target, "target", "rx", "sink module to converge on")
	cmd.Flags().IntVar(&opts.MaxPresses, "max-presses", 0, "press bound (0 = unbounded)")
	addSimulationFlags(cmd, &opts.SimulationOptions, true)

	return cmd
}

func runConverge(opts *ConvergeOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.MaxPresses < 0 {
		return formatter.Failure(ExitCommandError, ErrCodeGeneric,
			fmt.Sprintf("--max-presses must be non-negative, got %d", opts.MaxPresses), nil)
	}

	decls, err := LoadValidNetwork(path)
	if err != nil {
		code, message := loadErrorCode(err)
		return formatter.Failure(ExitCommandError, code, message, nil)
	}

	st, err := opts.openRunLog()
	if err != nil {
		return formatter.Failure(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer closeRunLog(st)

	net, err := engine.NewNetwork(decls)
	if err != nil {
		return formatter.Failure(ExitCommandError, runtimeErrorCode(err), "building network", err)
	}
	engineOpts := append(opts.engineOptions(st), engine.WithMaxPresses(opts.MaxPresses))
	eng := engine.New(net, engineOpts...)

	ctx, stop := signalContext(cmd)
	defer stop()

	res, err := eng.RunConvergence(ctx, opts.Target)
	switch {
	case engine.IsIncompleteConvergence(err):
		return formatter.Failure(ExitCommandError, runtimeErrorCode(err),
			fmt.Sprintf("no convergence within --max-presses %d", opts.MaxPresses), err)
	case err != nil:
		return formatter.Failure(ExitCommandError, runtimeErrorCode(err), "convergence failed", err)
	}

	if formatter.JSON() {
		return formatter.Success(res)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Run %s\n", res.RunID)
	fmt.Fprintf(w, "  Target: %s (via %s)\n", res.Target, res.Conjunction)
	fmt.Fprintf(w, "  Presses simulated: %d\n", res.Presses)
	fmt.Fprintln(w, "  First high:")
	feeders := slices.Clone(res.Feeders)
	slices.Sort(feeders)
	for _, f := range feeders {
		fmt.Fprintf(w, "    %-12s press %d\n", f, res.FirstHigh[f])
	}
	fmt.Fprintf(w, "  Result: %d\n", res.Result)
	if st != nil {
		fmt.Fprintf(w, "Recorded in %s\n", opts.Database)
	}
	return nil
}
