package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/pulsenet/internal/engine"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	SimulationOptions
	Presses     int
	Extrapolate bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{SimulationOptions: SimulationOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "run <network-file>",
		Short: "Run finite mode and report low x high",
		Long: `Press the button up to --presses times and report the total low and
high pulse counts and their product.

The run stops at the first press whose post-press state repeats an
earlier one; that press is simulated but not counted. With --extrapolate
the counts are instead extended over all presses using the detected cycle.

With --db the run is recorded in a SQLite run log for trace and replay.

Example:
  pulsenet run network.txt --presses 1000
  pulsenet run network.txt --presses 1000 --extrapolate --db ./runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFinite(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Presses, "presses", "n", 1000, "press budget")
	cmd.Flags().BoolVar(&opts.Extrapolate, "extrapolate", false, "extend counts over the detected cycle")
	addSimulationFlags(cmd, &opts.SimulationOptions, true)

	return cmd
}

func runFinite(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Presses < 0 {
		return formatter.Failure(ExitCommandError, ErrCodeGeneric,
			fmt.Sprintf("--presses must be non-negative, got %d", opts.Presses), nil)
	}

	slog.Debug("loading network", "path", path)
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
	engineOpts := append(opts.engineOptions(st), engine.WithExtrapolation(opts.Extrapolate))
	eng := engine.New(net, engineOpts...)

	ctx, stop := signalContext(cmd)
	defer stop()

	res, err := eng.RunFinite(ctx, opts.Presses)
	if err != nil {
		return formatter.Failure(ExitCommandError, runtimeErrorCode(err), "run failed", err)
	}

	if formatter.JSON() {
		return formatter.Success(res)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Run %s\n", res.RunID)
	fmt.Fprintf(w, "  Presses: %d requested, %d simulated, %d counted\n", res.Presses, res.Executed, res.Counted)
	if res.StoppedEarly {
		mode := "not extrapolated"
		if res.Extrapolated {
			mode = "extrapolated"
		}
		fmt.Fprintf(w, "  Stopped early: press %d repeats press %d (%s)\n", res.RepeatPress, res.CycleStart, mode)
	}
	fmt.Fprintf(w, "  Low:    %d\n", res.Low)
	fmt.Fprintf(w, "  High:   %d\n", res.High)
	fmt.Fprintf(w, "  Result: %d\n", res.Result)
	if st != nil {
		fmt.Fprintf(w, "Recorded in %s\n", opts.Database)
	}
	return nil
}
