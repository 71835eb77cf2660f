package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pulsenet/internal/engine"
	"github.com/roach88/pulsenet/internal/ir"
)

// PressOptions holds flags for the press command.
type PressOptions struct {
	SimulationOptions
	Count  int
	Pulses bool
}

// PressLine is the outcome of one press.
type PressLine struct {
	ir.PressStats
	Fingerprint string     `json:"fingerprint"`
	RepeatOf    int        `json:"repeat_of,omitempty"` // earlier press with the same post-press state
	Pulses      []ir.Pulse `json:"pulses,omitempty"`    // delivered pulses, with --pulses
}

// PressReport holds the per-press counts of a press session.
type PressReport struct {
	Presses    []PressLine `json:"presses"`
	Low        int64       `json:"low"`
	High       int64       `json:"high"`
	Deliveries int64       `json:"deliveries"`
}

// NewPressCommand creates the press command.
func NewPressCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PressOptions{SimulationOptions: SimulationOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "press <network-file>",
		Short: "Press the button and show per-press pulse counts",
		Long: `Press the button a fixed number of times and report the low and high
pulses delivered by each press, together with the post-press state
fingerprint. Presses whose state repeats an earlier press are marked.

Nothing is recorded and no press is skipped. --pulses also lists every
delivered pulse in delivery order.

Examples:
  pulsenet press network.txt --count 4
  pulsenet press network.txt --pulses
  pulsenet press network.cue --count 10 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPress(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", 1, "number of presses")
	cmd.Flags().BoolVar(&opts.Pulses, "pulses", false, "list the pulses delivered by each press")
	addSimulationFlags(cmd, &opts.SimulationOptions, false)

	return cmd
}

func runPress(opts *PressOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Count < 0 {
		return formatter.Failure(ExitCommandError, ErrCodeGeneric,
			fmt.Sprintf("--count must be non-negative, got %d", opts.Count), nil)
	}

	decls, err := LoadValidNetwork(path)
	if err != nil {
		code, message := loadErrorCode(err)
		return formatter.Failure(ExitCommandError, code, message, nil)
	}

	net, err := engine.NewNetwork(decls)
	if err != nil {
		return formatter.Failure(ExitCommandError, runtimeErrorCode(err), "building network", err)
	}
	engOpts := opts.engineOptions(nil)
	var collector *engine.TraceCollector
	if opts.Pulses {
		collector = &engine.TraceCollector{}
		engOpts = append(engOpts, engine.WithObserver(collector))
	}
	if formatter.Verbose {
		engOpts = append(engOpts, engine.WithObserver(engine.ObserverFunc(func(ev engine.PulseEvent) {
			formatter.VerboseLog("  seq %d: %s", ev.Seq, ev.Pulse)
		})))
	}
	eng := engine.New(net, engOpts...)

	ctx, stop := signalContext(cmd)
	defer stop()

	report := PressReport{Presses: make([]PressLine, 0, opts.Count)}
	history := engine.NewStateHistory()
	for i := 0; i < opts.Count; i++ {
		stats, err := eng.Press(ctx)
		if err != nil {
			return formatter.Failure(ExitCommandError, runtimeErrorCode(err),
				fmt.Sprintf("press %d failed", i+1), err)
		}
		fp, err := net.Fingerprint()
		if err != nil {
			return formatter.Failure(ExitCommandError, ErrCodeGeneric, "fingerprinting state", err)
		}

		line := PressLine{PressStats: stats, Fingerprint: fp}
		if collector != nil {
			line.Pulses = collector.Pulses()
			collector.Events = collector.Events[:0]
		}
		if first, ok := history.Seen(fp); ok {
			line.RepeatOf = first
		}
		history.Record(fp, stats.Press)

		report.Presses = append(report.Presses, line)
		report.Low += stats.Low
		report.High += stats.High
		formatter.VerboseLog("press %d: low=%d high=%d", stats.Press, stats.Low, stats.High)
	}

	report.Deliveries = eng.Deliveries()

	if formatter.JSON() {
		return formatter.Success(report)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%-6s %8s %8s  %s\n", "PRESS", "LOW", "HIGH", "STATE")
	for _, line := range report.Presses {
		note := ""
		if line.RepeatOf > 0 {
			note = fmt.Sprintf(" (repeats press %d)", line.RepeatOf)
		}
		fmt.Fprintf(w, "%-6d %8d %8d  %s%s\n", line.Press, line.Low, line.High, shortHash(line.Fingerprint), note)
		for _, p := range line.Pulses {
			fmt.Fprintf(w, "       %s\n", p)
		}
	}
	fmt.Fprintf(w, "%-6s %8d %8d\n", "total", report.Low, report.High)
	return nil
}

// shortHash truncates a hex digest for display.
func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:12]
}
