package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/pulsenet/internal/ir"
	"github.com/roach88/pulsenet/internal/queryir"
	"github.com/roach88/pulsenet/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database    string
	RunID       string // optional - defaults to the latest run
	Press       int
	Source      string
	Destination string
	Level       string
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID      string           `json:"run_id"`
	Mode       string           `json:"mode"`
	Status     string           `json:"status"`
	Result     int64            `json:"result"`
	Pulses     []ir.PulseRecord `json:"pulses"`
	FeederHits []ir.FeederHit   `json:"feeder_hits,omitempty"`
	Stats      TraceStats       `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Matched    int   `json:"matched"`
	Low        int64 `json:"low"`
	High       int64 `json:"high"`
	Presses    int   `json:"presses"`     // recorded presses in the run
	Traced     int   `json:"traced"`      // recorded pulses in the run
	IsComplete bool  `json:"is_complete"` // finished and no press missing
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query the recorded pulses of a run",
		Long: `Query the pulse trace recorded by run or converge --db.

Pulses are listed in delivery order. Filters combine with AND:
--press, --source, --destination and --level (low|high). Without --run
the most recent run is shown.

Examples:
  pulsenet trace --db ./runs.db
  pulsenet trace --db ./runs.db --run 0190... --press 3
  pulsenet trace --db ./runs.db --destination rx --level low --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to trace (default: latest)")
	cmd.Flags().IntVar(&opts.Press, "press", 0, "only pulses of this press")
	cmd.Flags().StringVar(&opts.Source, "source", "", "only pulses sent by this module")
	cmd.Flags().StringVar(&opts.Destination, "destination", "", "only pulses delivered to this module")
	cmd.Flags().StringVar(&opts.Level, "level", "", "only pulses of this level (low|high)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingRunLog(opts.Database)
	if err != nil {
		return formatter.Failure(ExitCommandError, ErrCodeNotFound, "failed to open database", err)
	}
	defer st.Close()

	run, err := resolveRun(ctx, st, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.Failure(ExitCommandError, ErrCodeNotFound, "run not found", err)
	}
	if err != nil {
		return formatter.Failure(ExitCommandError, ErrCodeDatabase, "failed to read run", err)
	}

	filter, err := traceFilter(run.ID, opts)
	if err != nil {
		return formatter.Failure(ExitCommandError, ErrCodeGeneric, "invalid filter", err)
	}
	pulses, err := st.QueryPulses(ctx, filter)
	if err != nil {
		return formatter.Failure(ExitCommandError, ErrCodeDatabase, "failed to query pulses", err)
	}

	state, err := st.GetRunState(ctx, run.ID)
	if err != nil {
		return formatter.Failure(ExitCommandError, ErrCodeDatabase, "failed to get run state", err)
	}

	result := TraceResult{
		RunID:      run.ID,
		Mode:       run.Mode,
		Status:     run.Status,
		Result:     run.Result,
		Pulses:     pulses,
		FeederHits: state.FeederHits,
		Stats: TraceStats{
			Matched:    len(pulses),
			Presses:    state.Presses,
			Traced:     state.Pulses,
			IsComplete: state.IsComplete,
		},
	}
	for _, p := range pulses {
		if p.Level == ir.High {
			result.Stats.High++
		} else {
			result.Stats.Low++
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	outputTraceText(formatter.Writer, result, opts.Verbose)
	return nil
}

// resolveRun reads the named run, or the latest run when id is empty.
func resolveRun(ctx context.Context, st *store.Store, id string) (ir.RunRecord, error) {
	if id == "" {
		return st.LatestRun(ctx)
	}
	return st.ReadRun(ctx, id)
}

// traceFilter builds the pulse filter for the trace flags.
func traceFilter(runID string, opts *TraceOptions) (queryir.Predicate, error) {
	preds := []queryir.Predicate{
		queryir.Equals{Field: "run_id", Value: ir.IRString(runID)},
	}
	if opts.Press < 0 {
		return nil, fmt.Errorf("--press must be positive, got %d", opts.Press)
	}
	if opts.Press > 0 {
		preds = append(preds, queryir.Equals{Field: "press", Value: ir.IRInt(opts.Press)})
	}
	if opts.Source != "" {
		preds = append(preds, queryir.Equals{Field: "source", Value: ir.IRString(opts.Source)})
	}
	if opts.Destination != "" {
		preds = append(preds, queryir.Equals{Field: "destination", Value: ir.IRString(opts.Destination)})
	}
	if opts.Level != "" {
		if _, err := ir.ParseLevel(opts.Level); err != nil {
			return nil, err
		}
		preds = append(preds, queryir.Equals{Field: "level", Value: ir.IRString(opts.Level)})
	}
	return queryir.Where(preds...), nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Trace for Run: %s\n", result.RunID)
	fmt.Fprintf(w, "Mode: %s  Status: %s  Result: %d\n", result.Mode, completeStatus(result), result.Result)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Pulses ===")
	if len(result.Pulses) == 0 {
		fmt.Fprintln(w, "  (no pulses)")
	}
	press := 0
	for _, p := range result.Pulses {
		if p.Press != press {
			press = p.Press
			fmt.Fprintf(w, "  -- press %d --\n", press)
		}
		fmt.Fprintf(w, "  [%d] %s -%s-> %s\n", p.Seq, p.Source, p.Level, p.Destination)
	}
	fmt.Fprintln(w)

	if len(result.FeederHits) > 0 {
		fmt.Fprintln(w, "=== Feeders ===")
		for _, h := range result.FeederHits {
			fmt.Fprintf(w, "  %s: first high at press %d\n", h.Feeder, h.Press)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Matched: %d (%d low, %d high)\n", result.Stats.Matched, result.Stats.Low, result.Stats.High)
	if verbose {
		fmt.Fprintf(w, "  Presses recorded: %d\n", result.Stats.Presses)
		fmt.Fprintf(w, "  Pulses recorded:  %d\n", result.Stats.Traced)
	}
}

// completeStatus returns a human-readable run status.
func completeStatus(result TraceResult) string {
	if result.Stats.IsComplete {
		return "complete"
	}
	return result.Status + " (incomplete)"
}
