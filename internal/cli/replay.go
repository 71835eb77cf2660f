package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/pulsenet/internal/engine"
	"github.com/roach88/pulsenet/internal/ir"
	"github.com/roach88/pulsenet/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database  string
	RunID     string // optional - specific run only
	MaxPulses int
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	*engine.ReplayReport
	Skipped string `json:"skipped,omitempty"` // reason the run was not replayed
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	Replayed         int               `json:"replayed"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run recorded runs and verify determinism",
		Long: `Re-run recorded runs from their stored declarations and parameters,
and compare per-press counts, the recorded pulse trace and the result.

Runs that failed, or were interrupted before finishing, are skipped.

Exit codes:
  0 - All replayed runs are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  pulsenet replay --db ./runs.db
  pulsenet replay --db ./runs.db --run 0190...
  pulsenet replay --db ./runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")
	cmd.Flags().IntVar(&opts.MaxPulses, "max-pulses", engine.DefaultMaxPulsesPerPress,
		"pulse quota per press (0 = unbounded)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingRunLog(opts.Database)
	if err != nil {
		return formatter.Failure(ExitCommandError, ErrCodeNotFound, "failed to open database", err)
	}
	defer st.Close()

	var runs []ir.RunRecord
	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrRunNotFound) {
			return formatter.Failure(ExitCommandError, ErrCodeNotFound, "run not found", err)
		}
		if err != nil {
			return formatter.Failure(ExitCommandError, ErrCodeDatabase, "failed to read run", err)
		}
		runs = []ir.RunRecord{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return formatter.Failure(ExitCommandError, ErrCodeDatabase, "failed to list runs", err)
		}
	}

	interrupted, err := st.FindIncompleteRuns(ctx)
	if err != nil {
		return formatter.Failure(ExitCommandError, ErrCodeDatabase, "failed to inspect runs", err)
	}
	lastPress := make(map[string]int, len(interrupted))
	for _, state := range interrupted {
		lastPress[state.Run.ID] = state.LastPress
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}

	for _, run := range runs {
		if run.Status != ir.RunStatusComplete {
			reason := fmt.Sprintf("status %s", run.Status)
			if last, ok := lastPress[run.ID]; ok {
				reason = fmt.Sprintf("interrupted after press %d", last)
				slog.Warn("run never finished", "run", run.ID, "last_press", last)
			}
			result.Runs = append(result.Runs, ReplayRunResult{
				ReplayReport: &engine.ReplayReport{RunID: run.ID, Mode: run.Mode},
				Skipped:      reason,
			})
			continue
		}

		formatter.VerboseLog("Replaying run %s (%s)", run.ID, run.Mode)
		report, err := engine.Replay(ctx, st, run.ID, engine.WithMaxPulsesPerPress(opts.MaxPulses))
		if err != nil {
			return formatter.Failure(ExitCommandError, runtimeErrorCode(err),
				fmt.Sprintf("failed to replay run %s", run.ID), err)
		}

		result.Replayed++
		result.Runs = append(result.Runs, ReplayRunResult{ReplayReport: report})
		if !report.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == FormatJSON {
		return outputReplayJSON(formatter, result)
	}

	return outputReplayText(formatter.Writer, result, opts.Verbose)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDeterminism,
			Message: "determinism verification failed",
		}
	}

	if err := formatter.encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(w io.Writer, result ReplayResult, verbose bool) error {
	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d run(s), %d replayed\n", result.TotalRuns, result.Replayed)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		if run.Skipped != "" {
			fmt.Fprintf(w, "- Run: %s (skipped: %s)\n\n", run.RunID, run.Skipped)
			continue
		}

		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Run: %s (%s)\n", status, run.RunID, run.Mode)

		if verbose {
			fmt.Fprintf(w, "  Presses compared: %d\n", run.PressesCompared)
			fmt.Fprintf(w, "  Pulses compared:  %d\n", run.PulsesCompared)
			fmt.Fprintf(w, "  Result: stored %d, replayed %d\n", run.StoredResult, run.ReplayedResult)
		} else {
			fmt.Fprintf(w, "  Result: %d\n", run.ReplayedResult)
		}

		for _, d := range run.Differences {
			fmt.Fprintf(w, "  Difference: %s\n", d)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
