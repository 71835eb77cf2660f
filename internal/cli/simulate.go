package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/pulsenet/internal/engine"
	"github.com/roach88/pulsenet/internal/store"
)

// SimulationOptions holds the flags shared by press, run and converge.
type SimulationOptions struct {
	*RootOptions
	Database     string
	RunID        string
	MaxPulses    int
	TracePresses int

	// RunIDGenerator overrides run identifiers (for testing).
	// If nil, RunID is used when set, else UUIDv7Generator.
	RunIDGenerator engine.RunIDGenerator
}

// addSimulationFlags registers the shared flags. recording adds the run
// log flags.
func addSimulationFlags(cmd *cobra.Command, opts *SimulationOptions, recording bool) {
	cmd.Flags().IntVar(&opts.MaxPulses, "max-pulses", engine.DefaultMaxPulsesPerPress,
		"pulse quota per press (0 = unbounded)")
	if !recording {
		return
	}
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run identifier (default: UUIDv7)")
	cmd.Flags().IntVar(&opts.TracePresses, "trace-presses", 0,
		"record pulses for the first N presses only (0 = every press)")
}

// engineOptions builds the engine options for the shared flags.
func (o *SimulationOptions) engineOptions(st *store.Store) []engine.EngineOption {
	opts := []engine.EngineOption{engine.WithMaxPulsesPerPress(o.MaxPulses)}
	switch {
	case o.RunIDGenerator != nil:
		opts = append(opts, engine.WithRunIDGenerator(o.RunIDGenerator))
	case o.RunID != "":
		opts = append(opts, engine.WithRunIDGenerator(engine.NewFixedGenerator(o.RunID)))
	}
	if st != nil {
		opts = append(opts, engine.WithRecorder(st), engine.WithTraceLimit(o.TracePresses))
	}
	return opts
}

// openRunLog opens the database named by --db, or returns nil when no
// database was requested.
func (o *SimulationOptions) openRunLog() (*store.Store, error) {
	if o.Database == "" {
		return nil, nil
	}
	slog.Debug("opening database", "path", o.Database)
	return store.Open(o.Database)
}

// closeRunLog closes st if it is open.
func closeRunLog(st *store.Store) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
// The command's context is used as parent when set (for testing).
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// runtimeErrorCode returns the runtime error code of err, or ErrCodeRuntime.
func runtimeErrorCode(err error) string {
	var re *engine.RuntimeError
	switch {
	case errors.As(err, &re):
		return string(re.Code)
	case engine.IsQuotaExceeded(err):
		return string(engine.ErrCodeRunawaySimulation)
	}
	return ErrCodeRuntime
}

// openExistingRunLog opens a run log that must already exist.
func openExistingRunLog(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return store.Open(path)
}
