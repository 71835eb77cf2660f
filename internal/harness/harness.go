package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/pulsenet/internal/engine"
	"github.com/roach88/pulsenet/internal/store"
	"github.com/roach88/pulsenet/internal/testutil"
)

// Harness runs one scenario against a fresh engine and run log.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a fixed run ID,
// so repeated runs produce identical traces.
//
// Execution flow:
//  1. Parse the network
//  2. Build the network and engine with the scenario's options
//  3. Run finite or convergence mode, recording into the store
//  4. Read the trace back from the store
//  5. Check expectations and assertions
//
// Runtime failures (malformed network, runaway press, incomplete
// convergence) are reported in the result, not as an error. The error
// return is reserved for problems loading the scenario or the store.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	decls, err := scenario.Declarations()
	if err != nil {
		return nil, fmt.Errorf("failed to load network: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		scenario: scenario,
		store:    st,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	result := NewResult()
	result.Mode = scenario.Mode
	result.RunID = scenario.RunID
	if result.RunID == "" {
		result.RunID = DefaultRunID
	}

	net, runErr := engine.NewNetwork(decls)
	if runErr == nil {
		eng := engine.New(net, h.engineOptions(result.RunID)...)
		runErr = h.execute(ctx, eng, result)
		result.State = net.Snapshot()
	}
	result.ErrorCode = errorCode(runErr)

	pulses, err := st.ReadPulses(ctx, result.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	for _, p := range pulses {
		result.AddPulse(p)
	}

	h.checkExpect(result, runErr)
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario complete",
		"scenario", scenario.Name,
		"run_id", result.RunID,
		"pass", result.Pass,
		"pulses", len(result.Trace),
	)
	return result, nil
}

func (h *Harness) engineOptions(runID string) []engine.EngineOption {
	s := h.scenario
	opts := []engine.EngineOption{
		engine.WithRecorder(h.store),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(runID)),
		engine.WithTraceLimit(s.TracePresses),
		engine.WithExtrapolation(s.Extrapolate),
	}
	if s.MaxPulses > 0 {
		opts = append(opts, engine.WithMaxPulsesPerPress(s.MaxPulses))
	}
	if s.MaxPresses > 0 {
		opts = append(opts, engine.WithMaxPresses(s.MaxPresses))
	}
	return opts
}

func (h *Harness) execute(ctx context.Context, eng *engine.Engine, result *Result) error {
	switch h.scenario.Mode {
	case ModeFinite:
		res, err := eng.RunFinite(ctx, h.scenario.Presses)
		if err != nil {
			result.Presses = eng.Presses()
			return err
		}
		result.Value = res.Result
		result.Low = res.Low
		result.High = res.High
		result.Presses = res.Executed
		result.StoppedEarly = res.StoppedEarly
		return nil

	case ModeConverge:
		res, err := eng.RunConvergence(ctx, h.scenario.Target)
		if err != nil {
			result.Presses = eng.Presses()
			return err
		}
		result.Value = res.Result
		result.Presses = res.Presses
		result.FirstHigh = res.FirstHigh
		return nil

	default:
		return fmt.Errorf("unknown mode %q", h.scenario.Mode)
	}
}

// checkExpect compares the run outcome with the scenario's expect clause.
func (h *Harness) checkExpect(result *Result, runErr error) {
	exp := h.scenario.Expect
	if exp == nil {
		if runErr != nil {
			result.AddError(fmt.Sprintf("run failed: %v", runErr))
		}
		return
	}

	if exp.Error != "" {
		if runErr == nil {
			result.AddError(fmt.Sprintf("expected error %s, run succeeded", exp.Error))
		} else if result.ErrorCode != exp.Error {
			result.AddError(fmt.Sprintf("expected error %s, got: %v", exp.Error, runErr))
		}
		return
	}
	if runErr != nil {
		result.AddError(fmt.Sprintf("run failed: %v", runErr))
		return
	}

	if exp.Result != nil && *exp.Result != result.Value {
		result.AddError(fmt.Sprintf("result: expected %d, got %d", *exp.Result, result.Value))
	}
	if exp.Low != nil && *exp.Low != result.Low {
		result.AddError(fmt.Sprintf("low: expected %d, got %d", *exp.Low, result.Low))
	}
	if exp.High != nil && *exp.High != result.High {
		result.AddError(fmt.Sprintf("high: expected %d, got %d", *exp.High, result.High))
	}
	if exp.StoppedEarly != nil && *exp.StoppedEarly != result.StoppedEarly {
		result.AddError(fmt.Sprintf("stopped_early: expected %t, got %t", *exp.StoppedEarly, result.StoppedEarly))
	}
	if exp.Presses != nil && *exp.Presses != result.Presses {
		result.AddError(fmt.Sprintf("presses: expected %d, got %d", *exp.Presses, result.Presses))
	}

	feeders := make([]string, 0, len(exp.Feeders))
	for f := range exp.Feeders {
		feeders = append(feeders, f)
	}
	slices.Sort(feeders)
	for _, f := range feeders {
		got, ok := result.FirstHigh[f]
		switch {
		case !ok:
			result.AddError(fmt.Sprintf("feeder %s: not a feeder of the target (feeders: %s)",
				f, strings.Join(sortedKeys(result.FirstHigh), ", ")))
		case got != exp.Feeders[f]:
			result.AddError(fmt.Sprintf("feeder %s: expected first high at press %d, got %d", f, exp.Feeders[f], got))
		}
	}
}

// errorCode maps a run error to its runtime error code, or "".
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	if engine.IsQuotaExceeded(err) {
		return string(engine.ErrCodeRunawaySimulation)
	}
	return ""
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
