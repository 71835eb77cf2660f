package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/bits"

	"github.com/roach88/pulsenet/internal/ir"
)

// FiniteResult is the outcome of a finite-mode run.
type FiniteResult struct {
	RunID    string `json:"run_id"`
	Presses  int    `json:"presses"`  // requested
	Executed int    `json:"executed"` // presses actually simulated
	Counted  int    `json:"counted"`  // simulated presses whose counts were summed

	Low    int64 `json:"low"`
	High   int64 `json:"high"`
	Result int64 `json:"result"` // Low * High

	// StoppedEarly is set when a post-press state repeated. RepeatPress
	// produced the repeated state; CycleStart first produced it.
	StoppedEarly bool `json:"stopped_early"`
	RepeatPress  int  `json:"repeat_press,omitempty"`
	CycleStart   int  `json:"cycle_start,omitempty"`

	// Extrapolated is set when Low/High cover the full budget by repeating
	// the detected cycle (WithExtrapolation).
	Extrapolated bool `json:"extrapolated"`

	PerPress []ir.PressStats `json:"per_press"`
}

// RunFinite resets the network and drives up to n presses.
//
// After every press the global-state fingerprint is compared with the
// fingerprints of all earlier presses. On the first repeat the run stops:
// the repeating press is simulated but its counts are not added, and the
// remaining presses are not extrapolated. The result is then only exact if
// no repeat occurs before n or the cycle divides the remaining distance.
// WithExtrapolation(true) instead extends the totals over all n presses
// using the detected cycle.
func (e *Engine) RunFinite(ctx context.Context, n int) (*FiniteResult, error) {
	if n < 0 {
		return nil, fmt.Errorf("RunFinite: negative press count %d", n)
	}
	e.Reset()

	res := &FiniteResult{
		RunID:   e.runIDs.Generate(),
		Presses: n,
	}

	if e.recorder != nil {
		rec, err := e.runRecord(res.RunID, ir.ModeFinite)
		if err != nil {
			return nil, err
		}
		rec.PressesRequested = n
		if err := e.recorder.BeginRun(ctx, rec); err != nil {
			return nil, fmt.Errorf("RunFinite: begin run: %w", err)
		}
	}

	slog.Info("finite run starting", "run_id", res.RunID, "presses", n, "modules", e.net.Len())

	if err := e.runFinite(ctx, res); err != nil {
		e.finish(ctx, res.RunID, 0, res.StoppedEarly, ir.RunStatusFailed)
		return nil, err
	}

	if err := e.finish(ctx, res.RunID, res.Result, res.StoppedEarly, ir.RunStatusComplete); err != nil {
		return nil, err
	}

	slog.Info("finite run complete",
		"run_id", res.RunID,
		"executed", res.Executed,
		"low", res.Low,
		"high", res.High,
		"result", res.Result,
		"stopped_early", res.StoppedEarly)

	return res, nil
}

func (e *Engine) runFinite(ctx context.Context, res *FiniteResult) error {
	history := NewStateHistory()

	for i := 0; i < res.Presses; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		stats, pulses, err := e.press(e.shouldTrace(e.clock.Press() + 1))
		if err != nil {
			return err
		}
		res.Executed = stats.Press

		fp, err := e.net.Fingerprint()
		if err != nil {
			return err
		}
		if err := e.recordPress(ctx, res.RunID, stats, fp, pulses); err != nil {
			return err
		}

		if first, ok := history.Seen(fp); ok {
			res.RepeatPress = stats.Press
			res.CycleStart = first
			slog.Info("repeated state",
				"run_id", res.RunID,
				"press", stats.Press,
				"first_seen", first)

			res.StoppedEarly = true
			if e.extrapolate {
				res.PerPress = append(res.PerPress, stats)
				res.Counted = len(res.PerPress)
				return extrapolate(res)
			}
			return total(res)
		}
		history.Record(fp, stats.Press)
		res.PerPress = append(res.PerPress, stats)
	}

	return total(res)
}

// total sums the counted presses and sets the result.
func total(res *FiniteResult) error {
	res.Counted = len(res.PerPress)
	res.Low, res.High = 0, 0
	for _, s := range res.PerPress {
		res.Low += s.Low
		res.High += s.High
	}
	return product(res)
}

// extrapolate extends the counts of presses 1..k (k = RepeatPress) over the
// full budget. The state after k equals the state after j = CycleStart, so
// presses j+1..k repeat forever with period k-j.
func extrapolate(res *FiniteResult) error {
	k, j := res.RepeatPress, res.CycleStart
	period := k - j
	remaining := res.Presses - k

	var low, high int64
	for _, s := range res.PerPress {
		low += s.Low
		high += s.High
	}

	var cycleLow, cycleHigh int64
	for _, s := range res.PerPress[j:k] {
		cycleLow += s.Low
		cycleHigh += s.High
	}

	full := int64(remaining / period)
	low, okLow := addMul(low, full, cycleLow)
	high, okHigh := addMul(high, full, cycleHigh)
	if !okLow || !okHigh {
		return NewOverflowError("extrapolated pulse count")
	}
	for _, s := range res.PerPress[j : j+remaining%period] {
		low += s.Low
		high += s.High
	}

	res.Low, res.High = low, high
	res.Extrapolated = true
	return product(res)
}

func product(res *FiniteResult) error {
	r, ok := mulInt64(res.Low, res.High)
	if !ok {
		return NewOverflowError("low * high")
	}
	res.Result = r
	return nil
}

// mulInt64 multiplies two non-negative values, reporting overflow.
func mulInt64(a, b int64) (int64, bool) {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > 1<<63-1 {
		return 0, false
	}
	return int64(lo), true
}

// addMul returns acc + n*x for non-negative operands, reporting overflow.
func addMul(acc, n, x int64) (int64, bool) {
	m, ok := mulInt64(n, x)
	if !ok {
		return 0, false
	}
	sum, carry := bits.Add64(uint64(acc), uint64(m), 0)
	if carry != 0 || sum > 1<<63-1 {
		return 0, false
	}
	return int64(sum), true
}

func (e *Engine) recordPress(ctx context.Context, runID string, stats ir.PressStats, fp string, pulses []ir.PulseRecord) error {
	if e.recorder == nil {
		return nil
	}
	for i := range pulses {
		pulses[i].RunID = runID
	}
	rec := ir.PressRecord{
		RunID:       runID,
		Press:       stats.Press,
		Low:         stats.Low,
		High:        stats.High,
		Fingerprint: fp,
	}
	if err := e.recorder.RecordPress(ctx, rec, pulses); err != nil {
		return fmt.Errorf("record press %d: %w", stats.Press, err)
	}
	return nil
}

// finish closes the run in the recorder. Errors while closing a failed run
// are logged, not returned.
func (e *Engine) finish(ctx context.Context, runID string, result int64, stoppedEarly bool, status string) error {
	if e.recorder == nil {
		return nil
	}
	err := e.recorder.FinishRun(ctx, runID, result, stoppedEarly, status)
	if err != nil {
		if status == ir.RunStatusFailed {
			slog.Error("failed to close run", "run_id", runID, "error", err)
			return nil
		}
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}
