package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/pulsenet/internal/ir"
)

// ConvergenceResult is the outcome of a convergence-mode run.
type ConvergenceResult struct {
	RunID       string         `json:"run_id"`
	Target      string         `json:"target"`
	Conjunction string         `json:"conjunction"`
	Feeders     []string       `json:"feeders"`    // conjunction inputs, registration order
	FirstHigh   map[string]int `json:"first_high"` // feeder -> first press it sent high
	Presses     int            `json:"presses"`    // presses simulated
	Result      int64          `json:"result"`     // LCM of FirstHigh values
}

// ResolveFeeders finds the conjunction watched for target and its feeders.
//
// The target must exist and exactly one of its inputs must be a conjunction
// with at least one input of its own. Inputs of other kinds are ignored.
// Anything else is a MALFORMED_NETWORK error.
func ResolveFeeders(net *Network, target string) (string, []string, error) {
	t := net.Module(target)
	if t == nil {
		return "", nil, NewMalformedError(target, "convergence target does not exist")
	}

	var conj *Module
	for _, name := range t.Inputs() {
		m := net.Module(name)
		if m == nil || m.Kind() != ir.KindConjunction {
			continue
		}
		if conj != nil {
			return "", nil, NewMalformedError(target,
				fmt.Sprintf("convergence target is fed by conjunctions %q and %q", conj.Name(), name))
		}
		conj = m
	}
	if conj == nil {
		return "", nil, NewMalformedError(target, "convergence target is not fed by a conjunction")
	}

	feeders := conj.Inputs()
	if len(feeders) == 0 {
		return "", nil, NewMalformedError(conj.Name(), "watched conjunction has no inputs")
	}
	return conj.Name(), feeders, nil
}

// feederWatch records the first press at which each feeder delivers a high
// pulse to the watched conjunction. It runs as an Observer so highs that
// are overwritten later in the same press are still seen.
type feederWatch struct {
	conjunction string
	firstHigh   map[string]int
	hits        []ir.FeederHit // newly resolved, drained after each press
}

func (w *feederWatch) OnPulse(ev PulseEvent) {
	p := ev.Pulse
	if p.Destination != w.conjunction || p.Level != ir.High {
		return
	}
	if press, tracked := w.firstHigh[p.Source]; !tracked || press != 0 {
		return
	}
	w.firstHigh[p.Source] = ev.Press
	w.hits = append(w.hits, ir.FeederHit{Feeder: p.Source, Press: ev.Press})
}

func (w *feederWatch) unresolved() []string {
	var out []string
	for f, press := range w.firstHigh {
		if press == 0 {
			out = append(out, f)
		}
	}
	slices.Sort(out)
	return out
}

// RunConvergence resets the network and presses until every feeder of the
// conjunction that feeds target has sent it a high pulse, then returns the
// least common multiple of those first presses.
//
// The LCM equals the first press at which all feeders are high together
// only if each feeder's highs recur with a period equal to its first
// occurrence. That is a property of the input network; it is not checked.
//
// Without WithMaxPresses the loop is unbounded. With a bound, running out
// of presses returns an INCOMPLETE_CONVERGENCE error.
func (e *Engine) RunConvergence(ctx context.Context, target string) (*ConvergenceResult, error) {
	conj, feeders, err := ResolveFeeders(e.net, target)
	if err != nil {
		return nil, err
	}
	e.Reset()

	res := &ConvergenceResult{
		RunID:       e.runIDs.Generate(),
		Target:      target,
		Conjunction: conj,
		Feeders:     feeders,
	}

	watch := &feederWatch{conjunction: conj, firstHigh: make(map[string]int, len(feeders))}
	for _, f := range feeders {
		watch.firstHigh[f] = 0
	}
	e.observers = append(e.observers, watch)
	defer func() {
		e.observers = e.observers[:len(e.observers)-1]
	}()

	if e.recorder != nil {
		rec, err := e.runRecord(res.RunID, ir.ModeConverge)
		if err != nil {
			return nil, err
		}
		rec.Target = target
		rec.MaxPresses = e.maxPresses
		if err := e.recorder.BeginRun(ctx, rec); err != nil {
			return nil, fmt.Errorf("RunConvergence: begin run: %w", err)
		}
	}

	slog.Info("convergence run starting",
		"run_id", res.RunID,
		"target", target,
		"conjunction", conj,
		"feeders", len(feeders))

	if err := e.runConvergence(ctx, res, watch); err != nil {
		e.finish(ctx, res.RunID, 0, false, ir.RunStatusFailed)
		return nil, err
	}
	if err := e.finish(ctx, res.RunID, res.Result, false, ir.RunStatusComplete); err != nil {
		return nil, err
	}

	slog.Info("convergence run complete",
		"run_id", res.RunID,
		"presses", res.Presses,
		"result", res.Result)

	return res, nil
}

func (e *Engine) runConvergence(ctx context.Context, res *ConvergenceResult, watch *feederWatch) error {
	remaining := len(watch.firstHigh)

	for remaining > 0 {
		if e.maxPresses > 0 && e.clock.Press() >= e.maxPresses {
			return NewIncompleteConvergenceError(res.Target, e.maxPresses, watch.unresolved())
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		stats, pulses, err := e.press(e.shouldTrace(e.clock.Press() + 1))
		if err != nil {
			return err
		}
		res.Presses = stats.Press

		if e.recorder != nil {
			fp, err := e.net.Fingerprint()
			if err != nil {
				return err
			}
			if err := e.recordPress(ctx, res.RunID, stats, fp, pulses); err != nil {
				return err
			}
		}

		for _, hit := range watch.hits {
			slog.Debug("feeder resolved", "feeder", hit.Feeder, "press", hit.Press)
			if e.recorder != nil {
				hit.RunID = res.RunID
				if err := e.recorder.RecordFeederHit(ctx, hit); err != nil {
					return fmt.Errorf("record feeder hit %s: %w", hit.Feeder, err)
				}
			}
		}
		remaining -= len(watch.hits)
		watch.hits = watch.hits[:0]
	}

	res.FirstHigh = watch.firstHigh
	presses := make([]int64, 0, len(res.Feeders))
	for _, f := range res.Feeders {
		presses = append(presses, int64(watch.firstHigh[f]))
	}
	result, err := LCM(presses...)
	if err != nil {
		return err
	}
	res.Result = result
	return nil
}

// LCM returns the least common multiple of positive values.
// Returns a RESULT_OVERFLOW error if the result does not fit in int64.
func LCM(values ...int64) (int64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("LCM: no values")
	}
	acc := int64(1)
	for _, v := range values {
		if v <= 0 {
			return 0, fmt.Errorf("LCM: non-positive value %d", v)
		}
		step := v / gcd(acc, v)
		next, ok := mulInt64(acc, step)
		if !ok {
			return 0, NewOverflowError("least common multiple")
		}
		acc = next
	}
	return acc, nil
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
