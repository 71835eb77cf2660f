package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/pulsenet/internal/ir"
	"github.com/roach88/pulsenet/internal/store"
)

// ReplayReport is the result of re-running a stored run.
type ReplayReport struct {
	RunID           string   `json:"run_id"`
	Mode            string   `json:"mode"`
	Deterministic   bool     `json:"deterministic"`
	PressesCompared int      `json:"presses_compared"`
	PulsesCompared  int      `json:"pulses_compared"`
	StoredResult    int64    `json:"stored_result"`
	ReplayedResult  int64    `json:"replayed_result"`
	Differences     []string `json:"differences,omitempty"`
}

// maxReportedDifferences caps ReplayReport.Differences.
const maxReportedDifferences = 20

func (r *ReplayReport) diff(format string, args ...any) {
	r.Deterministic = false
	if len(r.Differences) < maxReportedDifferences {
		r.Differences = append(r.Differences, fmt.Sprintf(format, args...))
	}
}

// replayObserver counts pulses per press and keeps the pulses of the
// presses that were traced in the stored run.
type replayObserver struct {
	tracePresses int
	counts       []ir.PressStats
	pulses       []ir.PulseRecord
}

func (o *replayObserver) OnPulse(ev PulseEvent) {
	for len(o.counts) < ev.Press {
		o.counts = append(o.counts, ir.PressStats{Press: len(o.counts) + 1})
	}
	c := &o.counts[ev.Press-1]
	if ev.Pulse.Level == ir.High {
		c.High++
	} else {
		c.Low++
	}
	if ev.Press <= o.tracePresses {
		o.pulses = append(o.pulses, ir.PulseRecord{
			Press:       ev.Press,
			Seq:         ev.Seq,
			Source:      ev.Pulse.Source,
			Level:       ev.Pulse.Level,
			Destination: ev.Pulse.Destination,
		})
	}
}

// Replay rebuilds the network of a stored run, runs it again with the same
// mode and parameters, and compares network hash, per-press counts, the
// stored pulse trace and the result.
//
// Replay never writes to the store. opts are applied after the stored
// parameters, so callers can override the pulse quota.
func Replay(ctx context.Context, st *store.Store, runID string, opts ...EngineOption) (*ReplayReport, error) {
	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}
	if run.Status != ir.RunStatusComplete {
		return nil, fmt.Errorf("replay %s: run status is %q, want %q", runID, run.Status, ir.RunStatusComplete)
	}
	storedPresses, err := st.ReadPresses(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}
	storedPulses, err := st.ReadPulses(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}

	report := &ReplayReport{
		RunID:         runID,
		Mode:          run.Mode,
		Deterministic: true,
		StoredResult:  run.Result,
	}

	hash, err := ir.NetworkHash(run.Declarations)
	if err != nil {
		return nil, err
	}
	if hash != run.NetworkHash {
		report.diff("network hash: stored %s, replayed %s", run.NetworkHash, hash)
	}

	net, err := NewNetwork(run.Declarations)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}

	traced := 0
	for _, p := range storedPulses {
		traced = max(traced, p.Press)
	}
	obs := &replayObserver{tracePresses: traced}

	engineOpts := []EngineOption{
		WithRunIDGenerator(NewFixedGenerator(runID)),
		WithExtrapolation(run.Extrapolate),
		WithMaxPresses(run.MaxPresses),
		WithObserver(obs),
	}
	eng := New(net, append(engineOpts, opts...)...)

	slog.Info("replaying run", "run_id", runID, "mode", run.Mode)

	switch run.Mode {
	case ir.ModeFinite:
		res, err := eng.RunFinite(ctx, run.PressesRequested)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", runID, err)
		}
		report.ReplayedResult = res.Result
		if res.StoppedEarly != run.StoppedEarly {
			report.diff("stopped early: stored %t, replayed %t", run.StoppedEarly, res.StoppedEarly)
		}
	case ir.ModeConverge:
		res, err := eng.RunConvergence(ctx, run.Target)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", runID, err)
		}
		report.ReplayedResult = res.Result
	default:
		return nil, fmt.Errorf("replay %s: unknown mode %q", runID, run.Mode)
	}

	if report.ReplayedResult != report.StoredResult {
		report.diff("result: stored %d, replayed %d", report.StoredResult, report.ReplayedResult)
	}

	comparePresses(report, storedPresses, obs.counts)
	comparePulses(report, storedPulses, obs.pulses)

	slog.Info("replay complete",
		"run_id", runID,
		"deterministic", report.Deterministic,
		"presses", report.PressesCompared,
		"pulses", report.PulsesCompared)

	return report, nil
}

func comparePresses(report *ReplayReport, stored []ir.PressRecord, replayed []ir.PressStats) {
	if len(stored) != len(replayed) {
		report.diff("press count: stored %d, replayed %d", len(stored), len(replayed))
	}
	n := min(len(stored), len(replayed))
	for i := 0; i < n; i++ {
		s, r := stored[i], replayed[i]
		if s.Press != r.Press || s.Low != r.Low || s.High != r.High {
			report.diff("press %d: stored low=%d high=%d, replayed low=%d high=%d",
				s.Press, s.Low, s.High, r.Low, r.High)
		}
	}
	report.PressesCompared = n
}

func comparePulses(report *ReplayReport, stored, replayed []ir.PulseRecord) {
	if len(stored) != len(replayed) {
		report.diff("traced pulses: stored %d, replayed %d", len(stored), len(replayed))
	}
	n := min(len(stored), len(replayed))
	for i := 0; i < n; i++ {
		s, r := stored[i], replayed[i]
		if s.Press != r.Press || s.Seq != r.Seq || s.Source != r.Source ||
			s.Level != r.Level || s.Destination != r.Destination {
			report.diff("pulse seq=%d: stored %s -%s-> %s, replayed %s -%s-> %s",
				s.Seq, s.Source, s.Level, s.Destination, r.Source, r.Level, r.Destination)
		}
	}
	report.PulsesCompared = n
}
