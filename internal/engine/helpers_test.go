package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsenet/internal/ir"
)

func bcast(outputs ...string) ir.Declaration {
	return ir.Declaration{Kind: ir.KindBroadcaster, Name: ir.BroadcasterName, Outputs: outputs}
}

func flip(name string, outputs ...string) ir.Declaration {
	return ir.Declaration{Kind: ir.KindFlipFlop, Name: name, Outputs: outputs}
}

func conj(name string, outputs ...string) ir.Declaration {
	return ir.Declaration{Kind: ir.KindConjunction, Name: name, Outputs: outputs}
}

// loopNetwork: three flip-flops and an inverter feeding back into the first.
// Every press delivers 8 low and 4 high pulses; the state after press 2
// repeats the state after press 1.
func loopNetwork() []ir.Declaration {
	return []ir.Declaration{
		bcast("a", "b", "c"),
		flip("a", "b"),
		flip("b", "c"),
		flip("c", "inv"),
		conj("inv", "a"),
	}
}

// counterNetwork: a two-bit counter observed by a conjunction. Presses 1-4
// deliver (4,4) (4,2) (5,3) (4,2) low/high pulses and the state after
// press 5 repeats the state after press 1.
func counterNetwork() []ir.Declaration {
	return []ir.Declaration{
		bcast("a"),
		flip("a", "inv", "con"),
		conj("inv", "b"),
		flip("b", "con"),
		conj("con", "output"),
	}
}

// convergeNetwork: hub is fed by c3, which first sends high on press 4,
// and f, which first sends high on press 6.
func convergeNetwork() []ir.Declaration {
	return []ir.Declaration{
		bcast("c1", "b1"),
		flip("c1", "c2"),
		flip("c2", "c3"),
		flip("c3", "hub"),
		flip("b1", "b2"),
		flip("b2", "b3", "k"),
		flip("b3", "k"),
		conj("k", "f"),
		conj("f", "hub"),
		conj("hub", "rx"),
	}
}

func mustNetwork(t *testing.T, decls []ir.Declaration) *Network {
	t.Helper()
	net, err := NewNetwork(decls)
	require.NoError(t, err)
	return net
}

func pressN(t *testing.T, e *Engine, n int) []ir.PressStats {
	t.Helper()
	out := make([]ir.PressStats, 0, n)
	for i := 0; i < n; i++ {
		stats, err := e.Press(context.Background())
		require.NoError(t, err)
		out = append(out, stats)
	}
	return out
}

func pulse(src string, level ir.Level, dst string) ir.Pulse {
	return ir.Pulse{Source: src, Level: level, Destination: dst}
}

// memRecorder is an in-memory Recorder.
type memRecorder struct {
	runs     []ir.RunRecord
	presses  []ir.PressRecord
	pulses   []ir.PulseRecord
	hits     []ir.FeederHit
	finished map[string]string
	results  map[string]int64
}

func newMemRecorder() *memRecorder {
	return &memRecorder{finished: map[string]string{}, results: map[string]int64{}}
}

func (r *memRecorder) BeginRun(_ context.Context, run ir.RunRecord) error {
	r.runs = append(r.runs, run)
	return nil
}

func (r *memRecorder) RecordPress(_ context.Context, press ir.PressRecord, pulses []ir.PulseRecord) error {
	r.presses = append(r.presses, press)
	r.pulses = append(r.pulses, pulses...)
	return nil
}

func (r *memRecorder) RecordFeederHit(_ context.Context, hit ir.FeederHit) error {
	r.hits = append(r.hits, hit)
	return nil
}

func (r *memRecorder) FinishRun(_ context.Context, runID string, result int64, _ bool, status string) error {
	r.finished[runID] = status
	r.results[runID] = result
	return nil
}
