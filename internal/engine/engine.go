package engine

import (
	"context"

	"github.com/roach88/pulsenet/internal/ir"
)

// Recorder persists run outcomes. Implemented by *store.Store.
//
// Calls arrive in order on the simulation goroutine: BeginRun once, then
// RecordPress for every press (with the delivered pulses when the press is
// within the trace limit), RecordFeederHit as convergence feeders resolve,
// and FinishRun once.
type Recorder interface {
	BeginRun(ctx context.Context, run ir.RunRecord) error
	RecordPress(ctx context.Context, press ir.PressRecord, pulses []ir.PulseRecord) error
	RecordFeederHit(ctx context.Context, hit ir.FeederHit) error
	FinishRun(ctx context.Context, runID string, result int64, stoppedEarly bool, status string) error
}

// Engine drives button presses against one Network.
//
// CRITICAL: An Engine is single-writer. The network, clock and queue are
// only touched from the goroutine calling Press or a Run method.
//
// INVARIANTS:
//   - clock.Press() is the number of presses since the last Reset
//   - clock seq is strictly increasing within a run
type Engine struct {
	net       *Network
	clock     Clock
	queue     *pulseQueue
	observers []Observer
	recorder  Recorder
	runIDs    RunIDGenerator

	maxPulses   int // per press, 0 = unbounded
	maxPresses  int // convergence bound, 0 = unbounded
	traceLimit  int // presses whose pulses are recorded, 0 = all
	extrapolate bool
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithMaxPulsesPerPress sets the per-press delivery quota.
//
// Default: DefaultMaxPulsesPerPress. Use 0 to disable the quota.
func WithMaxPulsesPerPress(n int) EngineOption {
	return func(e *Engine) {
		e.maxPulses = n
	}
}

// WithMaxPresses bounds convergence mode. Default 0 (unbounded).
func WithMaxPresses(n int) EngineOption {
	return func(e *Engine) {
		e.maxPresses = n
	}
}

// WithRecorder persists every run through r.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithRunIDGenerator sets the run identifier source.
// Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithObserver registers an observer for every delivered pulse.
// Observers are called in registration order.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithTraceLimit records pulses only for the first n presses of a run.
// Press counts are always recorded. Default 0 records every press.
func WithTraceLimit(n int) EngineOption {
	return func(e *Engine) {
		e.traceLimit = n
	}
}

// WithExtrapolation makes finite mode extend its counts over the full press
// budget once a repeated state is found, instead of stopping with the
// counts gathered so far.
func WithExtrapolation(on bool) EngineOption {
	return func(e *Engine) {
		e.extrapolate = on
	}
}

// New creates an Engine that owns net.
func New(net *Network, opts ...EngineOption) *Engine {
	e := &Engine{
		net:       net,
		queue:     newPulseQueue(),
		runIDs:    UUIDv7Generator{},
		maxPulses: DefaultMaxPulsesPerPress,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Network returns the engine's network.
func (e *Engine) Network() *Network {
	return e.net
}

// Presses returns the number of presses since the last Reset.
func (e *Engine) Presses() int {
	return e.clock.Press()
}

// Deliveries returns the pulses delivered since the last Reset, button
// pulses included.
func (e *Engine) Deliveries() int64 {
	return e.clock.Seq()
}

// Reset restores the network to its initial state and restarts press and
// seq numbering.
func (e *Engine) Reset() {
	e.net.Reset()
	e.clock.Reset()
}

// Press runs one button press to completion and returns its counts.
// Nothing is recorded; observers are notified.
func (e *Engine) Press(ctx context.Context) (ir.PressStats, error) {
	if err := ctx.Err(); err != nil {
		return ir.PressStats{}, err
	}
	stats, _, err := e.press(false)
	return stats, err
}

func (e *Engine) shouldTrace(press int) bool {
	return e.recorder != nil && (e.traceLimit == 0 || press <= e.traceLimit)
}

// runRecord builds the record written by BeginRun.
func (e *Engine) runRecord(id, mode string) (ir.RunRecord, error) {
	decls := e.net.Declarations()
	hash, err := ir.NetworkHash(decls)
	if err != nil {
		return ir.RunRecord{}, err
	}
	return ir.RunRecord{
		ID:            id,
		Mode:          mode,
		NetworkHash:   hash,
		Declarations:  decls,
		Extrapolate:   e.extrapolate,
		Status:        ir.RunStatusRunning,
		EngineVersion: ir.EngineVersion,
	}, nil
}
