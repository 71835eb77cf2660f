// Package engine implements the pulsenet discrete-event simulator.
//
// A Network of typed modules exchanges binary pulses over a fixed directed
// graph. One button press injects a single low pulse into the broadcaster
// and runs until no pulse is pending. Two controllers drive presses:
// finite mode (N presses, aggregate pulse counts) and convergence mode
// (unbounded presses until every feeder of a watched conjunction has
// emitted high once, combined by least common multiple).
//
// ARCHITECTURE:
//
// Single-Writer Simulation:
// Construction, per-press queue draining and multi-press driving all run
// on the caller's goroutine. A Network is owned by exactly one Engine and
// is never mutated concurrently.
//
// Press Processing Flow:
//  1. The button pulse (button -low-> broadcaster) is enqueued.
//  2. The oldest pulse is dequeued and delivered via Module.Receive.
//  3. If the module broadcasts, one pulse per output is appended to the
//     tail of the queue, in declared output order.
//  4. Observers see every delivered pulse in delivery order.
//  5. The press ends when the queue is empty.
//
// CRITICAL PATTERNS:
//
// Strict FIFO:
// Pulses produced by a delivery are processed only after every pulse that
// was already queued. Conjunction output depends on this ordering.
//
// Logical Clock:
// Every delivered pulse is stamped with a monotonic seq from Clock.Stamp().
// Never wall-clock time.
//
// State Fingerprints:
// Global state (every module's memory and inputs) is reduced to an
// order-independent SHA-256 fingerprint for repeat detection.
//
// Termination:
// A press is not guaranteed to terminate for pathological networks.
// The per-press pulse quota (WithMaxPulsesPerPress) turns a runaway press
// into a QuotaExceededError; convergence mode can be bounded with
// WithMaxPresses.
package engine
