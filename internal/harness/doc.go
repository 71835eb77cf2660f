// Package harness runs YAML scenarios against the pulse engine.
//
// A scenario names a network, a run mode and what the run must produce:
//
//	name: counter_cycle
//	description: "Two-bit counter repeats every four presses"
//	network: |
//	  broadcaster -> a
//	  %a -> inv, con
//	  &inv -> b
//	  %b -> con
//	  &con -> output
//	mode: finite
//	presses: 1000
//	extrapolate: true
//	trace_presses: 1
//	expect:
//	  result: 11687500
//	assertions:
//	  - type: trace_order
//	    pulses:
//	      - {source: a, level: high, destination: inv}
//	      - {source: con, level: low, destination: output}
//	  - type: final_state
//	    module: con
//	    inputs: {a: high, b: high}
//
// # Assertion Types
//
//   - trace_contains: some pulse matches the pattern
//   - trace_order: patterns match pulses in order, not necessarily adjacent
//   - trace_count: exactly count pulses match the pattern
//   - final_state: a module's memory or remembered inputs after the run
//
// Empty pattern fields match anything.
//
// # Deterministic Testing
//
// Every scenario runs in a fresh in-memory SQLite run log with a fixed run
// ID. The trace is read back from the log, so the harness exercises the
// same recording path as the CLI. Identical scenarios produce byte-identical
// golden snapshots.
package harness
