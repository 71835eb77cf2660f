// Package store is the SQLite run log behind --db.
//
// A run log holds four tables:
//   - runs: one row per controller run, with its declarations, mode,
//     parameters, result and status
//   - presses: low/high counts and the post-press state fingerprint
//   - pulses: the delivered pulse trace, keyed by run-wide seq
//   - feeder_hits: the first high press of each feeder in convergence mode
//
// Rows are ordered by press and seq, never by wall time, and every read
// names its ORDER BY with COLLATE BINARY on text keys. Writes use
// ON CONFLICT DO NOTHING on the natural keys, so recording the same press
// twice leaves one row.
//
// Open applies WAL journaling, synchronous=NORMAL, a 5s busy timeout and
// foreign keys, checks each setting took effect, then migrates the schema
// by PRAGMA user_version.
//
// Declarations are stored as canonical JSON (ir.MarshalCanonical), so a
// run's network hash can be recomputed from the row.
package store
