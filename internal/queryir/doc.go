// Package queryir provides a small abstract query representation for
// reading pulsenet run logs.
//
// Queries are built from Go values rather than text, so a filter typed on
// the command line ("press=3", "level=high") becomes an Equals predicate
// against a known column instead of a SQL fragment:
//
//	[trace filter] → [Query IR] → [querysql] → SQLite
//
// The fragment is deliberately narrow:
//   - Select(from, filter, fields) over one run-log table
//   - Predicates: Equals and And
//   - Explicit field lists (no SELECT *)
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed with marker methods, so backends can
// switch over every node type exhaustively:
//
//	switch q := query.(type) {
//	case Select, *Select:
//	    // the only query node
//	}
//
// Validate checks table and column names against the run-log schema and
// rejects literal values that cannot bind as SQL parameters.
package queryir
