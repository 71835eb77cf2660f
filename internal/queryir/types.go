package queryir

import "github.com/roach88/pulsenet/internal/ir"

// Query represents an abstract query over the run log.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode()
}

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
// OR predicates and subqueries are not part of the fragment.
type Predicate interface {
	predicateNode()
}

// Select reads rows from one run-log table.
//
// Semantics:
//
//	SELECT <fields> FROM <from> WHERE <filter> ORDER BY <table order>
//
// Example:
//
//	Select{
//	  From: TablePulses,
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: "run_id", Value: ir.IRString(runID)},
//	    Equals{Field: "destination", Value: ir.IRString("rx")},
//	  }},
//	  Fields: []string{"press", "seq", "source", "level", "destination"},
//	}
//
// Fields are emitted in the order given; the caller scans columns in
// the same order.
type Select struct {
	From   string    // run-log table (see Tables)
	Filter Predicate // WHERE conditions (nil = no filter)
	Fields []string  // selected columns, in scan order
}

func (Select) queryNode() {}

// Equals represents a field-equals-literal predicate.
//
//	Equals{Field: "level", Value: ir.IRString("high")}
//
// Value must be a scalar IRValue (string, int, bool).
type Equals struct {
	Field string
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// And is a conjunction of predicates. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where combines predicates with And, dropping nils. It returns nil when
// nothing is left and the bare predicate when only one is.
func Where(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
