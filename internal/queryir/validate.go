package queryir

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/pulsenet/internal/ir"
)

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	Errors []string
}

// Valid reports whether the query can be compiled.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns nil for a valid query, or one error listing every problem.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return errors.New("invalid query: " + strings.Join(r.Errors, "; "))
}

// Validate checks a query against the run-log schema.
//
// Rules:
//  1. From names a known table
//  2. Fields is non-empty and names known columns of that table
//  3. Every predicate field is a known column
//  4. Literal values are scalars matching the column type
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{errors: []string{}}
	v.validateQuery(query)
	return ValidationResult{Errors: v.errors}
}

type validator struct {
	errors []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addError("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addError("nil query")
			return
		}
		v.validateSelect(*query)
	default:
		v.addError("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if _, ok := Tables[sel.From]; !ok {
		v.addError("unknown table %q", sel.From)
		return
	}

	if len(sel.Fields) == 0 {
		v.addError("empty field list - queries must name their columns")
	}
	seen := make(map[string]bool, len(sel.Fields))
	for _, f := range sel.Fields {
		if _, ok := Column(sel.From, f); !ok {
			v.addError("unknown field %q in table %q (columns: %s)", f, sel.From, strings.Join(Columns(sel.From), ", "))
		}
		if seen[f] {
			v.addError("duplicate field %q", f)
		}
		seen[f] = true
	}

	if sel.Filter != nil {
		v.validatePredicate(sel.From, sel.Filter)
	}
}

func (v *validator) validatePredicate(table string, p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.validateEquals(table, pred)
	case *Equals:
		v.validateEquals(table, *pred)
	case And:
		v.validateAnd(table, pred)
	case *And:
		v.validateAnd(table, *pred)
	default:
		v.addError("unknown predicate type %T", p)
	}
}

func (v *validator) validateEquals(table string, eq Equals) {
	col, ok := Column(table, eq.Field)
	if !ok {
		v.addError("unknown field %q in table %q (columns: %s)", eq.Field, table, strings.Join(Columns(table), ", "))
		return
	}

	switch val := eq.Value.(type) {
	case ir.IRString:
		switch col {
		case ColumnText:
		case ColumnLevel:
			if _, err := ir.ParseLevel(string(val)); err != nil {
				v.addError("field %q: %v", eq.Field, err)
			}
		default:
			v.addError("field %q is %s, got string", eq.Field, col)
		}
	case ir.IRInt:
		if col != ColumnInt {
			v.addError("field %q is %s, got int", eq.Field, col)
		}
	case ir.IRBool:
		if col != ColumnBool {
			v.addError("field %q is %s, got bool", eq.Field, col)
		}
	case nil:
		v.addError("field %q compared to nil", eq.Field)
	default:
		v.addError("field %q compared to non-scalar %T", eq.Field, eq.Value)
	}
}

func (v *validator) validateAnd(table string, and And) {
	for _, sub := range and.Predicates {
		if sub == nil {
			v.addError("nil predicate inside And")
			continue
		}
		v.validatePredicate(table, sub)
	}
}
