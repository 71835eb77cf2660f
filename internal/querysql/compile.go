// Package querysql turns run-log queries into SQLite statements.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/pulsenet/internal/ir"
	"github.com/roach88/pulsenet/internal/queryir"
)

// SQLCompiler renders validated queryir queries as SQLite SELECTs.
//
// Identifiers come only from queryir.Tables; literals are always bound as
// ? arguments. Each table has a fixed ORDER BY ending in a unique key, so
// a query's rows come back in the same order on every run.
type SQLCompiler struct{}

func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

var orderKeys = map[string]string{
	queryir.TableRuns:       "id COLLATE BINARY ASC",
	queryir.TablePresses:    "run_id COLLATE BINARY ASC, press ASC",
	queryir.TablePulses:     "run_id COLLATE BINARY ASC, seq ASC, id ASC",
	queryir.TableFeederHits: "run_id COLLATE BINARY ASC, press ASC, feeder COLLATE BINARY ASC",
}

// Compile validates q and returns its SQL text and bind arguments.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q).Err(); err != nil {
		return "", nil, err
	}

	var sel queryir.Select
	switch query := q.(type) {
	case queryir.Select:
		sel = query
	case *queryir.Select:
		sel = *query
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}

	var s statement
	s.sql.WriteString("SELECT " + strings.Join(sel.Fields, ", ") + " FROM " + sel.From)
	if sel.Filter != nil {
		s.sql.WriteString(" WHERE ")
		if err := s.predicate(sel.Filter); err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
	}
	s.sql.WriteString(" ORDER BY " + orderKeys[sel.From])

	return s.sql.String(), s.args, nil
}

// statement accumulates SQL text and its arguments in step.
type statement struct {
	sql  strings.Builder
	args []any
}

func (s *statement) predicate(p queryir.Predicate) error {
	switch pred := p.(type) {
	case queryir.Equals:
		return s.equals(pred)
	case *queryir.Equals:
		return s.equals(*pred)
	case queryir.And:
		return s.and(pred.Predicates)
	case *queryir.And:
		return s.and(pred.Predicates)
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (s *statement) equals(eq queryir.Equals) error {
	arg, err := bindArg(eq.Value)
	if err != nil {
		return fmt.Errorf("field %s: %w", eq.Field, err)
	}
	s.sql.WriteString(eq.Field + " = ?")
	s.args = append(s.args, arg)
	return nil
}

// and joins preds with AND, parenthesizing nested conjunctions. An empty
// conjunction is true.
func (s *statement) and(preds []queryir.Predicate) error {
	if len(preds) == 0 {
		s.sql.WriteString("1 = 1")
		return nil
	}
	for i, p := range preds {
		if i > 0 {
			s.sql.WriteString(" AND ")
		}
		nested := isAnd(p)
		if nested {
			s.sql.WriteByte('(')
		}
		if err := s.predicate(p); err != nil {
			return err
		}
		if nested {
			s.sql.WriteByte(')')
		}
	}
	return nil
}

func isAnd(p queryir.Predicate) bool {
	switch p.(type) {
	case queryir.And, *queryir.And:
		return true
	}
	return false
}

// bindArg converts a scalar to a driver argument. The run log stores
// booleans as 0 and 1.
func bindArg(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
}
