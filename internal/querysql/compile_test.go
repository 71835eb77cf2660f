package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsenet/internal/ir"
	"github.com/roach88/pulsenet/internal/queryir"
)

func TestCompile_SimpleSelect(t *testing.T) {
	query := queryir.Select{
		From:   queryir.TablePulses,
		Filter: queryir.Equals{Field: "run_id", Value: ir.IRString("run-1")},
		Fields: []string{"seq", "source", "level", "destination"},
	}

	sql, params, err := NewSQLCompiler().Compile(query)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT seq, source, level, destination FROM pulses WHERE run_id = ? "+
			"ORDER BY run_id COLLATE BINARY ASC, seq ASC, id ASC",
		sql)
	assert.Equal(t, []any{"run-1"}, params)
}

func TestCompile_Pointers(t *testing.T) {
	query := &queryir.Select{
		From:   queryir.TablePresses,
		Filter: &queryir.Equals{Field: "press", Value: ir.IRInt(4)},
		Fields: []string{"low", "high"},
	}

	sql, params, err := NewSQLCompiler().Compile(query)
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM presses WHERE press = ?")
	assert.Equal(t, []any{int64(4)}, params)
}

func TestCompile_NoFilter(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{
		From:   queryir.TableRuns,
		Fields: []string{"id", "status"},
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, status FROM runs ORDER BY id COLLATE BINARY ASC", sql)
	assert.Empty(t, params)
}

func TestCompile_AndFilter(t *testing.T) {
	query := queryir.Select{
		From: queryir.TablePulses,
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "run_id", Value: ir.IRString("run-1")},
			queryir.Equals{Field: "press", Value: ir.IRInt(2)},
			queryir.Equals{Field: "level", Value: ir.IRString("high")},
		}},
		Fields: []string{"seq"},
	}

	sql, params, err := NewSQLCompiler().Compile(query)
	require.NoError(t, err)

	assert.Contains(t, sql, "WHERE run_id = ? AND press = ? AND level = ?")
	assert.Equal(t, []any{"run-1", int64(2), "high"}, params)
}

func TestCompile_NestedAnd(t *testing.T) {
	query := queryir.Select{
		From: queryir.TablePulses,
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "run_id", Value: ir.IRString("r")},
			queryir.And{Predicates: []queryir.Predicate{
				queryir.Equals{Field: "source", Value: ir.IRString("a")},
				queryir.Equals{Field: "destination", Value: ir.IRString("b")},
			}},
		}},
		Fields: []string{"seq"},
	}

	sql, params, err := NewSQLCompiler().Compile(query)
	require.NoError(t, err)

	assert.Contains(t, sql, "WHERE run_id = ? AND (source = ? AND destination = ?)")
	assert.Len(t, params, 3)
}

func TestCompile_EmptyAnd(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{
		From:   queryir.TableFeederHits,
		Filter: queryir.And{},
		Fields: []string{"feeder", "press"},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "WHERE 1 = 1 ORDER BY")
	assert.Empty(t, params)
}

func TestCompile_BoolParam(t *testing.T) {
	_, params, err := NewSQLCompiler().Compile(queryir.Select{
		From:   queryir.TableRuns,
		Filter: queryir.Equals{Field: "stopped_early", Value: ir.IRBool(true)},
		Fields: []string{"id"},
	})
	require.NoError(t, err)

	assert.Equal(t, []any{int64(1)}, params)
}

func TestCompile_ValuesNeverInterpolated(t *testing.T) {
	hostile := "x' OR '1'='1"
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{
		From:   queryir.TablePulses,
		Filter: queryir.Equals{Field: "source", Value: ir.IRString(hostile)},
		Fields: []string{"seq"},
	})
	require.NoError(t, err)

	assert.NotContains(t, sql, hostile)
	assert.Equal(t, []any{hostile}, params)
}

func TestCompile_OrderByEveryTable(t *testing.T) {
	for table := range queryir.Tables {
		t.Run(table, func(t *testing.T) {
			fields := queryir.Columns(table)[:1]
			sql, _, err := NewSQLCompiler().Compile(queryir.Select{From: table, Fields: fields})
			require.NoError(t, err)
			assert.Contains(t, sql, " ORDER BY ")
		})
	}
}

func TestCompile_InvalidQuery(t *testing.T) {
	tests := []struct {
		name  string
		query queryir.Query
	}{
		{"nil", nil},
		{"unknown table", queryir.Select{From: "runs; DROP TABLE runs", Fields: []string{"id"}}},
		{"unknown field", queryir.Select{From: queryir.TablePulses, Fields: []string{"*"}}},
		{"bad filter field", queryir.Select{
			From:   queryir.TablePulses,
			Fields: []string{"seq"},
			Filter: queryir.Equals{Field: "seq OR 1", Value: ir.IRInt(1)},
		}},
		{"object value", queryir.Select{
			From:   queryir.TablePulses,
			Fields: []string{"seq"},
			Filter: queryir.Equals{Field: "source", Value: ir.IRObject{}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := NewSQLCompiler().Compile(tt.query)
			require.Error(t, err)
			assert.Empty(t, sql)
			assert.Nil(t, params)
		})
	}
}

func TestBindArg(t *testing.T) {
	v, err := bindArg(ir.IRString("a"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = bindArg(ir.IRInt(-7))
	require.NoError(t, err)
	assert.Equal(t, int64(-7), v)

	v, err = bindArg(ir.IRBool(false))
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	_, err = bindArg(ir.IRArray{})
	assert.Error(t, err)
}

func TestCompile_NestedAndPointer(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(&queryir.Select{
		From:   queryir.TablePresses,
		Fields: []string{"press"},
		Filter: &queryir.And{Predicates: []queryir.Predicate{
			&queryir.And{Predicates: []queryir.Predicate{
				queryir.Equals{Field: "run_id", Value: ir.IRString("r1")},
			}},
			queryir.Equals{Field: "press", Value: ir.IRInt(5)},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT press FROM presses WHERE (run_id = ?) AND press = ? ORDER BY run_id COLLATE BINARY ASC, press ASC",
		sql)
	assert.Equal(t, []any{"r1", int64(5)}, params)
}
