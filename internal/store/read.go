package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/pulsenet/internal/ir"
	"github.com/roach88/pulsenet/internal/queryir"
	"github.com/roach88/pulsenet/internal/querysql"
)

// ErrRunNotFound is returned when a run ID has no record.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, mode, network_hash, declarations, presses_requested, target, max_presses,
	extrapolate, result, stopped_early, status, engine_version`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadRun retrieves a single run by ID.
// Returns an error wrapping ErrRunNotFound if the run does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.RunRecord{}, fmt.Errorf("read run %q: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return ir.RunRecord{}, fmt.Errorf("read run %q: %w", id, err)
	}
	return run, nil
}

// ListRuns returns all runs ordered by id.
// UUIDv7 run IDs sort by creation time, so this is also creation order.
//
// Returns an empty slice (not nil) if the store has no runs.
func (s *Store) ListRuns(ctx context.Context) ([]ir.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the run with the greatest ID.
// Returns an error wrapping ErrRunNotFound if the store is empty.
func (s *Store) LatestRun(ctx context.Context) (ir.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY id COLLATE BINARY DESC
		LIMIT 1
	`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.RunRecord{}, fmt.Errorf("latest run: %w", ErrRunNotFound)
	}
	if err != nil {
		return ir.RunRecord{}, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// ReadPresses returns every recorded press of a run, ordered by press.
func (s *Store) ReadPresses(ctx context.Context, runID string) ([]ir.PressRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, press, low, high, fingerprint
		FROM presses
		WHERE run_id = ?
		ORDER BY press ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query presses: %w", err)
	}
	defer rows.Close()

	presses := []ir.PressRecord{}
	for rows.Next() {
		var p ir.PressRecord
		if err := rows.Scan(&p.RunID, &p.Press, &p.Low, &p.High, &p.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan press: %w", err)
		}
		presses = append(presses, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presses: %w", err)
	}
	return presses, nil
}

// ReadPulses returns the traced pulses of a run in delivery order.
func (s *Store) ReadPulses(ctx context.Context, runID string) ([]ir.PulseRecord, error) {
	return s.QueryPulses(ctx, queryir.Equals{Field: "run_id", Value: ir.IRString(runID)})
}

// QueryPulses returns the pulses matching filter in delivery order.
//
// The filter is validated against the pulses table and compiled to
// parameterized SQL by querysql; field names never come from user text.
func (s *Store) QueryPulses(ctx context.Context, filter queryir.Predicate) ([]ir.PulseRecord, error) {
	q := queryir.Select{
		From:   queryir.TablePulses,
		Filter: filter,
		Fields: []string{"id", "run_id", "press", "seq", "source", "level", "destination"},
	}

	query, params, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return nil, fmt.Errorf("query pulses: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query pulses: %w", err)
	}
	defer rows.Close()

	pulses := []ir.PulseRecord{}
	for rows.Next() {
		p, err := scanPulse(rows)
		if err != nil {
			return nil, err
		}
		pulses = append(pulses, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pulses: %w", err)
	}
	return pulses, nil
}

// ReadFeederHits returns the resolved feeders of a convergence run,
// ordered by press then feeder name.
func (s *Store) ReadFeederHits(ctx context.Context, runID string) ([]ir.FeederHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, feeder, press
		FROM feeder_hits
		WHERE run_id = ?
		ORDER BY press ASC, feeder COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query feeder hits: %w", err)
	}
	defer rows.Close()

	hits := []ir.FeederHit{}
	for rows.Next() {
		var h ir.FeederHit
		if err := rows.Scan(&h.RunID, &h.Feeder, &h.Press); err != nil {
			return nil, fmt.Errorf("scan feeder hit: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feeder hits: %w", err)
	}
	return hits, nil
}

// scanRun scans a row selected with runColumns.
func scanRun(row rowScanner) (ir.RunRecord, error) {
	var run ir.RunRecord
	var declsJSON string
	var extrapolate, stoppedEarly int

	if err := row.Scan(
		&run.ID, &run.Mode, &run.NetworkHash, &declsJSON, &run.PressesRequested,
		&run.Target, &run.MaxPresses, &extrapolate, &run.Result, &stoppedEarly,
		&run.Status, &run.EngineVersion,
	); err != nil {
		return ir.RunRecord{}, err
	}

	decls, err := unmarshalDeclarations(declsJSON)
	if err != nil {
		return ir.RunRecord{}, err
	}
	run.Declarations = decls
	run.Extrapolate = extrapolate != 0
	run.StoppedEarly = stoppedEarly != 0

	return run, nil
}

// scanPulse scans a pulse row in (id, run_id, press, seq, source, level,
// destination) order.
func scanPulse(row rowScanner) (ir.PulseRecord, error) {
	var p ir.PulseRecord
	var level string
	if err := row.Scan(&p.ID, &p.RunID, &p.Press, &p.Seq, &p.Source, &level, &p.Destination); err != nil {
		return ir.PulseRecord{}, fmt.Errorf("scan pulse: %w", err)
	}
	lv, err := ir.ParseLevel(level)
	if err != nil {
		return ir.PulseRecord{}, fmt.Errorf("scan pulse %d: %w", p.ID, err)
	}
	p.Level = lv
	return p, nil
}
