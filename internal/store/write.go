package store

import (
	"context"
	"fmt"

	"github.com/roach88/pulsenet/internal/ir"
)

// BeginRun inserts a run record with status "running".
// Returns an error if a run with the same ID already exists.
//
// The run's declarations are serialized to canonical JSON per RFC 8785.
func (s *Store) BeginRun(ctx context.Context, run ir.RunRecord) error {
	declsJSON, err := marshalDeclarations(run.Declarations)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	status := run.Status
	if status == "" {
		status = ir.RunStatusRunning
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, mode, network_hash, declarations, presses_requested, target, max_presses,
		 extrapolate, result, stopped_early, status, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Mode,
		run.NetworkHash,
		declsJSON,
		run.PressesRequested,
		run.Target,
		run.MaxPresses,
		boolToInt(run.Extrapolate),
		run.Result,
		boolToInt(run.StoppedEarly),
		status,
		run.EngineVersion,
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// RecordPress writes one press and its traced pulses in a single
// transaction. Either the press and all of its pulses persist or none do.
//
// Uses ON CONFLICT DO NOTHING for idempotency - rewriting a press or a
// pulse with the same key is silently ignored.
//
// Note: The run referenced by press.RunID must exist (foreign key constraint).
func (s *Store) RecordPress(ctx context.Context, press ir.PressRecord, pulses []ir.PulseRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record press: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO presses (run_id, press, low, high, fingerprint)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, press) DO NOTHING
	`,
		press.RunID,
		press.Press,
		press.Low,
		press.High,
		press.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("record press: insert press: %w", err)
	}

	if len(pulses) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO pulses (run_id, press, seq, source, level, destination)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, seq) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("record press: prepare pulses: %w", err)
		}
		defer stmt.Close()

		for _, p := range pulses {
			runID := p.RunID
			if runID == "" {
				runID = press.RunID
			}
			if _, err := stmt.ExecContext(ctx, runID, p.Press, p.Seq, p.Source, p.Level.String(), p.Destination); err != nil {
				return fmt.Errorf("record press: insert pulse seq=%d: %w", p.Seq, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record press: commit: %w", err)
	}
	return nil
}

// RecordFeederHit stores the first high press of a convergence feeder.
// The first write for a (run, feeder) pair wins.
func (s *Store) RecordFeederHit(ctx context.Context, hit ir.FeederHit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feeder_hits (run_id, feeder, press)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, feeder) DO NOTHING
	`, hit.RunID, hit.Feeder, hit.Press)
	if err != nil {
		return fmt.Errorf("record feeder hit: %w", err)
	}
	return nil
}

// FinishRun sets the final result and status of a run.
// Returns an error if the run does not exist.
func (s *Store) FinishRun(ctx context.Context, runID string, result int64, stoppedEarly bool, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET result = ?, stopped_early = ?, status = ?
		WHERE id = ?
	`, result, boolToInt(stoppedEarly), status, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: run %q not found", runID)
	}
	return nil
}
