package store

import (
	"context"
	"fmt"

	"github.com/roach88/pulsenet/internal/ir"
)

// RunState summarizes a stored run for inspection and recovery.
type RunState struct {
	Run        ir.RunRecord
	Presses    int   // recorded presses
	Pulses     int   // traced pulses
	LastPress  int   // highest recorded press (0 if none)
	LastSeq    int64 // highest traced seq (0 if none)
	FeederHits []ir.FeederHit

	// IsComplete is true when the run finished successfully and every
	// press from 1 to LastPress was recorded.
	IsComplete bool
}

// GetRunState retrieves the recorded extent of a run.
func (s *Store) GetRunState(ctx context.Context, runID string) (RunState, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return RunState{}, fmt.Errorf("get run state: %w", err)
	}
	state := RunState{Run: run}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(MAX(press), 0)
		FROM presses
		WHERE run_id = ?
	`, runID).Scan(&state.Presses, &state.LastPress)
	if err != nil {
		return RunState{}, fmt.Errorf("get run state: count presses: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(MAX(seq), 0)
		FROM pulses
		WHERE run_id = ?
	`, runID).Scan(&state.Pulses, &state.LastSeq)
	if err != nil {
		return RunState{}, fmt.Errorf("get run state: count pulses: %w", err)
	}

	hits, err := s.ReadFeederHits(ctx, runID)
	if err != nil {
		return RunState{}, fmt.Errorf("get run state: %w", err)
	}
	state.FeederHits = hits

	state.IsComplete = run.Status == ir.RunStatusComplete && state.Presses == state.LastPress

	return state, nil
}

// FindIncompleteRuns returns the runs that never reached a final status,
// typically because the process was interrupted mid-run.
// Results are ordered by run ID.
func (s *Store) FindIncompleteRuns(ctx context.Context) ([]RunState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM runs
		WHERE status = ?
		ORDER BY id COLLATE BINARY ASC
	`, ir.RunStatusRunning)
	if err != nil {
		return nil, fmt.Errorf("find incomplete runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run ids: %w", err)
	}

	states := []RunState{}
	for _, id := range ids {
		state, err := s.GetRunState(ctx, id)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}
