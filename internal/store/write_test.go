package store

import (
	"context"
	"testing"

	"github.com/roach88/pulsenet/internal/ir"
)

func TestBeginRun_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1")
	if err := s.BeginRun(ctx, run); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	var mode, status, decls string
	err := s.db.QueryRow(`SELECT mode, status, declarations FROM runs WHERE id = ?`, "run-1").
		Scan(&mode, &status, &decls)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if mode != ir.ModeFinite {
		t.Errorf("mode = %q, want %q", mode, ir.ModeFinite)
	}
	if status != ir.RunStatusRunning {
		t.Errorf("status = %q, want %q", status, ir.RunStatusRunning)
	}
	if decls[0] != '[' {
		t.Errorf("declarations = %q, want JSON array", decls)
	}
}

func TestBeginRun_DefaultsStatus(t *testing.T) {
	s := createTestStore(t)
	run := createTestRun("run-1")
	run.Status = ""

	if err := s.BeginRun(context.Background(), run); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	got, err := s.ReadRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got.Status != ir.RunStatusRunning {
		t.Errorf("status = %q, want %q", got.Status, ir.RunStatusRunning)
	}
}

func TestBeginRun_DuplicateID(t *testing.T) {
	s := createTestStore(t)
	mustBeginRun(t, s, "run-1")

	if err := s.BeginRun(context.Background(), createTestRun("run-1")); err == nil {
		t.Error("expected error for duplicate run id, got nil")
	}
}

func TestRecordPress_WritesPressAndPulses(t *testing.T) {
	s := createTestStore(t)
	mustBeginRun(t, s, "run-1")
	mustRecordPress(t, s, "run-1", 1)

	var presses, pulses int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM presses WHERE run_id = 'run-1'`).Scan(&presses); err != nil {
		t.Fatalf("count presses: %v", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM pulses WHERE run_id = 'run-1'`).Scan(&pulses); err != nil {
		t.Fatalf("count pulses: %v", err)
	}
	if presses != 1 || pulses != 3 {
		t.Errorf("presses=%d pulses=%d, want 1 and 3", presses, pulses)
	}
}

func TestRecordPress_Idempotent(t *testing.T) {
	s := createTestStore(t)
	mustBeginRun(t, s, "run-1")
	mustRecordPress(t, s, "run-1", 1)
	mustRecordPress(t, s, "run-1", 1)

	pulses, err := s.ReadPulses(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("ReadPulses() failed: %v", err)
	}
	if len(pulses) != 3 {
		t.Errorf("len(pulses) = %d, want 3 after rewriting the same press", len(pulses))
	}
}

func TestRecordPress_AtomicOnFailure(t *testing.T) {
	s := createTestStore(t)
	mustBeginRun(t, s, "run-1")

	// The second pulse references a missing run, so the whole press must
	// roll back.
	pulses := []ir.PulseRecord{
		{RunID: "run-1", Press: 1, Seq: 1, Source: ir.ButtonName, Level: ir.Low, Destination: ir.BroadcasterName},
		{RunID: "missing", Press: 1, Seq: 2, Source: ir.BroadcasterName, Level: ir.Low, Destination: "a"},
	}
	err := s.RecordPress(context.Background(), ir.PressRecord{RunID: "run-1", Press: 1, Low: 2, Fingerprint: "fp"}, pulses)
	if err == nil {
		t.Fatal("expected foreign key error, got nil")
	}

	presses, err := s.ReadPresses(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("ReadPresses() failed: %v", err)
	}
	if len(presses) != 0 {
		t.Errorf("len(presses) = %d, want 0 after rollback", len(presses))
	}
}

func TestRecordPress_FillsMissingRunID(t *testing.T) {
	s := createTestStore(t)
	mustBeginRun(t, s, "run-1")

	pulses := []ir.PulseRecord{{Press: 1, Seq: 1, Source: ir.ButtonName, Level: ir.Low, Destination: ir.BroadcasterName}}
	if err := s.RecordPress(context.Background(), ir.PressRecord{RunID: "run-1", Press: 1, Low: 1, Fingerprint: "fp"}, pulses); err != nil {
		t.Fatalf("RecordPress() failed: %v", err)
	}

	got, err := s.ReadPulses(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("ReadPulses() failed: %v", err)
	}
	if len(got) != 1 || got[0].RunID != "run-1" {
		t.Errorf("pulses = %+v, want one pulse in run-1", got)
	}
}

func TestRecordFeederHit_FirstWins(t *testing.T) {
	s := createTestStore(t)
	mustBeginRun(t, s, "run-1")
	ctx := context.Background()

	for _, press := range []int{4, 8} {
		if err := s.RecordFeederHit(ctx, ir.FeederHit{RunID: "run-1", Feeder: "f", Press: press}); err != nil {
			t.Fatalf("RecordFeederHit() failed: %v", err)
		}
	}

	hits, err := s.ReadFeederHits(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadFeederHits() failed: %v", err)
	}
	if len(hits) != 1 || hits[0].Press != 4 {
		t.Errorf("hits = %+v, want single hit at press 4", hits)
	}
}

func TestFinishRun_UpdatesResult(t *testing.T) {
	s := createTestStore(t)
	mustBeginRun(t, s, "run-1")
	ctx := context.Background()

	if err := s.FinishRun(ctx, "run-1", 187, true, ir.RunStatusComplete); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}

	run, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if run.Result != 187 || !run.StoppedEarly || run.Status != ir.RunStatusComplete {
		t.Errorf("run = %+v, want result 187, stopped early, complete", run)
	}
}

func TestFinishRun_Missing(t *testing.T) {
	s := createTestStore(t)

	if err := s.FinishRun(context.Background(), "missing", 0, false, ir.RunStatusComplete); err == nil {
		t.Error("expected error for missing run, got nil")
	}
}
