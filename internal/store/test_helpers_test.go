package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/pulsenet/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testDeclarations is a minimal network: broadcaster -> a, %a -> rx.
func testDeclarations() []ir.Declaration {
	return []ir.Declaration{
		{Kind: ir.KindBroadcaster, Name: ir.BroadcasterName, Outputs: []string{"a"}},
		{Kind: ir.KindFlipFlop, Name: "a", Outputs: []string{"rx"}},
	}
}

// createTestRun creates a finite run record with minimal required fields.
func createTestRun(id string) ir.RunRecord {
	decls := testDeclarations()
	return ir.RunRecord{
		ID:               id,
		Mode:             ir.ModeFinite,
		NetworkHash:      ir.MustNetworkHash(decls),
		Declarations:     decls,
		PressesRequested: 10,
		Status:           ir.RunStatusRunning,
		EngineVersion:    ir.EngineVersion,
	}
}

func mustBeginRun(t *testing.T, s *Store, id string) {
	t.Helper()
	if err := s.BeginRun(context.Background(), createTestRun(id)); err != nil {
		t.Fatalf("BeginRun(%q) failed: %v", id, err)
	}
}

// mustRecordPress records one press of the test network: button -> broadcaster,
// broadcaster -> a, a -> rx. Seq continues from (press-1)*3.
func mustRecordPress(t *testing.T, s *Store, runID string, press int) {
	t.Helper()
	base := int64(press-1) * 3
	level := ir.Level(press%2 == 1) // a turns on at odd presses
	pulses := []ir.PulseRecord{
		{RunID: runID, Press: press, Seq: base + 1, Source: ir.ButtonName, Level: ir.Low, Destination: ir.BroadcasterName},
		{RunID: runID, Press: press, Seq: base + 2, Source: ir.BroadcasterName, Level: ir.Low, Destination: "a"},
		{RunID: runID, Press: press, Seq: base + 3, Source: "a", Level: level, Destination: "rx"},
	}
	rec := ir.PressRecord{RunID: runID, Press: press, Low: 2, High: 1, Fingerprint: "fp"}
	if !level {
		rec.Low, rec.High = 3, 0
	}
	if err := s.RecordPress(context.Background(), rec, pulses); err != nil {
		t.Fatalf("RecordPress(%d) failed: %v", press, err)
	}
}
