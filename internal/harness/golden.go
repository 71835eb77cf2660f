package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/pulsenet/internal/ir"
)

// TraceSnapshot is what a golden file pins down: the scenario's mode,
// its result and every traced pulse, in canonical JSON.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Mode         string       `json:"mode"`
	Result       int64        `json:"result"`
	Trace        []TraceEvent `json:"trace"`
}

func NewTraceSnapshot(scenarioName string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: scenarioName,
		Mode:         result.Mode,
		Result:       result.Value,
		Trace:        result.Trace,
	}
}

func (s TraceSnapshot) value() ir.IRObject {
	trace := make(ir.IRArray, len(s.Trace))
	for i, ev := range s.Trace {
		trace[i] = ir.IRObject{
			"press":       ir.IRInt(ev.Press),
			"seq":         ir.IRInt(ev.Seq),
			"source":      ir.IRString(ev.Source),
			"level":       ir.IRString(ev.Level),
			"destination": ir.IRString(ev.Destination),
		}
	}
	return ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"mode":          ir.IRString(s.Mode),
		"result":        ir.IRInt(s.Result),
		"trace":         trace,
	}
}

// Marshal returns the snapshot's canonical JSON.
func (s TraceSnapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.value())
}

// RunWithGolden runs scenario and checks its snapshot against
// testdata/golden/<name>.golden. Pass -update to go test to rewrite it.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden checks an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewTraceSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}
	goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	).Assert(t, scenarioName, data)
	return nil
}

// GoldenPath maps a scenario file to its golden file, which lives in a
// golden/ directory beside it: dir/x.yaml pairs with dir/golden/x.golden.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", stem+".golden")
}

// UpdateGolden writes result's snapshot as the scenario's golden file.
func UpdateGolden(scenarioFile string, scenario *Scenario, result *Result) error {
	data, err := NewTraceSnapshot(scenario.Name, result).Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}

	path := GoldenPath(scenarioFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether result matches the scenario's golden
// file. When the scenario has no golden file, exists is false and err nil.
// A trailing newline in the file is ignored.
func CompareGolden(scenarioFile string, scenario *Scenario, result *Result) (match, exists bool, err error) {
	want, err := os.ReadFile(GoldenPath(scenarioFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, false, nil
	case err != nil:
		return false, false, fmt.Errorf("failed to read golden file: %w", err)
	}

	got, err := NewTraceSnapshot(scenario.Name, result).Marshal()
	if err != nil {
		return false, true, fmt.Errorf("failed to marshal trace: %w", err)
	}
	return bytes.Equal(bytes.TrimRight(want, "\n"), got), true, nil
}
