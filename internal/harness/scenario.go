package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pulsenet/internal/compiler"
	"github.com/roach88/pulsenet/internal/ir"
)

// Scenario defines one simulation run and what it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Network is an inline network in the line format. Exactly one of
	// Network and NetworkFile must be set.
	Network string `yaml:"network,omitempty"`

	// NetworkFile is a .cue or line-format file, relative to the scenario.
	NetworkFile string `yaml:"network_file,omitempty"`

	// Mode is "finite" or "converge".
	Mode string `yaml:"mode"`

	// Presses is the finite-mode press budget.
	Presses int `yaml:"presses,omitempty"`

	// Target is the convergence-mode sink.
	Target string `yaml:"target,omitempty"`

	// MaxPresses bounds a convergence run (0 = unbounded).
	MaxPresses int `yaml:"max_presses,omitempty"`

	// MaxPulses is the per-press pulse quota (0 = engine default).
	MaxPulses int `yaml:"max_pulses,omitempty"`

	// Extrapolate extends finite-mode totals over the detected cycle.
	Extrapolate bool `yaml:"extrapolate,omitempty"`

	// TracePresses limits the recorded trace to the first N presses
	// (0 = every press).
	TracePresses int `yaml:"trace_presses,omitempty"`

	// RunID fixes the run identifier. Defaults to DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`

	// Expect checks the run outcome.
	Expect *Expectation `yaml:"expect,omitempty"`

	// Assertions validate the trace and final module state.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// dir is the directory NetworkFile is resolved against.
	dir string
}

// DefaultRunID is used when a scenario does not set run_id.
const DefaultRunID = "scenario-run"

// Run modes.
const (
	ModeFinite   = ir.ModeFinite
	ModeConverge = ir.ModeConverge
)

// Expectation specifies the expected run outcome. Unset fields are not
// checked.
type Expectation struct {
	Result       *int64         `yaml:"result,omitempty"`
	Low          *int64         `yaml:"low,omitempty"`
	High         *int64         `yaml:"high,omitempty"`
	StoppedEarly *bool          `yaml:"stopped_early,omitempty"`
	Presses      *int           `yaml:"presses,omitempty"`
	Feeders      map[string]int `yaml:"feeders,omitempty"`

	// Error is the expected runtime error code, e.g. RUNAWAY_SIMULATION.
	// When set the run must fail with that code.
	Error string `yaml:"error,omitempty"`
}

// PulseMatch selects pulses. Empty fields match anything; Press 0
// matches every press.
type PulseMatch struct {
	Press       int    `yaml:"press,omitempty"`
	Source      string `yaml:"source,omitempty"`
	Level       string `yaml:"level,omitempty"`
	Destination string `yaml:"destination,omitempty"`
}

func (m PulseMatch) String() string {
	src, lvl, dst := m.Source, m.Level, m.Destination
	if src == "" {
		src = "*"
	}
	if lvl == "" {
		lvl = "*"
	}
	if dst == "" {
		dst = "*"
	}
	s := fmt.Sprintf("%s -%s-> %s", src, lvl, dst)
	if m.Press > 0 {
		s += fmt.Sprintf(" (press %d)", m.Press)
	}
	return s
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, final_state.
	Type string `yaml:"type"`

	// Pulse is the pattern for trace_contains and trace_count.
	Pulse *PulseMatch `yaml:"pulse,omitempty"`

	// Pulses is the expected order for trace_order. Pulses need not be
	// consecutive.
	Pulses []PulseMatch `yaml:"pulses,omitempty"`

	// Count is the exact number of matches for trace_count.
	Count int `yaml:"count,omitempty"`

	// Module names the module checked by final_state.
	Module string `yaml:"module,omitempty"`

	// Memory is the expected flip-flop memory ("on" or "off").
	Memory string `yaml:"memory,omitempty"`

	// Inputs are the expected remembered levels of a conjunction
	// (subset match).
	Inputs map[string]string `yaml:"inputs,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.dir = filepath.Dir(path)

	if scenario.NetworkFile != "" {
		if _, err := os.Stat(scenario.networkPath()); err != nil {
			return nil, fmt.Errorf("invalid scenario: network file: %w", err)
		}
	}
	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML. Relative network
// files resolve against the working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func (s *Scenario) networkPath() string {
	if filepath.IsAbs(s.NetworkFile) || s.dir == "" {
		return s.NetworkFile
	}
	return filepath.Join(s.dir, s.NetworkFile)
}

// Declarations parses the scenario's network.
func (s *Scenario) Declarations() ([]ir.Declaration, error) {
	if s.Network != "" {
		return compiler.ParseTextString(s.Network)
	}

	path := s.networkPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return compiler.CompileSource(path, data)
	}
	return compiler.ParseText(bytes.NewReader(data))
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Network == "" && s.NetworkFile == "":
		return fmt.Errorf("network or network_file is required")
	case s.Network != "" && s.NetworkFile != "":
		return fmt.Errorf("network and network_file are mutually exclusive")
	}

	switch s.Mode {
	case ModeFinite:
		if s.Presses <= 0 {
			return fmt.Errorf("presses must be positive for finite mode")
		}
		if s.Target != "" {
			return fmt.Errorf("target is only valid in converge mode")
		}
	case ModeConverge:
		if s.Target == "" {
			return fmt.Errorf("target is required for converge mode")
		}
		if s.Presses != 0 || s.Extrapolate {
			return fmt.Errorf("presses and extrapolate are only valid in finite mode")
		}
	case "":
		return fmt.Errorf("mode is required")
	default:
		return fmt.Errorf("unknown mode %q", s.Mode)
	}

	if s.MaxPresses < 0 || s.MaxPulses < 0 || s.TracePresses < 0 {
		return fmt.Errorf("max_presses, max_pulses and trace_presses must be non-negative")
	}

	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains, AssertTraceCount:
		if a.Pulse == nil {
			return fmt.Errorf("assertions[%d]: pulse is required for %s", index, a.Type)
		}
		if err := validateMatch(*a.Pulse); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertTraceOrder:
		if len(a.Pulses) == 0 {
			return fmt.Errorf("assertions[%d]: pulses list is required for trace_order", index)
		}
		for _, m := range a.Pulses {
			if err := validateMatch(m); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertFinalState:
		if a.Module == "" {
			return fmt.Errorf("assertions[%d]: module is required for final_state", index)
		}
		if a.Memory == "" && len(a.Inputs) == 0 {
			return fmt.Errorf("assertions[%d]: memory or inputs is required for final_state", index)
		}
		if a.Memory != "" && a.Memory != "on" && a.Memory != "off" {
			return fmt.Errorf("assertions[%d]: memory must be on or off, got %q", index, a.Memory)
		}
		for src, lvl := range a.Inputs {
			if _, err := ir.ParseLevel(lvl); err != nil {
				return fmt.Errorf("assertions[%d]: input %s: %w", index, src, err)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func validateMatch(m PulseMatch) error {
	if m.Level == "" {
		return nil
	}
	_, err := ir.ParseLevel(m.Level)
	return err
}

// DiscoverScenarios returns the .yaml and .yml files under dir, sorted.
// A path to a single file is returned as is.
func DiscoverScenarios(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{dir}, nil
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
