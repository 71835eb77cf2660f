package ir

// NOTE: These are store-layer records, not part of the simulation core.

// Run modes.
const (
	ModeFinite   = "finite"
	ModeConverge = "converge"
)

// Run statuses.
const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)

// RunRecord describes one controller execution.
type RunRecord struct {
	ID               string        `json:"id"`
	Mode             string        `json:"mode"`
	NetworkHash      string        `json:"network_hash"`
	Declarations     []Declaration `json:"declarations"`
	PressesRequested int           `json:"presses_requested,omitempty"` // finite mode
	Target           string        `json:"target,omitempty"`            // converge mode
	MaxPresses       int           `json:"max_presses,omitempty"`       // converge mode safety bound
	Extrapolate      bool          `json:"extrapolate,omitempty"`
	Result           int64         `json:"result"`
	StoppedEarly     bool          `json:"stopped_early"`
	Status           string        `json:"status"`
	EngineVersion    string        `json:"engine_version"`
}

// PressRecord stores the outcome of one press within a run.
type PressRecord struct {
	RunID       string `json:"run_id"`
	Press       int    `json:"press"`
	Low         int64  `json:"low"`
	High        int64  `json:"high"`
	Fingerprint string `json:"fingerprint"`
}

// PulseRecord is one delivered pulse within a run.
// Seq is the run-wide logical delivery order.
type PulseRecord struct {
	ID          int64  `json:"id"` // Auto-increment (store FK)
	RunID       string `json:"run_id"`
	Press       int    `json:"press"`
	Seq         int64  `json:"seq"`
	Source      string `json:"source"`
	Level       Level  `json:"level"`
	Destination string `json:"destination"`
}

// FeederHit records the press at which a feeder first emitted high.
type FeederHit struct {
	RunID  string `json:"run_id"`
	Feeder string `json:"feeder"`
	Press  int    `json:"press"`
}
