package ir

import (
	"encoding/json"
	"fmt"
)

// Reserved module names.
const (
	// BroadcasterName is the single entry module fed by the button.
	BroadcasterName = "broadcaster"

	// ButtonName is the implicit external source of every press.
	ButtonName = "button"
)

// Level is a binary pulse level.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// String returns "low" or "high".
func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// MarshalJSON encodes the level as "low" or "high".
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON accepts "low" or "high".
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	lv, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = lv
	return nil
}

// ParseLevel parses "low" or "high".
func ParseLevel(s string) (Level, error) {
	switch s {
	case "low":
		return Low, nil
	case "high":
		return High, nil
	default:
		return Low, fmt.Errorf("invalid level %q: must be low or high", s)
	}
}

// Kind identifies a module's transition behaviour.
type Kind int

const (
	// KindSink is synthesized for destinations that are never declared.
	KindSink Kind = iota
	KindBroadcaster
	KindFlipFlop
	KindConjunction
)

// Kind tags as they appear in the text format.
const (
	TagFlipFlop    = '%'
	TagConjunction = '&'
)

var kindNames = map[Kind]string{
	KindSink:        "sink",
	KindBroadcaster: "broadcaster",
	KindFlipFlop:    "flipflop",
	KindConjunction: "conjunction",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalJSON encodes the kind by name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParseKind parses a kind name as produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindSink, fmt.Errorf("unknown module kind %q", s)
}

// KindFromTag maps a text-format type prefix to a kind.
// The second result is false for anything other than '%' or '&'.
func KindFromTag(tag byte) (Kind, bool) {
	switch tag {
	case TagFlipFlop:
		return KindFlipFlop, true
	case TagConjunction:
		return KindConjunction, true
	default:
		return KindSink, false
	}
}

// Tag returns the text-format prefix for the kind, or "" if it has none.
func (k Kind) Tag() string {
	switch k {
	case KindFlipFlop:
		return string(rune(TagFlipFlop))
	case KindConjunction:
		return string(rune(TagConjunction))
	default:
		return ""
	}
}

// Declaration is one parsed module record: kind, name and ordered outputs.
// The broadcaster is declared with KindBroadcaster.
type Declaration struct {
	Kind    Kind     `json:"kind"`
	Name    string   `json:"name"`
	Outputs []string `json:"outputs"`
	Line    int      `json:"-"` // Source line, 0 when unknown
}

// Pulse is a single signal travelling along one edge.
type Pulse struct {
	Source      string `json:"source"`
	Level       Level  `json:"level"`
	Destination string `json:"destination"`
}

// String renders the pulse as "src -low-> dst".
func (p Pulse) String() string {
	return fmt.Sprintf("%s -%s-> %s", p.Source, p.Level, p.Destination)
}

// ButtonPulse is the synthetic pulse that starts every press.
func ButtonPulse() Pulse {
	return Pulse{Source: ButtonName, Level: Low, Destination: BroadcasterName}
}

// PressStats holds the delivered pulse counts of one press.
// The initiating button pulse is counted as one low pulse.
type PressStats struct {
	Press int   `json:"press"`
	Low   int64 `json:"low"`
	High  int64 `json:"high"`
}

// Total returns the number of pulses delivered during the press.
func (s PressStats) Total() int64 {
	return s.Low + s.High
}
