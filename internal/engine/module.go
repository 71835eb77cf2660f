package engine

import (
	"slices"

	"github.com/roach88/pulsenet/internal/ir"
)

// Module is one network node.
//
// Behaviour is selected by kind (a closed set, see ir.Kind) and dispatched
// in Receive. Outputs and the set of input names are fixed at construction;
// only memory and input levels change during simulation.
type Module struct {
	name   string
	kind   ir.Kind
	memory ir.Level // FlipFlop: on/off. Broadcaster, Conjunction: last emitted level.

	inputs     map[string]ir.Level
	inputOrder []string // registration order
	outputs    []string // emission order
}

func newModule(name string, kind ir.Kind) *Module {
	return &Module{
		name:   name,
		kind:   kind,
		inputs: make(map[string]ir.Level),
	}
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Kind returns the module kind.
func (m *Module) Kind() ir.Kind { return m.kind }

// Memory returns the module's memory bit. Always Low for sinks.
func (m *Module) Memory() ir.Level { return m.memory }

// Outputs returns a copy of the ordered destination list.
func (m *Module) Outputs() []string { return slices.Clone(m.outputs) }

// Inputs returns the registered input names in registration order.
func (m *Module) Inputs() []string { return slices.Clone(m.inputOrder) }

// Input returns the last level received from source.
// The second result is false if source is not a registered input.
func (m *Module) Input(source string) (ir.Level, bool) {
	lv, ok := m.inputs[source]
	return lv, ok
}

// addInput registers source with an initial low level. Registering the same
// source twice is a no-op.
func (m *Module) addInput(source string) {
	if _, ok := m.inputs[source]; ok {
		return
	}
	m.inputs[source] = ir.Low
	m.inputOrder = append(m.inputOrder, source)
}

func (m *Module) addOutput(dest string) {
	m.outputs = append(m.outputs, dest)
}

// reset restores the initial state: memory off, every input low.
func (m *Module) reset() {
	m.memory = ir.Low
	for src := range m.inputs {
		m.inputs[src] = ir.Low
	}
}

// Receive delivers one pulse and returns the level to broadcast to every
// output, or false if the module does not broadcast.
//
// The input entry for source is updated before the broadcast decision; a
// conjunction depends on this. Pulses from unregistered sources never add
// an input, so the input set stays fixed.
func (m *Module) Receive(source string, level ir.Level) (ir.Level, bool) {
	if _, ok := m.inputs[source]; ok {
		m.inputs[source] = level
	}

	switch m.kind {
	case ir.KindBroadcaster:
		m.memory = level
		return level, true

	case ir.KindFlipFlop:
		if level == ir.High {
			return ir.Low, false
		}
		m.memory = !m.memory
		return m.memory, true

	case ir.KindConjunction:
		m.memory = ir.Level(!m.allInputsHigh())
		return m.memory, true

	default:
		// Sink: records the input, never broadcasts.
		return ir.Low, false
	}
}

func (m *Module) allInputsHigh() bool {
	for _, lv := range m.inputs {
		if lv == ir.Low {
			return false
		}
	}
	return true
}

// stateValue is the module's contribution to the global-state fingerprint.
func (m *Module) stateValue() ir.IRObject {
	state := ir.IRObject{
		"kind":   ir.IRString(m.kind.String()),
		"inputs": ir.LevelObject(m.inputs),
	}
	if m.kind != ir.KindSink {
		state["memory"] = ir.IRBool(m.memory)
	}
	return state
}

// ModuleState is an immutable view of one module's state.
type ModuleState struct {
	Name   string              `json:"name"`
	Kind   ir.Kind             `json:"kind"`
	Memory ir.Level            `json:"memory"`
	Inputs map[string]ir.Level `json:"inputs"`
}

// State returns a copy of the module's current state.
func (m *Module) State() ModuleState {
	inputs := make(map[string]ir.Level, len(m.inputs))
	for src, lv := range m.inputs {
		inputs[src] = lv
	}
	return ModuleState{
		Name:   m.name,
		Kind:   m.kind,
		Memory: m.memory,
		Inputs: inputs,
	}
}
