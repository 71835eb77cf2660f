package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/pulsenet/internal/ir"
)

// Network owns the full set of modules, built once from declarations.
//
// INVARIANTS:
//   - Every destination name has exactly one module (declared or sink)
//   - A module's input set is exactly the set of modules that declare it
//     as an output (plus "button" for the broadcaster)
//   - Outputs and input names never change after construction
type Network struct {
	modules map[string]*Module
	order   []string // broadcaster, declared modules, then synthesized sinks
	decls   []ir.Declaration
}

// NewNetwork builds a network from an ordered declaration list.
//
// Construction:
//  1. Create the broadcaster with a single input "button" (low).
//  2. Create every declared flip-flop and conjunction with empty edges.
//  3. For each declaration in order, append its outputs; synthesize a sink
//     for any destination that has no module yet; register the source as
//     an input (low) of every destination.
//
// A broadcaster declaration supplies the broadcaster's outputs; it is
// optional here even though compiler.Validate requires one, so a network
// without it has a broadcaster that forwards to nobody. Returns a
// MALFORMED_NETWORK RuntimeError if the declarations cannot be simulated.
func NewNetwork(decls []ir.Declaration) (*Network, error) {
	if err := checkDeclarations(decls); err != nil {
		return nil, err
	}

	n := &Network{
		modules: make(map[string]*Module, len(decls)+1),
		decls:   cloneDeclarations(decls),
	}

	bc := n.add(ir.BroadcasterName, ir.KindBroadcaster)
	bc.addInput(ir.ButtonName)

	for _, d := range decls {
		if d.Kind == ir.KindBroadcaster {
			continue
		}
		n.add(d.Name, d.Kind)
	}

	for _, d := range decls {
		src := n.modules[d.Name]
		for _, dest := range d.Outputs {
			src.addOutput(dest)
			target, ok := n.modules[dest]
			if !ok {
				target = n.add(dest, ir.KindSink)
			}
			target.addInput(src.name)
		}
	}

	return n, nil
}

func (n *Network) add(name string, kind ir.Kind) *Module {
	m := newModule(name, kind)
	n.modules[name] = m
	n.order = append(n.order, name)
	return m
}

// checkDeclarations rejects declaration lists that violate the network
// invariants. compiler.Validate reports the same problems exhaustively with
// codes; this check fails fast.
func checkDeclarations(decls []ir.Declaration) error {
	seen := make(map[string]bool, len(decls))
	for _, d := range decls {
		switch {
		case d.Name == "":
			return NewMalformedError("", "declaration with empty name")
		case seen[d.Name]:
			return NewMalformedError(d.Name, "module declared more than once")
		case d.Name == ir.ButtonName:
			return NewMalformedError(d.Name, "\"button\" is reserved for the external press source")
		case d.Kind == ir.KindBroadcaster && d.Name != ir.BroadcasterName:
			return NewMalformedError(d.Name, "only \"broadcaster\" may have the broadcaster kind")
		case d.Name == ir.BroadcasterName && d.Kind != ir.KindBroadcaster:
			return NewMalformedError(d.Name, "\"broadcaster\" must have the broadcaster kind")
		case d.Kind != ir.KindBroadcaster && d.Kind != ir.KindFlipFlop && d.Kind != ir.KindConjunction:
			return NewMalformedError(d.Name, fmt.Sprintf("module kind %s cannot be declared", d.Kind))
		}
		seen[d.Name] = true

		for i, dest := range d.Outputs {
			switch {
			case dest == "":
				return NewMalformedError(d.Name, "empty output name")
			case dest[0] == ir.TagFlipFlop || dest[0] == ir.TagConjunction:
				return NewMalformedError(d.Name, fmt.Sprintf("output %q carries a kind tag", dest))
			case dest == ir.BroadcasterName:
				return NewMalformedError(d.Name, "the broadcaster cannot be an output")
			case dest == ir.ButtonName:
				return NewMalformedError(d.Name, "the button cannot be an output")
			case slices.Contains(d.Outputs[:i], dest):
				return NewMalformedError(d.Name, fmt.Sprintf("output %q listed more than once", dest))
			}
		}
	}
	return nil
}

func cloneDeclarations(decls []ir.Declaration) []ir.Declaration {
	out := make([]ir.Declaration, len(decls))
	for i, d := range decls {
		d.Outputs = slices.Clone(d.Outputs)
		out[i] = d
	}
	return out
}

// Module returns the named module, or nil.
func (n *Network) Module(name string) *Module {
	return n.modules[name]
}

// Names returns module names in creation order.
func (n *Network) Names() []string {
	return slices.Clone(n.order)
}

// Len returns the number of modules, including synthesized sinks.
func (n *Network) Len() int {
	return len(n.order)
}

// Declarations returns a copy of the declarations the network was built from.
func (n *Network) Declarations() []ir.Declaration {
	return cloneDeclarations(n.decls)
}

// Reset restores every module to its initial state.
func (n *Network) Reset() {
	for _, m := range n.modules {
		m.reset()
	}
}

// Fingerprint returns an order-independent hash of the global state: every
// module's kind, memory and input levels.
func (n *Network) Fingerprint() (string, error) {
	state := make(ir.IRObject, len(n.modules))
	for name, m := range n.modules {
		state[name] = m.stateValue()
	}
	return ir.StateHash(state)
}

// Snapshot returns the state of every module keyed by name.
func (n *Network) Snapshot() map[string]ModuleState {
	snap := make(map[string]ModuleState, len(n.modules))
	for name, m := range n.modules {
		snap[name] = m.State()
	}
	return snap
}
