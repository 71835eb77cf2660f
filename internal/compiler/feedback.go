package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/pulsenet/internal/ir"
)

// FeedbackWarning describes one feedback loop in a network.
//
// Loops are expected: flip-flop counters and conjunction latches are built
// from them. The report is informational and helps explain why a network
// cycles or why a convergence target takes many presses.
type FeedbackWarning struct {
	Path         []string `json:"path"`         // e.g. ["a", "inv", "a"]
	Modules      []string `json:"modules"`      // SCC members, sorted
	Conjunctions []string `json:"conjunctions"` // conjunctions inside the loop, sorted
	Message      string   `json:"message"`
	Level        string   `json:"level"` // always "info"
}

// AnalyzeFeedback finds the strongly connected components of the module
// graph. Each component with more than one module, or a module that feeds
// itself, becomes a warning. Warnings are ordered by their first module in
// declaration order. A feed-forward network returns an empty list.
func AnalyzeFeedback(decls []ir.Declaration) []FeedbackWarning {
	graph, order := buildModuleGraph(decls)
	kinds := make(map[string]ir.Kind, len(decls))
	for _, d := range decls {
		kinds[d.Name] = d.Kind
	}

	warnings := []FeedbackWarning{}
	for _, scc := range tarjanSCC(graph, order) {
		if len(scc) == 1 && !hasSelfLoop(scc[0], graph) {
			continue
		}
		warnings = append(warnings, sccToWarning(scc, graph, kinds, order))
	}

	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}
	slices.SortStableFunc(warnings, func(a, b FeedbackWarning) int {
		return rank[a.Path[0]] - rank[b.Path[0]]
	})
	return warnings
}

// moduleGraph maps a module to its declared outputs.
type moduleGraph map[string][]string

// buildModuleGraph returns the edge map and every node in first-seen order,
// including undeclared destinations.
func buildModuleGraph(decls []ir.Declaration) (moduleGraph, []string) {
	graph := make(moduleGraph)
	var order []string
	visit := func(name string) {
		if _, ok := graph[name]; !ok {
			graph[name] = []string{}
			order = append(order, name)
		}
	}
	for _, d := range decls {
		visit(d.Name)
	}
	for _, d := range decls {
		for _, dest := range d.Outputs {
			visit(dest)
			graph[d.Name] = append(graph[d.Name], dest)
		}
	}
	return graph, order
}

func hasSelfLoop(node string, graph moduleGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in the given order so the result is deterministic.
func tarjanSCC(graph moduleGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func sccToWarning(scc []string, graph moduleGraph, kinds map[string]ir.Kind, order []string) FeedbackWarning {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	// Start the path at the member declared first.
	var start string
	for _, n := range order {
		if members[n] {
			start = n
			break
		}
	}

	w := FeedbackWarning{
		Path:         reconstructLoopPath(start, members, graph),
		Modules:      slices.Sorted(slices.Values(scc)),
		Conjunctions: []string{},
		Level:        "info",
	}
	for _, n := range w.Modules {
		if kinds[n] == ir.KindConjunction {
			w.Conjunctions = append(w.Conjunctions, n)
		}
	}

	if len(scc) == 1 {
		w.Message = fmt.Sprintf("module %s feeds itself", start)
	} else {
		w.Message = fmt.Sprintf("feedback loop: %s", strings.Join(w.Path, " → "))
	}
	return w
}

// reconstructLoopPath follows edges inside the component from start until
// it returns to start or runs out of unvisited members.
func reconstructLoopPath(start string, members map[string]bool, graph moduleGraph) []string {
	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		var next string
		for _, n := range graph[current] {
			if n == start {
				next = n
				break
			}
			if members[n] && !visited[n] && next == "" {
				next = n
			}
		}
		if next == "" {
			return path
		}
		path = append(path, next)
		if next == start {
			return path
		}
		visited[next] = true
		current = next
	}
}
