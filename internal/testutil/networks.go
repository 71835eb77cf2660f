package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/pulsenet/internal/compiler"
	"github.com/roach88/pulsenet/internal/ir"
)

// Sample networks in the line format.
const (
	// LoopNetwork delivers 8 low and 4 high pulses on every press. The
	// state after press 2 repeats the state after press 1.
	LoopNetwork = `broadcaster -> a, b, c
%a -> b
%b -> c
%c -> inv
&inv -> a
`

	// CounterNetwork is a two-bit counter observed by a conjunction.
	// Presses 1-4 deliver (4,4) (4,2) (5,3) (4,2) low/high pulses; the
	// state after press 5 repeats the state after press 1.
	CounterNetwork = `broadcaster -> a
%a -> inv, con
&inv -> b
%b -> con
&con -> output
`

	// ConvergeNetwork feeds rx through hub, whose feeders c3 and f first
	// send high on presses 4 and 6.
	ConvergeNetwork = `broadcaster -> c1, b1
%c1 -> c2
%c2 -> c3
%c3 -> hub
%b1 -> b2
%b2 -> b3, k
%b3 -> k
&k -> f
&f -> hub
&hub -> rx
`
)

// Declarations parses a line-format network or fails the test.
func Declarations(t testing.TB, text string) []ir.Declaration {
	t.Helper()
	decls, err := compiler.ParseTextString(text)
	if err != nil {
		t.Fatalf("parse network: %v", err)
	}
	return decls
}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
