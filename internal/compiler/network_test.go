package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsenet/internal/ir"
)

func TestCompileNetwork_Basic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		network: {
			broadcaster: outputs: ["a"]
			a: {kind: "flipflop", outputs: ["inv", "con"]}
			inv: {kind: "conjunction", outputs: ["b"]}
			b: {kind: "flipflop", outputs: ["con"]}
			con: {kind: "conjunction", outputs: ["output"]}
		}
	`)
	require.NoError(t, v.Err())

	decls, err := CompileNetwork(v.LookupPath(cue.ParsePath("network")))
	require.NoError(t, err)
	require.Len(t, decls, 5)

	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"broadcaster", "a", "inv", "b", "con"}, names)
	assert.Equal(t, ir.KindBroadcaster, decls[0].Kind)
	assert.Equal(t, ir.KindConjunction, decls[2].Kind)
	assert.Equal(t, []string{"inv", "con"}, decls[1].Outputs)
	assert.Empty(t, Validate(decls))
}

func TestCompileNetwork_MatchesText(t *testing.T) {
	fromText, err := ParseTextString("broadcaster -> a\n%a -> inv\n&inv -> a\n")
	require.NoError(t, err)

	fromCUE, err := CompileSource("net.cue", []byte(`
network: {
	broadcaster: outputs: ["a"]
	a: {kind: "flipflop", outputs: ["inv"]}
	inv: {kind: "conjunction", outputs: ["a"]}
}
`))
	require.NoError(t, err)

	assert.Equal(t, ir.MustNetworkHash(fromText), ir.MustNetworkHash(fromCUE))
}

func TestCompileNetwork_MissingKind(t *testing.T) {
	decls, err := CompileSource("net.cue", []byte(`network: {
	broadcaster: outputs: ["a"]
	a: outputs: []
}`))
	require.NoError(t, err)
	require.Len(t, decls, 2)
	assert.Equal(t, ir.KindSink, decls[1].Kind)
	assert.Equal(t, []string{}, decls[1].Outputs)

	errs := Validate(decls)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnknownKind, errs[0].Code)
	assert.Equal(t, 3, errs[0].Line)
}

func TestCompileNetwork_BadKind(t *testing.T) {
	_, err := CompileSource("net.cue", []byte(`network: a: {kind: "toggle", outputs: []}`))
	require.Error(t, err)

	var cerr *CompileError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "a.kind", cerr.Field)
	assert.Contains(t, cerr.Message, "toggle")
}

func TestCompileNetwork_BadOutputs(t *testing.T) {
	_, err := CompileSource("net.cue", []byte(`network: a: {kind: "flipflop", outputs: [1]}`))
	assert.Error(t, err)

	_, err = CompileSource("net.cue", []byte(`network: a: {kind: "flipflop", outputs: "b"}`))
	assert.Error(t, err)
}

func TestCompileSource_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `network: {`},
		{"no network", `modules: {}`},
		{"empty network", `network: {}`},
		{"conflict", `network: a: kind: "flipflop"
network: a: kind: "conjunction"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileSource("net.cue", []byte(tt.src))
			assert.Error(t, err)
		})
	}
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "network", Message: "network is required"}
	assert.Equal(t, "network: network is required", err.Error())
}
