package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDeclarations() []Declaration {
	return []Declaration{
		{Kind: KindBroadcaster, Name: BroadcasterName, Outputs: []string{"a", "b"}},
		{Kind: KindFlipFlop, Name: "a", Outputs: []string{"c"}},
		{Kind: KindFlipFlop, Name: "b", Outputs: []string{"c"}},
		{Kind: KindConjunction, Name: "c", Outputs: []string{"output"}},
	}
}

func TestNetworkHashDeterminism(t *testing.T) {
	h1, err := NetworkHash(sampleDeclarations())
	require.NoError(t, err)
	h2, err := NetworkHash(sampleDeclarations())
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "NetworkHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestNetworkHashOutputOrderMatters(t *testing.T) {
	decls := sampleDeclarations()
	swapped := sampleDeclarations()
	swapped[0].Outputs = []string{"b", "a"}

	assert.NotEqual(t, MustNetworkHash(decls), MustNetworkHash(swapped),
		"output order is emission order and must change the hash")
}

func TestNetworkHashIgnoresLine(t *testing.T) {
	decls := sampleDeclarations()
	withLines := sampleDeclarations()
	for i := range withLines {
		withLines[i].Line = i + 1
	}
	assert.Equal(t, MustNetworkHash(decls), MustNetworkHash(withLines))
}

func TestStateHashOrderIndependent(t *testing.T) {
	a := IRObject{
		"x": IRObject{"memory": IRBool(true), "inputs": IRObject{"p": IRBool(false), "q": IRBool(true)}},
		"y": IRObject{"memory": IRBool(false), "inputs": IRObject{}},
	}
	b := IRObject{
		"y": IRObject{"inputs": IRObject{}, "memory": IRBool(false)},
		"x": IRObject{"inputs": IRObject{"q": IRBool(true), "p": IRBool(false)}, "memory": IRBool(true)},
	}

	ha, err := StateHash(a)
	require.NoError(t, err)
	hb, err := StateHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestStateHashDomainSeparation(t *testing.T) {
	decls := sampleDeclarations()
	state := IRObject{"decls": DeclarationsValue(decls)}

	sh, err := StateHash(state)
	require.NoError(t, err)
	assert.NotEqual(t, MustNetworkHash(decls), sh)
}
