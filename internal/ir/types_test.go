package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "low", Low.String())
	assert.Equal(t, "high", High.String())
}

func TestLevel_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Pulse{Source: "a", Level: High, Destination: "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"a","level":"high","destination":"b"}`, string(data))

	var p Pulse
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, High, p.Level)
}

func TestParseLevel_Invalid(t *testing.T) {
	_, err := ParseLevel("medium")
	assert.Error(t, err)
}

func TestKindFromTag(t *testing.T) {
	tests := []struct {
		tag  byte
		kind Kind
		ok   bool
	}{
		{'%', KindFlipFlop, true},
		{'&', KindConjunction, true},
		{'b', KindSink, false},
		{'#', KindSink, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			kind, ok := KindFromTag(tt.tag)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestKind_ParseRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindSink, KindBroadcaster, KindFlipFlop, KindConjunction} {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("toggle")
	assert.Error(t, err)
}

func TestKind_Tag(t *testing.T) {
	assert.Equal(t, "%", KindFlipFlop.Tag())
	assert.Equal(t, "&", KindConjunction.Tag())
	assert.Equal(t, "", KindBroadcaster.Tag())
	assert.Equal(t, "", KindSink.Tag())
}

func TestButtonPulse(t *testing.T) {
	p := ButtonPulse()
	assert.Equal(t, "button -low-> broadcaster", p.String())
}

func TestPressStats_Total(t *testing.T) {
	s := PressStats{Press: 1, Low: 8, High: 4}
	assert.Equal(t, int64(12), s.Total())
}
