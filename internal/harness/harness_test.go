package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsenet/internal/engine"
	"github.com/roach88/pulsenet/internal/ir"
	"github.com/roach88/pulsenet/internal/testutil"
)

func int64p(v int64) *int64 { return &v }

func TestRun_Scenarios(t *testing.T) {
	files, err := DiscoverScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		s, err := LoadScenario(f)
		require.NoError(t, err, f)

		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_CounterTrace(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/counter_cycle.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Equal(t, DefaultRunID, result.RunID)
	assert.Equal(t, 5, result.Presses)
	require.Len(t, result.Trace, 8)
	assert.Equal(t, TraceEvent{Press: 1, Seq: 1, Source: "button", Level: "low", Destination: "broadcaster"}, result.Trace[0])
	assert.Equal(t, "con -low-> output", result.Trace[7].String())

	con := result.State["con"]
	assert.Equal(t, ir.KindConjunction, con.Kind)
	assert.Equal(t, map[string]ir.Level{"a": ir.High, "b": ir.High}, con.Inputs)
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/converge_hub.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.FirstHigh, second.FirstHigh)
}

func TestRun_WrongExpectationFails(t *testing.T) {
	s := &Scenario{
		Name:        "wrong",
		Description: "d",
		Network:     testutil.LoopNetwork,
		Mode:        ModeFinite,
		Presses:     1000,
		Expect:      &Expectation{Result: int64p(32000000), Low: int64p(8000)},
	}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, []string{
		"result: expected 32000000, got 32",
		"low: expected 8000, got 8",
	}, result.Errors)
}

func TestRun_Extrapolated(t *testing.T) {
	s := &Scenario{
		Name:        "loop",
		Description: "d",
		Network:     testutil.LoopNetwork,
		Mode:        ModeFinite,
		Presses:     1000,
		Extrapolate: true,
		Expect:      &Expectation{Result: int64p(32000000), Low: int64p(8000), High: int64p(4000)},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_MalformedNetwork(t *testing.T) {
	s := &Scenario{
		Name:        "malformed",
		Description: "d",
		Network:     "broadcaster -> a\n%a -> button\n",
		Mode:        ModeFinite,
		Presses:     1,
		Expect:      &Expectation{Error: string(engine.ErrCodeMalformedNetwork)},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Trace)
}

func TestRun_UnexpectedError(t *testing.T) {
	s := &Scenario{
		Name:        "incomplete",
		Description: "d",
		Network:     testutil.ConvergeNetwork,
		Mode:        ModeConverge,
		Target:      "rx",
		MaxPresses:  5,
		Expect:      &Expectation{Result: int64p(12)},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, string(engine.ErrCodeIncompleteConvergence), result.ErrorCode)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "run failed")
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	s := &Scenario{
		Name:        "no-error",
		Description: "d",
		Network:     testutil.ConvergeNetwork,
		Mode:        ModeConverge,
		Target:      "rx",
		Expect:      &Expectation{Error: string(engine.ErrCodeIncompleteConvergence)},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "run succeeded")
}

func TestRun_UnknownFeeder(t *testing.T) {
	s := &Scenario{
		Name:        "feeders",
		Description: "d",
		Network:     testutil.ConvergeNetwork,
		Mode:        ModeConverge,
		Target:      "rx",
		Expect:      &Expectation{Feeders: map[string]int{"c3": 4, "k": 2}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"feeder k: not a feeder of the target (feeders: c3, f)"}, result.Errors)
}

func TestRun_CustomRunID(t *testing.T) {
	s := &Scenario{
		Name:        "run-id",
		Description: "d",
		Network:     testutil.LoopNetwork,
		Mode:        ModeFinite,
		Presses:     1,
		RunID:       "fixed-run",
		Expect:      &Expectation{Result: int64p(32)},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "fixed-run", result.RunID)
	assert.Len(t, result.Trace, 12)
}

func TestRun_BadNetworkText(t *testing.T) {
	s := &Scenario{
		Name:        "syntax",
		Description: "d",
		Network:     "broadcaster a b",
		Mode:        ModeFinite,
		Presses:     1,
		Expect:      &Expectation{},
	}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E100")
}
