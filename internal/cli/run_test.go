package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsenet/internal/engine"
	"github.com/roach88/pulsenet/internal/ir"
	"github.com/roach88/pulsenet/internal/store"
	"github.com/roach88/pulsenet/internal/testutil"
)

func TestRun_LoopStopsAtRepeat(t *testing.T) {
	path := writeNetwork(t, "loop.txt", testutil.LoopNetwork)

	out, err := execute(t, NewRunCommand(jsonOpts()), path)
	require.NoError(t, err)

	res := decode[engine.FiniteResult](t, out).Data
	assert.Equal(t, 1000, res.Presses)
	assert.Equal(t, 2, res.Executed)
	assert.Equal(t, 1, res.Counted)
	assert.Equal(t, int64(8), res.Low)
	assert.Equal(t, int64(4), res.High)
	assert.Equal(t, int64(32), res.Result)
	assert.True(t, res.StoppedEarly)
	assert.Equal(t, 2, res.RepeatPress)
	assert.Equal(t, 1, res.CycleStart)
	assert.False(t, res.Extrapolated)
}

func TestRun_Extrapolate(t *testing.T) {
	path := writeNetwork(t, "loop.txt", testutil.LoopNetwork)

	out, err := execute(t, NewRunCommand(jsonOpts()), path, "--extrapolate")
	require.NoError(t, err)

	res := decode[engine.FiniteResult](t, out).Data
	assert.True(t, res.Extrapolated)
	assert.Equal(t, int64(8000), res.Low)
	assert.Equal(t, int64(4000), res.High)
	assert.Equal(t, int64(32000000), res.Result)
}

func TestRun_CounterText(t *testing.T) {
	path := writeNetwork(t, "counter.txt", testutil.CounterNetwork)
	opts := textOpts()
	cmd := NewRunCommand(opts)

	out, err := execute(t, cmd, path, "--run-id", "counter-1")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Run counter-1")
	assert.Contains(t, out, "Presses: 1000 requested, 5 simulated, 4 counted")
	assert.Contains(t, out, "Stopped early: press 5 repeats press 1 (not extrapolated)")
	assert.Contains(t, out, "Low:    17")
	assert.Contains(t, out, "High:   11")
	assert.Contains(t, out, "Result: 187")
	assert.NotContains(t, out, "Recorded in")
}

func TestRun_CounterExtrapolated(t *testing.T) {
	path := writeNetwork(t, "counter.txt", testutil.CounterNetwork)

	out, err := execute(t, NewRunCommand(jsonOpts()), path, "--extrapolate", "--presses", "1000")
	require.NoError(t, err)

	res := decode[engine.FiniteResult](t, out).Data
	assert.Equal(t, int64(4250), res.Low)
	assert.Equal(t, int64(2750), res.High)
	assert.Equal(t, int64(11687500), res.Result)
}

func TestRun_BudgetBeforeRepeat(t *testing.T) {
	path := writeNetwork(t, "counter.txt", testutil.CounterNetwork)

	out, err := execute(t, NewRunCommand(jsonOpts()), path, "-n", "3")
	require.NoError(t, err)

	res := decode[engine.FiniteResult](t, out).Data
	assert.False(t, res.StoppedEarly)
	assert.Equal(t, 3, res.Executed)
	assert.Equal(t, int64(13), res.Low)
	assert.Equal(t, int64(9), res.High)
	assert.Equal(t, int64(117), res.Result)
}

func TestRun_RecordsRun(t *testing.T) {
	path := writeNetwork(t, "counter.txt", testutil.CounterNetwork)
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(t, NewRunCommand(textOpts()), path, "--db", dbPath, "--run-id", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded in "+dbPath)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.ReadRun(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, ir.ModeFinite, run.Mode)
	assert.Equal(t, ir.RunStatusComplete, run.Status)
	assert.Equal(t, int64(187), run.Result)
	assert.True(t, run.StoppedEarly)

	presses, err := st.ReadPresses(context.Background(), "r1")
	require.NoError(t, err)
	assert.Len(t, presses, 5)
}

func TestRun_TracePressesLimit(t *testing.T) {
	path := writeNetwork(t, "counter.txt", testutil.CounterNetwork)
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	_, err := execute(t, NewRunCommand(textOpts()), path, "--db", dbPath, "--run-id", "r1", "--trace-presses", "1")
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	pulses, err := st.ReadPulses(context.Background(), "r1")
	require.NoError(t, err)
	assert.Len(t, pulses, 8)
}

func TestRun_RunIDGenerator(t *testing.T) {
	path := writeNetwork(t, "loop.txt", testutil.LoopNetwork)
	cmd := NewRunCommand(jsonOpts())
	opts := &RunOptions{SimulationOptions: SimulationOptions{
		RootOptions:    jsonOpts(),
		MaxPulses:      engine.DefaultMaxPulsesPerPress,
		RunIDGenerator: testutil.NewFixedRunIDGenerator("gen-1"),
	}, Presses: 10}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runFinite(opts, args[0], cmd)
	}

	out, err := execute(t, cmd, path)
	require.NoError(t, err)
	assert.Equal(t, "gen-1", decode[engine.FiniteResult](t, out).Data.RunID)
}

func TestRun_Runaway(t *testing.T) {
	path := writeNetwork(t, "runaway.txt", "broadcaster -> x\n&x -> x\n")

	out, err := execute(t, NewRunCommand(jsonOpts()), path, "--max-pulses", "100")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decode[any](t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(engine.ErrCodeRunawaySimulation), resp.Error.Code)
}

func TestRun_MissingFile(t *testing.T) {
	out, err := execute(t, NewRunCommand(textOpts()), filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}
