package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsenet/internal/store"
	"github.com/roach88/pulsenet/internal/testutil"
)

func TestReplay_Deterministic(t *testing.T) {
	dbPath := recordRun(t, testutil.CounterNetwork, "--run-id", "r1")
	hub := writeNetwork(t, "hub.txt", testutil.ConvergeNetwork)
	_, err := execute(t, NewConvergeCommand(textOpts()), hub, "--db", dbPath, "--run-id", "r2")
	require.NoError(t, err)

	out, err := execute(t, NewReplayCommand(jsonOpts()), "--db", dbPath)
	require.NoError(t, err)

	resp := decode[ReplayResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.TotalRuns)
	assert.Equal(t, 2, resp.Data.Replayed)
	assert.True(t, resp.Data.AllDeterministic)

	finite := resp.Data.Runs[0]
	assert.Equal(t, "r1", finite.RunID)
	assert.True(t, finite.Deterministic)
	assert.Equal(t, 5, finite.PressesCompared)
	assert.Equal(t, 36, finite.PulsesCompared)
	assert.Equal(t, int64(187), finite.ReplayedResult)

	converge := resp.Data.Runs[1]
	assert.Equal(t, "r2", converge.RunID)
	assert.Equal(t, int64(12), converge.ReplayedResult)
}

func TestReplay_Text(t *testing.T) {
	dbPath := recordRun(t, testutil.LoopNetwork, "--run-id", "r1", "--extrapolate")

	out, err := execute(t, NewReplayCommand(textOpts()), "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Replay Summary: 1 run(s), 1 replayed")
	assert.Contains(t, out, "✓ Run: r1 (finite)")
	assert.Contains(t, out, "Result: 32000000")
	assert.Contains(t, out, "✓ All runs verified deterministic")
}

func TestReplay_DetectsTampering(t *testing.T) {
	dbPath := recordRun(t, testutil.CounterNetwork, "--run-id", "r1")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(context.Background(),
		"UPDATE presses SET low = low + 1 WHERE run_id = ? AND press = 2", "r1")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, NewReplayCommand(textOpts()), "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ Run: r1 (finite)")
	assert.Contains(t, out, "Difference: press 2: stored low=5 high=2, replayed low=4 high=2")
	assert.Contains(t, out, "✗ Determinism verification failed")
}

func TestReplay_DetectsTamperingJSON(t *testing.T) {
	dbPath := recordRun(t, testutil.LoopNetwork, "--run-id", "r1")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(context.Background(),
		"UPDATE pulses SET level = 'high' WHERE run_id = ? AND seq = 1", "r1")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, NewReplayCommand(jsonOpts()), "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decode[ReplayResult](t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDeterminism, resp.Error.Code)
	assert.False(t, resp.Data.AllDeterministic)
	require.Len(t, resp.Data.Runs, 1)
	assert.Contains(t, resp.Data.Runs[0].Differences,
		"pulse seq=1: stored button -high-> broadcaster, replayed button -low-> broadcaster")
}

func TestReplay_SkipsFailedRuns(t *testing.T) {
	dbPath := recordRun(t, testutil.LoopNetwork, "--run-id", "r1")
	runaway := writeNetwork(t, "runaway.txt", "broadcaster -> x\n&x -> x\n")
	_, err := execute(t, NewRunCommand(textOpts()), runaway, "--db", dbPath, "--run-id", "r2", "--max-pulses", "50")
	require.Error(t, err)

	out, err := execute(t, NewReplayCommand(jsonOpts()), "--db", dbPath)
	require.NoError(t, err)

	resp := decode[ReplayResult](t, out)
	assert.Equal(t, 2, resp.Data.TotalRuns)
	assert.Equal(t, 1, resp.Data.Replayed)
	assert.True(t, resp.Data.AllDeterministic)
	assert.Equal(t, "r2", resp.Data.Runs[1].RunID)
	assert.Equal(t, "status failed", resp.Data.Runs[1].Skipped)
}

func TestReplay_SkipsInterruptedRuns(t *testing.T) {
	dbPath := recordRun(t, testutil.CounterNetwork, "--run-id", "r1")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(context.Background(),
		"UPDATE runs SET status = 'running' WHERE id = ?", "r1")
	require.NoError(t, err)
	_, err = st.DB().ExecContext(context.Background(),
		"DELETE FROM presses WHERE run_id = ? AND press > 3", "r1")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, NewReplayCommand(textOpts()), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 1 run(s), 0 replayed")
	assert.Contains(t, out, "- Run: r1 (skipped: interrupted after press 3)")
}

func TestReplay_SingleRun(t *testing.T) {
	dbPath := recordRun(t, testutil.LoopNetwork, "--run-id", "r1")
	loop := writeNetwork(t, "loop.txt", testutil.LoopNetwork)
	_, err := execute(t, NewRunCommand(textOpts()), loop, "--db", dbPath, "--run-id", "r2")
	require.NoError(t, err)

	out, err := execute(t, NewReplayCommand(jsonOpts()), "--db", dbPath, "--run", "r2")
	require.NoError(t, err)

	resp := decode[ReplayResult](t, out)
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, "r2", resp.Data.Runs[0].RunID)

	_, err = execute(t, NewReplayCommand(jsonOpts()), "--db", dbPath, "--run", "r3")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplay_EmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, NewReplayCommand(textOpts()), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found in database.")
}

func TestReplay_MissingDatabase(t *testing.T) {
	out, err := execute(t, NewReplayCommand(textOpts()), "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}
