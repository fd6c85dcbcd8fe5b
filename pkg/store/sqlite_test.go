package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealprobe/dealprobe/pkg/sim"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestSQLiteStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	run, err := s.CreateRun(ctx, "scenario-1", "persona-1", "hostile", 42)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	run, err = s.AppendTurn(ctx, run, sim.Turn{Speaker: sim.SpeakerBuyer, Content: "hello"})
	require.NoError(t, err)
	run, err = s.AppendTurn(ctx, run, sim.Turn{Speaker: sim.SpeakerAgent, Content: "hi", LatencyMs: 12, Tokens: 8, CostUSD: 0.02})
	require.NoError(t, err)

	run, err = s.CompleteRun(ctx, run, sim.OutcomePass, "all good")
	require.NoError(t, err)
	assert.True(t, run.Completed)

	loaded, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "scenario-1", loaded.ScenarioID)
	assert.Equal(t, "hostile", loaded.VariantName)
	assert.Equal(t, int64(42), loaded.Seed)
	assert.True(t, loaded.Completed)
	assert.Equal(t, sim.OutcomePass, loaded.Outcome)
	assert.Equal(t, "all good", loaded.OutcomeReason)
	assert.InDelta(t, 0.02, loaded.TotalCostUSD, 1e-9)

	require.Len(t, loaded.Turns, 2)
	assert.Equal(t, sim.SpeakerBuyer, loaded.Turns[0].Speaker)
	assert.Equal(t, "hello", loaded.Turns[0].Content)
	assert.Equal(t, int64(12), loaded.Turns[1].LatencyMs)
	assert.Equal(t, 8, loaded.Turns[1].Tokens)
}

func TestSQLiteStoreCompletionIsFinal(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	run, err := s.CreateRun(ctx, "s", "p", "", 1)
	require.NoError(t, err)

	completed, err := s.CompleteRun(ctx, run, sim.OutcomeFail, "ceiling")
	require.NoError(t, err)

	_, err = s.CompleteRun(ctx, completed, sim.OutcomePass, "retry")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already completed or unknown")
}

func TestSQLiteStoreRequiresDSN(t *testing.T) {
	_, err := NewSQLiteStore("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN not set")
}

func TestSQLiteStoreUnknownRun(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	_, err := s.GetRun(ctx, "nope")
	require.Error(t, err)
}
