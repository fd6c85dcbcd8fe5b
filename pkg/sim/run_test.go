package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithTurn(t *testing.T) {
	base := Run{ID: "r1", Seed: 42}

	updated := base.WithTurn(Turn{Speaker: SpeakerBuyer, Content: "hello"})
	updated = updated.WithTurn(Turn{Speaker: SpeakerAgent, Content: "hi", CostUSD: 0.01})
	updated = updated.WithTurn(Turn{Speaker: SpeakerBuyer, Content: "bye", CostUSD: 0.02})

	// The receiver is never mutated.
	assert.Empty(t, base.Turns)
	assert.Zero(t, base.TotalCostUSD)

	require.Len(t, updated.Turns, 3)
	assert.InDelta(t, 0.03, updated.TotalCostUSD, 1e-9)

	// Appending to a derived copy must not leak into siblings.
	left := updated.WithTurn(Turn{Speaker: SpeakerAgent, Content: "left"})
	right := updated.WithTurn(Turn{Speaker: SpeakerAgent, Content: "right"})
	assert.Equal(t, "left", left.Turns[3].Content)
	assert.Equal(t, "right", right.Turns[3].Content)
}

func TestRunWithOutcome(t *testing.T) {
	now := time.Now().UTC()
	run := Run{ID: "r1"}

	sealed := run.WithOutcome(OutcomePass, "went well", now)
	assert.True(t, sealed.Completed)
	assert.Equal(t, OutcomePass, sealed.Outcome)
	assert.Equal(t, "went well", sealed.OutcomeReason)
	assert.Equal(t, now, sealed.CompletedAt)

	// Sealing is final: a second outcome is a no-op.
	resealed := sealed.WithOutcome(OutcomeFail, "changed my mind", now.Add(time.Hour))
	assert.Equal(t, OutcomePass, resealed.Outcome)
	assert.Equal(t, "went well", resealed.OutcomeReason)
	assert.Equal(t, now, resealed.CompletedAt)

	// The original run stays untouched.
	assert.False(t, run.Completed)
}

func TestRunAccessors(t *testing.T) {
	run := Run{}

	_, ok := run.LastTurn()
	assert.False(t, ok)

	run = run.WithTurn(Turn{Speaker: SpeakerBuyer, Content: "b1"})
	run = run.WithTurn(Turn{Speaker: SpeakerAgent, Content: "a1"})
	run = run.WithTurn(Turn{Speaker: SpeakerBuyer, Content: "b2"})
	run = run.WithTurn(Turn{Speaker: SpeakerAgent, Content: "a2"})

	last, ok := run.LastTurn()
	require.True(t, ok)
	assert.Equal(t, "a2", last.Content)

	agentTurns := run.AgentTurns()
	require.Len(t, agentTurns, 2)
	assert.Equal(t, "a1", agentTurns[0].Content)
	assert.Equal(t, "a2", agentTurns[1].Content)
}
