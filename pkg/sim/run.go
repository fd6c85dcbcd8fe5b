package sim

import (
	"context"
	"time"
)

// Outcome is the terminal business result of a run.
type Outcome string

const (
	OutcomePass  Outcome = "PASS"
	OutcomeFail  Outcome = "FAIL"
	OutcomeBlock Outcome = "BLOCK"
)

// Speaker identifies which party produced a turn.
type Speaker string

const (
	SpeakerAgent Speaker = "agent"
	SpeakerBuyer Speaker = "buyer"
)

// Turn is a single utterance in a conversation. Turn sequences are
// append-only; a completed run's transcript is immutable.
type Turn struct {
	Speaker   Speaker `json:"speaker"`
	Content   string  `json:"content"`
	LatencyMs int64   `json:"latencyMs,omitempty"`
	Tokens    int     `json:"tokens,omitempty"`
	CostUSD   float64 `json:"costUsd,omitempty"`
}

// Run is the aggregate built up across a single scenario execution.
// It is treated as an immutable value: WithTurn and WithOutcome return
// derived copies, and WithOutcome is the only point that sets an
// outcome.
type Run struct {
	ID          string `json:"id"`
	ScenarioID  string `json:"scenarioId"`
	PersonaID   string `json:"personaId"`
	VariantName string `json:"variantName,omitempty"`
	Seed        int64  `json:"seed"`

	Turns        []Turn  `json:"turns"`
	TotalCostUSD float64 `json:"totalCostUsd"`

	Outcome       Outcome `json:"outcome,omitempty"`
	OutcomeReason string  `json:"outcomeReason,omitempty"`
	Completed     bool    `json:"completed"`

	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt,omitzero"`
}

// WithTurn returns a new Run with the turn appended and its cost folded
// into the running total. The receiver is not modified.
func (r Run) WithTurn(t Turn) Run {
	turns := make([]Turn, len(r.Turns), len(r.Turns)+1)
	copy(turns, r.Turns)
	r.Turns = append(turns, t)
	r.TotalCostUSD += t.CostUSD
	return r
}

// WithOutcome seals the run with its terminal outcome. Sealing an
// already-completed run is a no-op returning the receiver unchanged.
func (r Run) WithOutcome(outcome Outcome, reason string, at time.Time) Run {
	if r.Completed {
		return r
	}
	r.Outcome = outcome
	r.OutcomeReason = reason
	r.Completed = true
	r.CompletedAt = at
	return r
}

// LastTurn returns the most recent turn, if any.
func (r Run) LastTurn() (Turn, bool) {
	if len(r.Turns) == 0 {
		return Turn{}, false
	}
	return r.Turns[len(r.Turns)-1], true
}

// AgentTurns returns the agent-under-test's turns in order.
func (r Run) AgentTurns() []Turn {
	out := make([]Turn, 0, len(r.Turns))
	for _, t := range r.Turns {
		if t.Speaker == SpeakerAgent {
			out = append(out, t)
		}
	}
	return out
}

// RunStore is the persistence collaborator contract. Every method
// returns an updated Run value; implementations must never mutate the
// values handed to them. CompleteRun is the only outcome-setting point.
type RunStore interface {
	CreateRun(ctx context.Context, scenarioID, personaID, variantName string, seed int64) (Run, error)
	AppendTurn(ctx context.Context, run Run, turn Turn) (Run, error)
	CompleteRun(ctx context.Context, run Run, outcome Outcome, reason string) (Run, error)
}
