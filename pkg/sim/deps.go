package sim

import (
	"context"

	"github.com/dealprobe/dealprobe/pkg/scenario"
)

// AgentResponse is one reply from the agent under test.
type AgentResponse struct {
	Content    string
	TokensUsed int
	CostUSD    float64
}

// AgentInvoker is the agent-under-test contract. Invocation may fail;
// the executor surfaces such faults as a terminal BLOCK.
type AgentInvoker interface {
	Invoke(ctx context.Context, conversation []Turn, sc scenario.Scenario) (*AgentResponse, error)
}

// LanguageModel produces naturalistic buyer replies from a composed
// prompt. It is optional: the engine must run fully without one, and a
// failed call falls back to deterministic selection.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
