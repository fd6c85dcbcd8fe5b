package agent

import (
	"context"
	"fmt"

	"github.com/dealprobe/dealprobe/pkg/scenario"
	"github.com/dealprobe/dealprobe/pkg/sim"
)

// ScriptedAgent replays a fixed sequence of replies. It backs offline
// runs and regression tests, where the whole engine must behave
// reproducibly with no external services at all. The reply index is
// derived from the agent turns already in the conversation, so one
// instance can serve many concurrent runs without coupling their
// transcripts. The final reply is sticky once the script runs out.
type ScriptedAgent struct {
	replies []string

	// Err, when set, is returned on every invocation; used to exercise
	// agent-fault handling.
	Err error
}

var _ sim.AgentInvoker = &ScriptedAgent{}

func NewScriptedAgent(replies ...string) *ScriptedAgent {
	return &ScriptedAgent{replies: replies}
}

func (a *ScriptedAgent) Invoke(_ context.Context, conversation []sim.Turn, _ scenario.Scenario) (*sim.AgentResponse, error) {
	if a.Err != nil {
		return nil, a.Err
	}
	if len(a.replies) == 0 {
		return nil, fmt.Errorf("scripted agent has no replies configured")
	}

	idx := 0
	for _, t := range conversation {
		if t.Speaker == sim.SpeakerAgent {
			idx++
		}
	}
	if idx >= len(a.replies) {
		idx = len(a.replies) - 1
	}

	return &sim.AgentResponse{Content: a.replies[idx]}, nil
}
