package sim

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealprobe/dealprobe/pkg/persona"
)

// stubModel is a canned LanguageModel that records the prompts it saw.
type stubModel struct {
	reply   string
	err     error
	prompts []string
}

func (m *stubModel) Complete(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func testPersona() persona.Persona {
	p := persona.Persona{
		Name:     "CFO",
		Category: persona.CategoryBudgetHolder,
		HiddenStates: []persona.HiddenState{
			{Key: "budget", Value: "up to $40k annually", Type: "budget"},
		},
	}
	if err := p.Validate(); err != nil {
		panic(err)
	}
	return p
}

func TestResponderDegradedMode(t *testing.T) {
	ctx := context.Background()
	r := NewResponder(testPersona(), nil)

	t.Run("same seed yields the same reply", func(t *testing.T) {
		a := r.Respond(ctx, nil, TriggerResult{}, 5, NewStream(DeriveTurnSeed(42, 5)))
		b := r.Respond(ctx, nil, TriggerResult{}, 5, NewStream(DeriveTurnSeed(42, 5)))
		assert.Equal(t, a, b)
	})

	t.Run("early turns ask clarifying questions", func(t *testing.T) {
		for turn := 1; turn <= 2; turn++ {
			reply := r.Respond(ctx, nil, TriggerResult{}, turn, NewStream(int64(turn)))
			assert.Contains(t, clarifyingQuestions, reply)
		}
	})

	t.Run("later turns object or engage", func(t *testing.T) {
		pool := append(append([]string{}, objectionUtterances...), engagementUtterances...)
		for seed := int64(0); seed < 20; seed++ {
			reply := r.Respond(ctx, nil, TriggerResult{}, 5, NewStream(seed))
			assert.Contains(t, pool, reply)
		}
	})
}

func TestResponderViolationFallbacks(t *testing.T) {
	ctx := context.Background()
	r := NewResponder(testPersona(), nil)

	tests := map[string]struct {
		trig TriggerResult
		pool []string
	}{
		"BLOCK severity ends the conversation": {
			trig: TriggerResult{
				Triggered: true,
				Trigger:   &persona.FailureTrigger{Type: persona.TriggerComplianceViolation, Severity: persona.SeverityBlock},
				Outcome:   OutcomeBlock,
			},
			pool: blockFallbacks,
		},
		"FAIL severity warns but continues": {
			trig: TriggerResult{
				Triggered: true,
				Trigger:   &persona.FailureTrigger{Type: persona.TriggerPriceMentionEarly, Severity: persona.SeverityFail},
				Outcome:   OutcomeFail,
			},
			pool: failFallbacks,
		},
		"unknown trigger type still falls back": {
			trig: TriggerResult{
				Triggered: true,
				Trigger:   &persona.FailureTrigger{Type: "custom_thing", Severity: persona.SeverityFail},
				Outcome:   OutcomeFail,
			},
			pool: failFallbacks,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			reply := r.Respond(ctx, nil, tc.trig, 3, NewStream(11))
			assert.Contains(t, tc.pool, reply)
		})
	}
}

func TestResponderDelegation(t *testing.T) {
	ctx := context.Background()

	t.Run("model reply is used verbatim, trimmed", func(t *testing.T) {
		model := &stubModel{reply: "  That works for me.  "}
		r := NewResponder(testPersona(), model)

		reply := r.Respond(ctx, nil, TriggerResult{}, 5, NewStream(1))
		assert.Equal(t, "That works for me.", reply)
	})

	t.Run("model failure falls back deterministically", func(t *testing.T) {
		model := &stubModel{err: fmt.Errorf("connection refused")}
		r := NewResponder(testPersona(), model)

		reply := r.Respond(ctx, nil, TriggerResult{}, 1, NewStream(1))
		assert.Contains(t, clarifyingQuestions, reply)
	})

	t.Run("empty model reply falls back", func(t *testing.T) {
		model := &stubModel{reply: "   "}
		r := NewResponder(testPersona(), model)

		reply := r.Respond(ctx, nil, TriggerResult{}, 1, NewStream(1))
		assert.Contains(t, clarifyingQuestions, reply)
	})

	t.Run("prompt carries directive, hidden state and transcript", func(t *testing.T) {
		model := &stubModel{reply: "Noted."}
		r := NewResponder(testPersona(), model)

		conversation := []Turn{
			{Speaker: SpeakerBuyer, Content: "Hi, tell me about your product."},
			{Speaker: SpeakerAgent, Content: "Happy to, what challenges are you facing?"},
		}
		r.Respond(ctx, conversation, TriggerResult{}, 3, NewStream(1))

		require.Len(t, model.prompts, 1)
		prompt := model.prompts[0]
		assert.Contains(t, prompt, "up to $40k annually")
		assert.Contains(t, prompt, "Sales rep: Happy to, what challenges are you facing?")
		assert.Contains(t, prompt, "You: Hi, tell me about your product.")
	})
}

func TestResponderOpening(t *testing.T) {
	r := NewResponder(testPersona(), nil)

	assert.Equal(t, openingMessages["pricing-inquiry"], r.Opening("pricing-inquiry"))
	assert.Equal(t, defaultOpening, r.Opening("no-such-intent"))
}

func TestResponderAdversarial(t *testing.T) {
	r := NewResponder(testPersona(), nil)

	t.Run("known intent before escalation", func(t *testing.T) {
		msg := r.Adversarial("compliance-violation", 2)
		assert.Equal(t, adversarialOpenings["compliance-violation"], msg)
	})

	t.Run("known intent escalates after the escalation turn", func(t *testing.T) {
		msg := r.Adversarial("compliance-violation", escalationTurn+1)
		assert.Equal(t, adversarialEscalations["compliance-violation"], msg)
	})

	t.Run("unknown intent uses defaults", func(t *testing.T) {
		assert.Equal(t, defaultAdversarialOpening, r.Adversarial("no-such-intent", 1))
		assert.Equal(t, defaultAdversarialEscalation, r.Adversarial("no-such-intent", escalationTurn+1))
	})
}
