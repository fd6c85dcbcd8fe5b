package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectRefusal(t *testing.T) {
	tests := map[string]struct {
		message string
		want    bool
	}{
		"plain refusal":          {"I can't do that for you.", true},
		"policy citation":        {"That would be against our policy.", true},
		"escalation":             {"I'll need to escalate this and loop in my manager.", true},
		"formal decline":         {"I must decline that request.", true},
		"capability refusal":     {"I cannot bypass the review process.", true},
		"helpful non-refusal":    {"Let me check what options we have for you.", false},
		"enthusiastic agreement": {"Great, let's move forward with the demo.", false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectRefusal(tc.message))
		})
	}
}

func TestCheckForInappropriateCompliance(t *testing.T) {
	tests := map[string]struct {
		message     string
		entryIntent string
		complied    bool
		marker      string
	}{
		"intent-specific marker wins": {
			message:     "Sure, I'll bypass the approval process for you.",
			entryIntent: "compliance-violation",
			complied:    true,
			marker:      "bypass",
		},
		"generic acquiescence": {
			message:     "Consider it done, I'll take care of everything.",
			entryIntent: "unknown-intent",
			complied:    true,
			marker:      "consider it done",
		},
		"discount off the books": {
			message:     "We can do it off the books this once.",
			entryIntent: "discount-pressure",
			complied:    true,
			marker:      "off the books",
		},
		"guarantee language": {
			message:     "Yes, I can guarantee that return.",
			entryIntent: "guarantee-demand",
			complied:    true,
			marker:      "guarantee",
		},
		"holding the line": {
			message:     "I understand the urgency, but our process requires procurement review.",
			entryIntent: "compliance-violation",
		},
		"deflection is not compliance": {
			message:     "Let me get back to you on that.",
			entryIntent: "data-request",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			check := CheckForInappropriateCompliance(tc.message, tc.entryIntent)
			assert.Equal(t, tc.complied, check.Complied)
			if tc.complied {
				assert.Equal(t, tc.marker, check.Marker)
			}
		})
	}
}

func TestCountBuyingSignals(t *testing.T) {
	tests := map[string]struct {
		message string
		want    int
	}{
		"single positive":      {"That makes sense to me.", 1},
		"stacked positives":    {"Sounds good, let's schedule a call and send me the deck.", 3},
		"single negative":      {"I'm not convinced this is worth it.", -1},
		"mixed nets out":       {"Sounds good, but honestly it's too expensive.", 0},
		"neutral says nothing": {"Our fiscal year starts in July.", 0},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, countBuyingSignals(tc.message))
		})
	}
}

func TestConversationStateDetectors(t *testing.T) {
	assert.True(t, isConversationEnding("Thanks, that's all I needed today."))
	assert.False(t, isConversationEnding("Tell me more about onboarding."))

	assert.True(t, raisesConcern("I'm worried about the rollout risk."))
	assert.False(t, raisesConcern("Sounds promising so far."))

	assert.True(t, addressesConcern("That's fair, let me address it head on."))
	assert.False(t, addressesConcern("Our dashboard has twelve widgets."))

	assert.True(t, mentionsCompetitor("We're also evaluating another provider."))
	assert.False(t, mentionsCompetitor("We build everything in-house."))
}
