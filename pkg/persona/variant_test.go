package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantValidate(t *testing.T) {
	tests := map[string]struct {
		variant     Variant
		expectErr   bool
		errContains string
	}{
		"valid":              {variant: Variant{Name: "hostile", Difficulty: 0.5}},
		"boundary -1":        {variant: Variant{Name: "gentle", Difficulty: -1}},
		"boundary +1":        {variant: Variant{Name: "brutal", Difficulty: 1}},
		"missing name":       {variant: Variant{Difficulty: 0.5}, expectErr: true, errContains: "name must be set"},
		"difficulty too big": {variant: Variant{Name: "x", Difficulty: 1.5}, expectErr: true, errContains: "must be in [-1, 1]"},
		"bad trigger": {
			variant:     Variant{Name: "x", Triggers: []FailureTrigger{{Type: "t", Severity: "MAYBE"}}},
			expectErr:   true,
			errContains: "severity must be FAIL or BLOCK",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := tc.variant.Validate()
			if tc.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errContains)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestVariantApply(t *testing.T) {
	base := Persona{
		Name:          "CFO",
		Category:      CategoryBudgetHolder,
		ObjectionTier: TierNormal,
		HiddenStates: []HiddenState{
			{Key: "budget", Value: "$40k"},
			{Key: "pain", Value: "manual reporting"},
		},
		Triggers: []FailureTrigger{
			{Type: TriggerPriceMentionEarly, Severity: SeverityFail},
		},
	}

	v := Variant{
		Name:       "hostile",
		Difficulty: 0.3,
		HiddenStates: []HiddenState{
			{Key: "budget", Value: "$10k"},
			{Key: "deadline", Value: "end of quarter"},
		},
		Triggers: []FailureTrigger{
			{Type: TriggerPriceMentionEarly, Severity: SeverityBlock},
			{Type: TriggerPressureTactics, Severity: SeverityBlock},
		},
	}

	derived := v.Apply(base)

	// Hidden states replaced by key, new keys appended.
	budget, ok := derived.HiddenState("budget")
	require.True(t, ok)
	assert.Equal(t, "$10k", budget.Value)
	pain, ok := derived.HiddenState("pain")
	require.True(t, ok)
	assert.Equal(t, "manual reporting", pain.Value)
	_, ok = derived.HiddenState("deadline")
	assert.True(t, ok)

	// Triggers replaced by type, new types appended.
	require.Len(t, derived.Triggers, 2)
	assert.Equal(t, SeverityBlock, derived.Triggers[0].Severity)
	assert.Equal(t, TriggerPressureTactics, derived.Triggers[1].Type)

	// Difficulty 0.3 moves the tier one step up.
	assert.Equal(t, TierHigh, derived.ObjectionTier)

	// The base persona is untouched.
	baseBudget, _ := base.HiddenState("budget")
	assert.Equal(t, "$40k", baseBudget.Value)
	assert.Equal(t, SeverityFail, base.Triggers[0].Severity)
	assert.Equal(t, TierNormal, base.ObjectionTier)
	assert.Len(t, base.HiddenStates, 2)
}

func TestShiftTier(t *testing.T) {
	tests := map[string]struct {
		tier       ObjectionTier
		difficulty float64
		want       ObjectionTier
	}{
		"zero difficulty is a no-op":      {TierNormal, 0, TierNormal},
		"small positive moves one up":     {TierNormal, 0.3, TierHigh},
		"large positive moves two up":     {TierLow, 0.5, TierHigh},
		"small negative moves one down":   {TierHigh, -0.3, TierNormal},
		"large negative moves two down":   {TierVeryHigh, -0.8, TierNormal},
		"clamped at the top":              {TierHigh, 1, TierVeryHigh},
		"clamped at the bottom":           {TierLow, -1, TierLow},
		"already at the top stays there":  {TierVeryHigh, 0.9, TierVeryHigh},
		"already at the bottom stays put": {TierLow, -0.1, TierLow},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, shiftTier(tc.tier, tc.difficulty))
		})
	}
}
