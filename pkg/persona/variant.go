package persona

import (
	"errors"
	"fmt"
)

// Variant is a named set of overrides applied to a base persona:
// replacements for specific hidden states or triggers, plus a bounded
// difficulty modifier that shifts the objection tier.
type Variant struct {
	Name         string           `json:"name"`
	HiddenStates []HiddenState    `json:"hiddenStates,omitempty"`
	Triggers     []FailureTrigger `json:"triggers,omitempty"`

	// Difficulty must lie in [-1, +1]. Positive values harden the
	// persona, negative values soften it.
	Difficulty float64 `json:"difficulty,omitempty"`
}

func (v *Variant) Validate() error {
	var err error
	if v.Name == "" {
		err = errors.Join(err, fmt.Errorf("variant name must be set"))
	}
	if v.Difficulty < -1 || v.Difficulty > 1 {
		err = errors.Join(err, fmt.Errorf("variant difficulty must be in [-1, 1], got %v", v.Difficulty))
	}
	for i := range v.Triggers {
		if terr := v.Triggers[i].Validate(); terr != nil {
			err = errors.Join(err, fmt.Errorf("trigger %d: %w", i, terr))
		}
	}
	return err
}

// Apply produces the effective persona for this variant. The base
// persona is never mutated: hidden states are replaced by key, triggers
// by type, and the objection tier is shifted by the difficulty step.
func (v *Variant) Apply(base Persona) Persona {
	derived := base
	derived.HiddenStates = replaceHiddenStates(base.HiddenStates, v.HiddenStates)
	derived.Triggers = replaceTriggers(base.Triggers, v.Triggers)
	derived.ObjectionTier = shiftTier(base.ObjectionTier, v.Difficulty)
	return derived
}

func replaceHiddenStates(base, overrides []HiddenState) []HiddenState {
	out := make([]HiddenState, len(base))
	copy(out, base)
	for _, ov := range overrides {
		replaced := false
		for i := range out {
			if out[i].Key == ov.Key {
				out[i] = ov
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, ov)
		}
	}
	return out
}

func replaceTriggers(base, overrides []FailureTrigger) []FailureTrigger {
	out := make([]FailureTrigger, len(base))
	copy(out, base)
	for _, ov := range overrides {
		replaced := false
		for i := range out {
			if out[i].Type == ov.Type {
				out[i] = ov
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, ov)
		}
	}
	return out
}

// shiftTier moves the objection tier along the escalation ladder by a
// deterministic step: |difficulty| >= 0.5 moves two tiers, anything
// non-zero moves one, clamped at the ends.
func shiftTier(tier ObjectionTier, difficulty float64) ObjectionTier {
	if difficulty == 0 {
		return tier
	}

	step := 1
	if difficulty >= 0.5 || difficulty <= -0.5 {
		step = 2
	}
	if difficulty < 0 {
		step = -step
	}

	idx := 0
	for i, t := range tierOrder {
		if t == tier {
			idx = i
			break
		}
	}

	idx += step
	if idx < 0 {
		idx = 0
	}
	if idx >= len(tierOrder) {
		idx = len(tierOrder) - 1
	}
	return tierOrder[idx]
}
