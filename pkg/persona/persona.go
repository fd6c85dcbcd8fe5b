package persona

import (
	"errors"
	"fmt"
)

// Category classifies the role a simulated buyer plays in the deal.
type Category string

const (
	CategoryBudgetHolder       Category = "budget-holder"
	CategoryTechnicalValidator Category = "technical-validator"
	CategoryProcessGatekeeper  Category = "process-gatekeeper"
	CategoryInternalChampion   Category = "internal-champion"
	CategoryAdversarialBlocker Category = "adversarial-blocker"
	CategorySkeptic            Category = "skeptic"
	CategoryInfoGatherer       Category = "information-gatherer"
	CategoryFinalAuthority     Category = "final-authority"
)

var validCategories = map[Category]bool{
	CategoryBudgetHolder:       true,
	CategoryTechnicalValidator: true,
	CategoryProcessGatekeeper:  true,
	CategoryInternalChampion:   true,
	CategoryAdversarialBlocker: true,
	CategorySkeptic:            true,
	CategoryInfoGatherer:       true,
	CategoryFinalAuthority:     true,
}

// ObjectionTier controls how often the buyer pushes back during a
// conversation. Each tier maps to a fixed probability compared against
// the turn's pseudo-random draw.
type ObjectionTier string

const (
	TierLow      ObjectionTier = "low"
	TierNormal   ObjectionTier = "normal"
	TierHigh     ObjectionTier = "high"
	TierVeryHigh ObjectionTier = "very-high"
)

// tierOrder is the escalation ladder used by variant difficulty shifts.
var tierOrder = []ObjectionTier{TierLow, TierNormal, TierHigh, TierVeryHigh}

var tierProbabilities = map[ObjectionTier]float64{
	TierLow:      0.10,
	TierNormal:   0.25,
	TierHigh:     0.50,
	TierVeryHigh: 0.75,
}

// Probability returns the per-turn objection probability for the tier.
func (t ObjectionTier) Probability() float64 {
	return tierProbabilities[t]
}

func (t ObjectionTier) valid() bool {
	_, ok := tierProbabilities[t]
	return ok
}

// Verbosity controls how long the buyer's replies run.
type Verbosity string

const (
	VerbosityTerse   Verbosity = "terse"
	VerbosityNormal  Verbosity = "normal"
	VerbosityVerbose Verbosity = "verbose"
)

// Severity is the outcome a failure trigger forces when it fires.
// A trigger can only demand FAIL or BLOCK, never PASS.
type Severity string

const (
	SeverityFail  Severity = "FAIL"
	SeverityBlock Severity = "BLOCK"
)

// Violation categories recognized by the trigger classifier.
const (
	TriggerPriceMentionEarly   = "price_mention_early"
	TriggerCoerciveClosing     = "coercive_closing"
	TriggerCompetitorBashing   = "competitor_disparagement"
	TriggerJargonOverload      = "jargon_overload"
	TriggerIgnoredObjection    = "ignored_objection"
	TriggerPressureTactics     = "pressure_tactics"
	TriggerComplianceViolation = "compliance_violation"
	TriggerFactualError        = "factual_error"
)

// HiddenState is a typed fact known to the harness and the buyer but
// withheld from the agent under test.
type HiddenState struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// FailureTrigger forces an early FAIL or BLOCK when its condition is
// detected in the agent's message. Pattern is only consulted for
// trigger types without a dedicated predicate.
type FailureTrigger struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Pattern  string   `json:"pattern,omitempty"`
}

func (t *FailureTrigger) Validate() error {
	var err error
	if t.Type == "" {
		err = errors.Join(err, fmt.Errorf("trigger type must be set"))
	}
	switch t.Severity {
	case SeverityFail, SeverityBlock:
	default:
		err = errors.Join(err, fmt.Errorf("trigger severity must be FAIL or BLOCK, got '%s'", t.Severity))
	}
	return err
}

// Persona is a simulated buyer configuration. It is immutable once
// loaded; variant application produces a derived copy.
type Persona struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Description string   `json:"description,omitempty"`

	Vertical    string `json:"vertical,omitempty"`
	SubVertical string `json:"subVertical,omitempty"`

	HiddenStates []HiddenState    `json:"hiddenStates,omitempty"`
	Triggers     []FailureTrigger `json:"triggers,omitempty"`

	Verbosity     Verbosity     `json:"verbosity,omitempty"`
	ObjectionTier ObjectionTier `json:"objectionTier,omitempty"`

	// SystemDirective is the system prompt used when buyer replies are
	// delegated to a language model.
	SystemDirective string `json:"systemDirective,omitempty"`
}

// Validate checks required fields and defaults the optional behavioral
// parameters. Configuration errors surface here, before any run starts.
func (p *Persona) Validate() error {
	var err error

	if p.Name == "" {
		err = errors.Join(err, fmt.Errorf("persona name must be set"))
	}
	if !validCategories[p.Category] {
		err = errors.Join(err, fmt.Errorf("invalid persona category: '%s'", p.Category))
	}

	if p.ObjectionTier == "" {
		p.ObjectionTier = TierNormal
	} else if !p.ObjectionTier.valid() {
		err = errors.Join(err, fmt.Errorf("invalid objection tier: '%s'", p.ObjectionTier))
	}

	if p.Verbosity == "" {
		p.Verbosity = VerbosityNormal
	}

	for i := range p.Triggers {
		if terr := p.Triggers[i].Validate(); terr != nil {
			err = errors.Join(err, fmt.Errorf("trigger %d: %w", i, terr))
		}
	}

	return err
}

// HiddenState returns the hidden state entry for key, if present.
func (p *Persona) HiddenState(key string) (HiddenState, bool) {
	for _, hs := range p.HiddenStates {
		if hs.Key == key {
			return hs, true
		}
	}
	return HiddenState{}, false
}
