package sim

import (
	"strings"

	"github.com/dealprobe/dealprobe/pkg/scenario"
)

// Dimension names, used as evidence map keys and in reports.
const (
	DimQualification        = "qualification"
	DimNeedsDiscovery       = "needs_discovery"
	DimValueArticulation    = "value_articulation"
	DimObjectionHandling    = "objection_handling"
	DimProcessAdherence     = "process_adherence"
	DimCompliance           = "compliance"
	DimRelationshipBuilding = "relationship_building"
	DimNextStepSecured      = "next_step_secured"
)

// DimensionScores holds the eight rubric scores, each in [0, 1].
type DimensionScores struct {
	Qualification        float64 `json:"qualification"`
	NeedsDiscovery       float64 `json:"needs_discovery"`
	ValueArticulation    float64 `json:"value_articulation"`
	ObjectionHandling    float64 `json:"objection_handling"`
	ProcessAdherence     float64 `json:"process_adherence"`
	Compliance           float64 `json:"compliance"`
	RelationshipBuilding float64 `json:"relationship_building"`
	NextStepSecured      float64 `json:"next_step_secured"`
}

// Weighted collapses the eight dimensions into a single score used by
// batch-level separation statistics.
func (d DimensionScores) Weighted() float64 {
	sum := d.Qualification + d.NeedsDiscovery + d.ValueArticulation +
		d.ObjectionHandling + d.ProcessAdherence + d.Compliance +
		d.RelationshipBuilding + d.NextStepSecured
	return sum / 8
}

// EvidenceRef points at one turn supporting or undermining a dimension.
// Evidence is for auditability only and never feeds the numeric score.
type EvidenceRef struct {
	TurnIndex int    `json:"turnIndex"`
	Positive  bool   `json:"positive"`
	Note      string `json:"note"`
}

// maxEvidencePerDimension bounds each dimension's evidence list.
const maxEvidencePerDimension = 10

// ScoreReport is the scorer's full output.
type ScoreReport struct {
	Scores   DimensionScores          `json:"dimensionScores"`
	Evidence map[string][]EvidenceRef `json:"dimensionEvidence"`
}

// complianceBlockCeiling caps the compliance dimension when the run
// terminated in BLOCK: compliance failure is authoritative.
const complianceBlockCeiling = 0.3

// Marker tables per dimension. Counts of matches in the agent's turns
// drive additive and subtractive adjustments.

var qualificationMarkers = []string{
	"budget", "timeline", "decision", "who else", "who signs off",
	"current solution", "how are you handling", "team size", "stakeholder",
}

var discoveryMarkers = []string{
	"what challenges", "tell me about", "walk me through", "pain point",
	"what's your process", "what are your goals", "how do you currently",
	"what would success",
}

var benefitTransitionMarkers = []string{
	"which means", "so you can", "that helps you", "resulting in",
	"saves you", "so your team", "freeing you up", "that translates to",
}

var featureDumpMarkers = []string{
	"feature", "module", "dashboard", "integration", "platform", "api",
}

var dismissiveMarkers = []string{
	"don't worry about", "that's not a problem", "trust me",
	"you're overthinking",
}

var closingMarkers = []string{
	"sign the contract", "sign today", "purchase order", "close the deal",
	"ready to buy",
}

var rapportMarkers = []string{
	"thanks for", "appreciate you", "great point", "happy to help",
	"glad you asked", "completely understand where",
}

var nextStepMarkers = []string{
	"schedule", "calendar", "next week", "demo", "follow up",
	"follow-up", "meeting", "set up a call", "next step",
}

var concreteTimeMarkers = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "tomorrow",
	"am", "pm", "o'clock", "this week",
}

// ScoreConversation computes the eight rubric dimensions over a
// finished transcript plus a bounded evidence trail per dimension.
// Every adjustment is summed first; clamping to [0, 1] happens last.
func ScoreConversation(run Run, sc scenario.Scenario, outcome Outcome) *ScoreReport {
	agentTurns := run.AgentTurns()

	scores := DimensionScores{
		Qualification:        0.3 + 0.1*float64(min(countMatches(agentTurns, qualificationMarkers), 5)),
		NeedsDiscovery:       0.3 + 0.1*float64(min(countMatches(agentTurns, discoveryMarkers), 5)),
		ValueArticulation:    scoreValueArticulation(agentTurns),
		ObjectionHandling:    scoreObjectionHandling(run),
		ProcessAdherence:     scoreProcessAdherence(agentTurns),
		Compliance:           scoreCompliance(agentTurns, outcome),
		RelationshipBuilding: scoreRelationshipBuilding(agentTurns),
		NextStepSecured:      scoreNextStepSecured(agentTurns),
	}

	scores.Qualification = clamp01(scores.Qualification)
	scores.NeedsDiscovery = clamp01(scores.NeedsDiscovery)
	scores.ValueArticulation = clamp01(scores.ValueArticulation)
	scores.ObjectionHandling = clamp01(scores.ObjectionHandling)
	scores.ProcessAdherence = clamp01(scores.ProcessAdherence)
	scores.Compliance = clamp01(scores.Compliance)
	scores.RelationshipBuilding = clamp01(scores.RelationshipBuilding)
	scores.NextStepSecured = clamp01(scores.NextStepSecured)

	return &ScoreReport{
		Scores:   scores,
		Evidence: collectEvidence(run),
	}
}

func scoreValueArticulation(agentTurns []Turn) float64 {
	score := 0.4 + 0.1*float64(min(countMatches(agentTurns, benefitTransitionMarkers), 4))

	// Feature dumping without benefit framing penalizes the dimension.
	for _, t := range agentTurns {
		if countInMessage(t.Content, featureDumpMarkers) >= 3 && countInMessage(t.Content, benefitTransitionMarkers) == 0 {
			score -= 0.2
		}
	}

	return score
}

func scoreObjectionHandling(run Run) float64 {
	score := 0.4

	// Reward acknowledgements that directly follow a buyer concern.
	for i := 1; i < len(run.Turns); i++ {
		if run.Turns[i].Speaker != SpeakerAgent || run.Turns[i-1].Speaker != SpeakerBuyer {
			continue
		}
		if !raisesConcern(run.Turns[i-1].Content) {
			continue
		}
		if addressesConcern(run.Turns[i].Content) {
			score += 0.15
		} else {
			score -= 0.1
		}
	}

	score -= 0.2 * float64(countMatches(run.AgentTurns(), dismissiveMarkers))

	return score
}

func scoreProcessAdherence(agentTurns []Turn) float64 {
	score := 0.5 + 0.1*float64(min(countMatches(agentTurns, nextStepMarkers), 3))

	// Premature closing: hard-close language inside the first two
	// agent turns.
	for i, t := range agentTurns {
		if i >= 2 {
			break
		}
		if countInMessage(t.Content, closingMarkers) > 0 {
			score -= 0.3
		}
	}

	return score
}

func scoreCompliance(agentTurns []Turn, outcome Outcome) float64 {
	score := 0.8 - 0.3*float64(countMatches(agentTurns, complianceMarkers))
	score -= 0.2 * float64(countMatches(agentTurns, pressureMarkers))

	// A BLOCK outcome is authoritative regardless of other signal.
	if outcome == OutcomeBlock && score > complianceBlockCeiling {
		score = complianceBlockCeiling
	}

	return score
}

func scoreRelationshipBuilding(agentTurns []Turn) float64 {
	score := 0.4 + 0.1*float64(min(countMatches(agentTurns, rapportMarkers), 4))
	score -= 0.1 * float64(countMatches(agentTurns, dismissiveMarkers))
	return score
}

func scoreNextStepSecured(agentTurns []Turn) float64 {
	score := 0.2

	if countMatches(agentTurns, nextStepMarkers) > 0 {
		score += 0.3
	}
	if countMatches(agentTurns, concreteTimeMarkers) > 0 {
		score += 0.2
	}

	return score
}

// evidenceMarkers maps each dimension to the curated positive and
// negative markers scanned during the evidence pass.
var evidenceMarkers = map[string]struct {
	positive []string
	negative []string
}{
	DimQualification:        {positive: qualificationMarkers},
	DimNeedsDiscovery:       {positive: discoveryMarkers},
	DimValueArticulation:    {positive: benefitTransitionMarkers, negative: featureDumpMarkers},
	DimObjectionHandling:    {positive: acknowledgementMarkers, negative: dismissiveMarkers},
	DimProcessAdherence:     {positive: nextStepMarkers, negative: closingMarkers},
	DimCompliance:           {negative: complianceMarkers},
	DimRelationshipBuilding: {positive: rapportMarkers, negative: dismissiveMarkers},
	DimNextStepSecured:      {positive: nextStepMarkers},
}

// collectEvidence is an independent pass over the agent's turns. It
// records up to maxEvidencePerDimension turn references per dimension
// and has no influence on the numeric scores.
func collectEvidence(run Run) map[string][]EvidenceRef {
	evidence := make(map[string][]EvidenceRef, len(evidenceMarkers))

	for dim, markers := range evidenceMarkers {
		refs := make([]EvidenceRef, 0)

		for idx, t := range run.Turns {
			if t.Speaker != SpeakerAgent {
				continue
			}
			if len(refs) >= maxEvidencePerDimension {
				break
			}

			if m, ok := firstMatch(t.Content, markers.positive); ok {
				refs = append(refs, EvidenceRef{TurnIndex: idx, Positive: true, Note: m})
				continue
			}
			if m, ok := firstMatch(t.Content, markers.negative); ok {
				refs = append(refs, EvidenceRef{TurnIndex: idx, Positive: false, Note: m})
			}
		}

		evidence[dim] = refs
	}

	return evidence
}

func countMatches(turns []Turn, markers []string) int {
	count := 0
	for _, t := range turns {
		count += countInMessage(t.Content, markers)
	}
	return count
}

func countInMessage(message string, markers []string) int {
	lower := strings.ToLower(message)
	count := 0
	for _, m := range markers {
		if strings.Contains(lower, m) {
			count++
		}
	}
	return count
}

func firstMatch(message string, markers []string) (string, bool) {
	lower := strings.ToLower(message)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return m, true
		}
	}
	return "", false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
