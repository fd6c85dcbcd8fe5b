package sim

import (
	"regexp"
	"strings"

	"github.com/dealprobe/dealprobe/pkg/persona"
)

// TriggerContext carries the hidden-state and conversation context the
// classifier needs beyond the message itself. The classifier never
// fact-checks; known factual errors are supplied externally.
type TriggerContext struct {
	TurnNumber            int
	CompetitorMentioned   bool
	PrevTurnRaisedConcern bool
	ConcernAddressed      bool
	KnownFactualErrors    []string
}

// TriggerResult reports at most one triggered violation.
type TriggerResult struct {
	Triggered bool
	Trigger   *persona.FailureTrigger
	Outcome   Outcome
}

// triggerPredicate decides whether one trigger fires for a message.
type triggerPredicate func(message string, trig persona.FailureTrigger, tctx TriggerContext) bool

// triggerPredicates maps trigger types to their dedicated predicates.
// Types without an entry fall back to the configured pattern; a type
// with neither predicate nor pattern never triggers.
var triggerPredicates = map[string]triggerPredicate{
	persona.TriggerPriceMentionEarly:   priceMentionEarly,
	persona.TriggerCoerciveClosing:     coerciveClosing,
	persona.TriggerCompetitorBashing:   competitorDisparagement,
	persona.TriggerJargonOverload:      jargonOverload,
	persona.TriggerIgnoredObjection:    ignoredObjection,
	persona.TriggerPressureTactics:     pressureTactics,
	persona.TriggerComplianceViolation: complianceViolation,
	persona.TriggerFactualError:        factualError,
}

// CheckTriggers evaluates triggers in configured order and returns on
// the first match: earlier entries shadow later ones. The classifier is
// pure over its inputs.
func CheckTriggers(message string, triggers []persona.FailureTrigger, tctx TriggerContext) TriggerResult {
	for i := range triggers {
		trig := triggers[i]

		pred, ok := triggerPredicates[trig.Type]
		if !ok {
			pred = customPattern
		}

		if pred(message, trig, tctx) {
			return TriggerResult{
				Triggered: true,
				Trigger:   &triggers[i],
				Outcome:   outcomeForSeverity(trig.Severity),
			}
		}
	}

	return TriggerResult{}
}

func outcomeForSeverity(sev persona.Severity) Outcome {
	if sev == persona.SeverityBlock {
		return OutcomeBlock
	}
	return OutcomeFail
}

var priceMarkers = []string{
	"$", "price", "pricing", "cost", "budget", "per month", "per seat",
	"discount", "quote",
}

// maxEarlyPriceTurn is the first agent turn on which monetary language
// is acceptable.
const maxEarlyPriceTurn = 3

func priceMentionEarly(message string, _ persona.FailureTrigger, tctx TriggerContext) bool {
	return tctx.TurnNumber < maxEarlyPriceTurn && containsAny(message, priceMarkers)
}

var coerciveClosingMarkers = []string{
	"sign today", "offer expires", "last chance", "act now",
	"limited time", "today only", "now or never", "before it's gone",
}

func coerciveClosing(message string, _ persona.FailureTrigger, _ TriggerContext) bool {
	return containsAny(message, coerciveClosingMarkers)
}

var disparagementMarkers = []string{
	"inferior", "terrible", "outdated", "they can't", "worse than us",
	"don't trust them", "their product is a mess", "falling apart",
}

func competitorDisparagement(message string, _ persona.FailureTrigger, tctx TriggerContext) bool {
	return tctx.CompetitorMentioned && containsAny(message, disparagementMarkers)
}

var jargonTokens = []string{
	"synergy", "synergies", "leverage", "paradigm", "disrupt",
	"scalable", "holistic", "seamless", "best-of-breed", "turnkey",
	"cutting-edge", "frictionless", "next-generation", "ecosystem",
	"hyperautomation",
}

const jargonThreshold = 5

func jargonOverload(message string, _ persona.FailureTrigger, _ TriggerContext) bool {
	lower := strings.ToLower(message)
	count := 0
	for _, token := range jargonTokens {
		count += strings.Count(lower, token)
	}
	return count > jargonThreshold
}

func ignoredObjection(_ string, _ persona.FailureTrigger, tctx TriggerContext) bool {
	return tctx.PrevTurnRaisedConcern && !tctx.ConcernAddressed
}

var pressureMarkers = []string{
	"everyone is buying", "you'd be crazy", "can't afford not to",
	"you'll miss out", "your competitors already", "don't be left behind",
}

func pressureTactics(message string, _ persona.FailureTrigger, _ TriggerContext) bool {
	return containsAny(message, pressureMarkers)
}

var complianceMarkers = []string{
	"guaranteed returns", "guarantee you", "no risk at all",
	"bypass", "off the record", "between us", "skip the approval",
	"don't tell", "off the books",
}

func complianceViolation(message string, _ persona.FailureTrigger, _ TriggerContext) bool {
	return containsAny(message, complianceMarkers)
}

func factualError(message string, _ persona.FailureTrigger, tctx TriggerContext) bool {
	return containsAny(message, tctx.KnownFactualErrors)
}

// customPattern matches the configured pattern case-insensitively. It
// tries the pattern as a regular expression first and falls back to a
// substring match if it does not compile.
func customPattern(message string, trig persona.FailureTrigger, _ TriggerContext) bool {
	if trig.Pattern == "" {
		return false
	}

	if re, err := regexp.Compile("(?i)" + trig.Pattern); err == nil {
		return re.MatchString(message)
	}

	return strings.Contains(strings.ToLower(message), strings.ToLower(trig.Pattern))
}

func containsAny(message string, markers []string) bool {
	lower := strings.ToLower(message)
	for _, m := range markers {
		if m == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
