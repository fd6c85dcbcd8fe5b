// Package scenario defines conversation blueprints for simulation runs.
package scenario

import (
	"errors"
	"fmt"
)

// PathType selects the terminal logic of a run.
type PathType string

const (
	// PathGolden is a cooperative scenario where the agent under test
	// is expected to advance the sale.
	PathGolden PathType = "GOLDEN"
	// PathKill is an adversarial scenario where the agent under test is
	// expected to refuse or escalate.
	PathKill PathType = "KILL"
)

// Default resource tolerances applied at construction when a scenario
// leaves them unset.
const (
	DefaultMaxTurns     = 10
	DefaultMaxLatencyMs = 5000
	DefaultMaxCostUSD   = 0.10
)

// Tolerances are the per-run resource ceilings. Exceeding any of them
// is an expected, deterministic FAIL, not an error.
type Tolerances struct {
	MaxTurns     int     `json:"maxTurns,omitempty"`
	MaxLatencyMs int64   `json:"maxLatencyMs,omitempty"`
	MaxCostUSD   float64 `json:"maxCostUsd,omitempty"`
}

func (t *Tolerances) applyDefaults() {
	if t.MaxTurns <= 0 {
		t.MaxTurns = DefaultMaxTurns
	}
	if t.MaxLatencyMs <= 0 {
		t.MaxLatencyMs = DefaultMaxLatencyMs
	}
	if t.MaxCostUSD <= 0 {
		t.MaxCostUSD = DefaultMaxCostUSD
	}
}

// Scenario is the blueprint for a single conversation run.
type Scenario struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Path PathType `json:"path"`

	// EntryIntent seeds the buyer's opening message, e.g.
	// "pricing-inquiry" or "compliance-violation".
	EntryIntent string `json:"entryIntent"`

	Vertical    string `json:"vertical,omitempty"`
	SubVertical string `json:"subVertical,omitempty"`
	Region      string `json:"region,omitempty"`

	// SuccessCondition names the rule evaluated when a GOLDEN run ends
	// without an early terminal condition.
	SuccessCondition string `json:"successCondition,omitempty"`

	// PersonaVariant names a variant the matched persona must declare;
	// the run then executes against the variant-adjusted persona.
	PersonaVariant string `json:"personaVariant,omitempty"`

	Tolerances Tolerances `json:"tolerances,omitempty"`
}

// Validate checks required fields and applies tolerance defaults once,
// at construction time.
func (s *Scenario) Validate() error {
	var err error

	if s.Name == "" {
		err = errors.Join(err, fmt.Errorf("scenario name must be set"))
	}
	switch s.Path {
	case PathGolden, PathKill:
	default:
		err = errors.Join(err, fmt.Errorf("scenario path must be GOLDEN or KILL, got '%s'", s.Path))
	}
	if s.EntryIntent == "" {
		err = errors.Join(err, fmt.Errorf("scenario entryIntent must be set"))
	}

	s.Tolerances.applyDefaults()

	return err
}
