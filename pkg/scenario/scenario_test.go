package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioValidate(t *testing.T) {
	tests := map[string]struct {
		scenario    Scenario
		expectErr   bool
		errContains string
		validate    func(t *testing.T, s *Scenario)
	}{
		"valid scenario gets default tolerances": {
			scenario: Scenario{Name: "s1", Path: PathGolden, EntryIntent: "pricing-inquiry"},
			validate: func(t *testing.T, s *Scenario) {
				assert.Equal(t, DefaultMaxTurns, s.Tolerances.MaxTurns)
				assert.Equal(t, int64(DefaultMaxLatencyMs), s.Tolerances.MaxLatencyMs)
				assert.InDelta(t, DefaultMaxCostUSD, s.Tolerances.MaxCostUSD, 1e-9)
			},
		},
		"explicit tolerances survive": {
			scenario: Scenario{
				Name:        "s2",
				Path:        PathKill,
				EntryIntent: "compliance-violation",
				Tolerances:  Tolerances{MaxTurns: 3, MaxLatencyMs: 100, MaxCostUSD: 0.01},
			},
			validate: func(t *testing.T, s *Scenario) {
				assert.Equal(t, 3, s.Tolerances.MaxTurns)
				assert.Equal(t, int64(100), s.Tolerances.MaxLatencyMs)
				assert.InDelta(t, 0.01, s.Tolerances.MaxCostUSD, 1e-9)
			},
		},
		"missing name": {
			scenario:    Scenario{Path: PathGolden, EntryIntent: "x"},
			expectErr:   true,
			errContains: "name must be set",
		},
		"unknown path": {
			scenario:    Scenario{Name: "s", Path: "SILVER", EntryIntent: "x"},
			expectErr:   true,
			errContains: "path must be GOLDEN or KILL",
		},
		"missing entry intent": {
			scenario:    Scenario{Name: "s", Path: PathGolden},
			expectErr:   true,
			errContains: "entryIntent must be set",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := tc.scenario.Validate()
			if tc.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errContains)
				return
			}
			require.NoError(t, err)
			if tc.validate != nil {
				tc.validate(t, &tc.scenario)
			}
		})
	}
}

func TestReadScenario(t *testing.T) {
	t.Run("valid scenario defaults name and id from metadata", func(t *testing.T) {
		spec, err := Read([]byte(`apiVersion: dealprobe/v1alpha1
kind: Scenario
metadata:
  name: pricing-golden
spec:
  path: GOLDEN
  entryIntent: pricing-inquiry
  vertical: saas
  personaVariant: hostile-cfo
`))
		require.NoError(t, err)
		assert.Equal(t, "pricing-golden", spec.Spec.Name)
		assert.Equal(t, "pricing-golden", spec.Spec.ID)
		assert.Equal(t, PathGolden, spec.Spec.Path)
		assert.Equal(t, "hostile-cfo", spec.Spec.PersonaVariant)
		assert.Equal(t, DefaultMaxTurns, spec.Spec.Tolerances.MaxTurns)
	})

	t.Run("wrong kind is rejected", func(t *testing.T) {
		_, err := Read([]byte(`kind: BuyerPersona
metadata:
  name: x
spec:
  path: GOLDEN
  entryIntent: y
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot decode kind 'BuyerPersona' as kind 'Scenario'")
	})

	t.Run("invalid spec halts loading", func(t *testing.T) {
		_, err := Read([]byte(`kind: Scenario
metadata:
  name: x
spec:
  path: GOLDEN
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "entryIntent must be set")
	})
}
