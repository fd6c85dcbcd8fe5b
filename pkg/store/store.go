// Package store provides persistence backends for simulation runs.
//
// Every backend implements sim.RunStore: value-returning builders over
// immutable Run snapshots. CompleteRun is the only outcome-setting
// point.
package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/dealprobe/dealprobe/pkg/sim"
)

func newRun(scenarioID, personaID, variantName string, seed int64) sim.Run {
	return sim.Run{
		ID:          uuid.NewString(),
		ScenarioID:  scenarioID,
		PersonaID:   personaID,
		VariantName: variantName,
		Seed:        seed,
		StartedAt:   time.Now().UTC(),
	}
}
