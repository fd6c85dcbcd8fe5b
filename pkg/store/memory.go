package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dealprobe/dealprobe/pkg/sim"
)

// MemoryStore keeps run snapshots in memory. It is safe for concurrent
// batch execution; each run is only ever touched by one goroutine, but
// the snapshot map is shared.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[string]sim.Run
}

var _ sim.RunStore = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]sim.Run)}
}

func (s *MemoryStore) CreateRun(_ context.Context, scenarioID, personaID, variantName string, seed int64) (sim.Run, error) {
	run := newRun(scenarioID, personaID, variantName, seed)

	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()

	return run, nil
}

func (s *MemoryStore) AppendTurn(_ context.Context, run sim.Run, turn sim.Turn) (sim.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.runs[run.ID]
	if !ok {
		return sim.Run{}, fmt.Errorf("unknown run '%s'", run.ID)
	}
	if stored.Completed {
		return sim.Run{}, fmt.Errorf("cannot append turn to completed run '%s'", run.ID)
	}

	updated := run.WithTurn(turn)
	s.runs[run.ID] = updated
	return updated, nil
}

func (s *MemoryStore) CompleteRun(_ context.Context, run sim.Run, outcome sim.Outcome, reason string) (sim.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.runs[run.ID]
	if !ok {
		return sim.Run{}, fmt.Errorf("unknown run '%s'", run.ID)
	}
	if stored.Completed {
		return sim.Run{}, fmt.Errorf("run '%s' is already completed", run.ID)
	}

	updated := run.WithOutcome(outcome, reason, time.Now().UTC())
	s.runs[run.ID] = updated
	return updated, nil
}

// GetRun returns the stored snapshot for a run ID.
func (s *MemoryStore) GetRun(id string) (sim.Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	return run, ok
}
