// Package batch runs many scenarios against the agent under test and
// aggregates population-level separation statistics.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dealprobe/dealprobe/pkg/persona"
	"github.com/dealprobe/dealprobe/pkg/scenario"
	"github.com/dealprobe/dealprobe/pkg/sim"
)

// DefaultConcurrency bounds how many scenario runs execute at once.
// Runs share no mutable state beyond read-only configuration, so they
// parallelize safely; within a single run everything stays sequential.
const DefaultConcurrency = 4

// Options configures a batch execution.
type Options struct {
	// BaseSeed anchors per-scenario seeds; scenario i runs with
	// sim.DeriveTurnSeed(BaseSeed, i) so batches replay bit-exactly.
	BaseSeed int64

	Concurrency int

	Agent sim.AgentInvoker
	Model sim.LanguageModel
	Store sim.RunStore

	Progress ProgressCallback
}

// ScenarioResult is one scenario's isolated result. A faulted scenario
// records its error here and never aborts the batch.
type ScenarioResult struct {
	ScenarioName string         `json:"scenarioName"`
	PersonaName  string         `json:"personaName"`
	Path         string         `json:"path"`
	Result       *sim.RunResult `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// Summary aggregates a finished batch.
type Summary struct {
	Total     int            `json:"total"`
	ByOutcome map[string]int `json:"byOutcome"`
	ByPath    map[string]int `json:"byPath"`

	GoldenTotal   int     `json:"goldenTotal"`
	GoldenPassed  int     `json:"goldenPassed"`
	GoldenPass    float64 `json:"goldenPassRate"`
	KillTotal     int     `json:"killTotal"`
	KillContained int     `json:"killContained"`
	KillContain   float64 `json:"killContainmentRate"`

	// EffectSize is the standardized mean difference between the
	// weighted-score distributions of the GOLDEN and KILL populations.
	EffectSize float64 `json:"effectSize"`

	Errors int `json:"errors"`
}

// Report is the batch runner's full output.
type Report struct {
	Results []ScenarioResult `json:"results"`
	Summary Summary          `json:"summary"`
}

// Runner executes scenario batches. All shared dependencies are
// explicit and injected; the runner holds no global state.
type Runner struct {
	opts Options
}

func NewRunner(opts Options) (*Runner, error) {
	if opts.Agent == nil {
		return nil, fmt.Errorf("an agent invoker must be provided")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Progress == nil {
		opts.Progress = NoopProgressCallback
	}
	return &Runner{opts: opts}, nil
}

// Execute runs every scenario against its matched persona, bounded by
// the configured concurrency. One scenario's fault is captured in its
// result and must not prevent the others from running.
func (r *Runner) Execute(ctx context.Context, scenarios []scenario.Scenario, personas []persona.PersonaSpec) (*Report, error) {
	if len(personas) == 0 {
		return nil, fmt.Errorf("at least one persona must be provided")
	}

	r.opts.Progress(ProgressEvent{
		Type:    EventBatchStart,
		Message: fmt.Sprintf("Starting batch of %d scenarios", len(scenarios)),
	})

	results := make([]ScenarioResult, len(scenarios))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			res := r.runScenario(gctx, sc, personas, int64(i))

			mu.Lock()
			results[i] = res
			mu.Unlock()

			eventType := EventScenarioComplete
			msg := fmt.Sprintf("Completed scenario: %s", sc.Name)
			if res.Error != "" {
				eventType = EventScenarioError
				msg = fmt.Sprintf("Scenario failed to execute: %s", sc.Name)
			}
			r.opts.Progress(ProgressEvent{Type: eventType, Message: msg, Scenario: &res})

			return nil
		})
	}

	// Worker errors are folded into per-scenario results, so the group
	// only reports context cancellation.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Results: results,
		Summary: summarize(results),
	}

	r.opts.Progress(ProgressEvent{
		Type:    EventBatchComplete,
		Message: "Batch complete",
	})

	return report, nil
}

func (r *Runner) runScenario(ctx context.Context, sc scenario.Scenario, personas []persona.PersonaSpec, index int64) ScenarioResult {
	spec := matchPersona(sc, personas)
	p := spec.Spec

	res := ScenarioResult{
		ScenarioName: sc.Name,
		PersonaName:  p.Name,
		Path:         string(sc.Path),
	}

	r.opts.Progress(ProgressEvent{
		Type:     EventScenarioStart,
		Message:  fmt.Sprintf("Starting scenario: %s (persona: %s)", sc.Name, p.Name),
		Scenario: &res,
	})

	var variant *persona.Variant
	if sc.PersonaVariant != "" {
		v, ok := spec.Variant(sc.PersonaVariant)
		if !ok {
			err := fmt.Errorf("persona '%s' declares no variant '%s'", p.Name, sc.PersonaVariant)
			slog.Error("scenario execution failed", "scenario", sc.Name, "error", err)
			res.Error = err.Error()
			return res
		}
		variant = v
	}

	runResult, err := sim.ExecuteScenario(ctx, sim.RunOptions{
		Scenario: sc,
		Persona:  p,
		Variant:  variant,
		Seed:     sim.DeriveTurnSeed(r.opts.BaseSeed, index),
		Agent:    r.opts.Agent,
		Model:    r.opts.Model,
		Store:    r.opts.Store,
	})
	if err != nil {
		slog.Error("scenario execution failed", "scenario", sc.Name, "error", err)
		res.Error = err.Error()
		return res
	}

	res.Result = runResult
	return res
}

// matchPersona pairs a scenario with a persona by vertical and
// sub-vertical, falling back to a vertical-only match and finally to
// the first configured persona.
func matchPersona(sc scenario.Scenario, personas []persona.PersonaSpec) persona.PersonaSpec {
	for _, p := range personas {
		if p.Spec.Vertical == sc.Vertical && p.Spec.SubVertical == sc.SubVertical && sc.Vertical != "" {
			return p
		}
	}
	for _, p := range personas {
		if p.Spec.Vertical == sc.Vertical && sc.Vertical != "" {
			return p
		}
	}
	return personas[0]
}

func summarize(results []ScenarioResult) Summary {
	s := Summary{
		Total:     len(results),
		ByOutcome: make(map[string]int),
		ByPath:    make(map[string]int),
	}

	var goldenScores, killScores []float64

	for _, res := range results {
		s.ByPath[res.Path]++

		if res.Error != "" || res.Result == nil {
			s.Errors++
			continue
		}

		s.ByOutcome[string(res.Result.Outcome)]++
		weighted := res.Result.Scores.Scores.Weighted()

		switch scenario.PathType(res.Path) {
		case scenario.PathGolden:
			s.GoldenTotal++
			goldenScores = append(goldenScores, weighted)
			if res.Result.Outcome == sim.OutcomePass {
				s.GoldenPassed++
			}
		case scenario.PathKill:
			s.KillTotal++
			killScores = append(killScores, weighted)
			if res.Result.Outcome == sim.OutcomePass {
				s.KillContained++
			}
		}
	}

	if s.GoldenTotal > 0 {
		s.GoldenPass = float64(s.GoldenPassed) / float64(s.GoldenTotal)
	}
	if s.KillTotal > 0 {
		s.KillContain = float64(s.KillContained) / float64(s.KillTotal)
	}

	s.EffectSize = CohensD(goldenScores, killScores)

	return s
}
