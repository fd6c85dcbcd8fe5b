package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dealprobe/dealprobe/pkg/agent"
	"github.com/dealprobe/dealprobe/pkg/batch"
	"github.com/dealprobe/dealprobe/pkg/config"
	"github.com/dealprobe/dealprobe/pkg/llm"
	"github.com/dealprobe/dealprobe/pkg/results"
	"github.com/dealprobe/dealprobe/pkg/sim"
	"github.com/dealprobe/dealprobe/pkg/store"
	"github.com/dealprobe/dealprobe/pkg/util"
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	var outputFormat string
	var verbose bool
	var seed int64

	cmd := &cobra.Command{
		Use:   "run [suite-file]",
		Short: "Run a simulation suite",
		Long:  `Run every scenario in the suite against the configured agent under test.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suite, err := batch.SuiteFromFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to load suite: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			personas, err := suite.LoadPersonas()
			if err != nil {
				return fmt.Errorf("failed to load personas: %w", err)
			}
			scenarios, err := suite.LoadScenarios()
			if err != nil {
				return fmt.Errorf("failed to load scenarios: %w", err)
			}

			invoker, err := buildAgent(suite.Config.Agent, cfg)
			if err != nil {
				return fmt.Errorf("failed to build agent under test: %w", err)
			}

			model, err := buildModel(suite.Config.LanguageModel, cfg)
			if err != nil {
				return fmt.Errorf("failed to build language model: %w", err)
			}

			runStore, closeStore, err := buildStore(suite.Config.Options.StoreDSN, cfg)
			if err != nil {
				return fmt.Errorf("failed to build run store: %w", err)
			}
			defer closeStore()

			if cmd.Flags().Changed("seed") {
				suite.Config.Options.Seed = seed
			}
			concurrency := suite.Config.Options.Concurrency
			if concurrency <= 0 {
				concurrency = cfg.Concurrency
			}

			display := newProgressDisplay(verbose)
			runner, err := batch.NewRunner(batch.Options{
				BaseSeed:    suite.Config.Options.Seed,
				Concurrency: concurrency,
				Agent:       invoker,
				Model:       model,
				Store:       runStore,
				Progress:    display.handleProgress,
			})
			if err != nil {
				return fmt.Errorf("failed to create batch runner: %w", err)
			}

			ctx := util.WithVerbose(context.Background(), verbose)
			report, err := runner.Execute(ctx, scenarios, personas)
			if err != nil {
				return fmt.Errorf("batch failed: %w", err)
			}

			outputFile := fmt.Sprintf("dealprobe-%s-out.json", suite.Metadata.Name)
			if err := results.Save(report, outputFile); err != nil {
				return fmt.Errorf("failed to save results to file: %w", err)
			}
			fmt.Printf("\nResults saved to: %s\n", outputFile)

			return displayReport(report, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, json)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Base seed overriding the suite's configured seed")

	return cmd
}

func buildAgent(ref *batch.AgentRef, cfg *config.Config) (sim.AgentInvoker, error) {
	switch ref.Type {
	case "scripted":
		if len(ref.Replies) == 0 {
			return nil, fmt.Errorf("scripted agent requires at least one reply")
		}
		return agent.NewScriptedAgent(ref.Replies...), nil

	case "openai":
		baseURL := envOrDefault(ref.BaseURLKey, cfg.AgentBaseURL)
		apiKey := envOrDefault(ref.APIKeyKey, cfg.AgentAPIKey)
		model := ref.Model
		if model == "" {
			model = cfg.AgentModel
		}
		return agent.NewOpenAIAgent(baseURL, apiKey, model, ref.SystemPrompt)

	default:
		return nil, fmt.Errorf("unknown agent type: '%s' (want 'openai' or 'scripted')", ref.Type)
	}
}

func buildModel(ref *batch.ModelRef, cfg *config.Config) (sim.LanguageModel, error) {
	if ref == nil {
		// Deterministic degraded mode.
		return nil, nil
	}

	baseURL := envOrDefault(ref.BaseURLKey, cfg.ModelBaseURL)
	apiKey := envOrDefault(ref.APIKeyKey, cfg.ModelAPIKey)
	model := ref.Model
	if model == "" {
		model = cfg.ModelName
	}
	return llm.NewOpenAIModel(baseURL, apiKey, model)
}

func buildStore(suiteDSN string, cfg *config.Config) (sim.RunStore, func(), error) {
	dsn := suiteDSN
	if dsn == "" {
		dsn = cfg.StoreDSN
	}
	if dsn == "" {
		return store.NewMemoryStore(), func() {}, nil
	}

	s, err := store.NewSQLiteStore(dsn)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Close() }, nil
}

func envOrDefault(key, fallback string) string {
	if key == "" {
		return fallback
	}
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// progressDisplay handles interactive progress display
type progressDisplay struct {
	verbose bool
	green   *color.Color
	red     *color.Color
	yellow  *color.Color
	cyan    *color.Color
	bold    *color.Color
}

func newProgressDisplay(verbose bool) *progressDisplay {
	return &progressDisplay{
		verbose: verbose,
		green:   color.New(color.FgGreen),
		red:     color.New(color.FgRed),
		yellow:  color.New(color.FgYellow),
		cyan:    color.New(color.FgCyan),
		bold:    color.New(color.Bold),
	}
}

func (d *progressDisplay) handleProgress(event batch.ProgressEvent) {
	switch event.Type {
	case batch.EventBatchStart:
		d.bold.Println("\n=== Starting Simulation Batch ===")

	case batch.EventScenarioStart:
		if d.verbose {
			d.cyan.Printf("Scenario: %s (persona: %s)\n", event.Scenario.ScenarioName, event.Scenario.PersonaName)
		}

	case batch.EventScenarioComplete:
		res := event.Scenario
		switch res.Result.Outcome {
		case sim.OutcomePass:
			d.green.Printf("  ✓ %s: PASS\n", res.ScenarioName)
		case sim.OutcomeFail:
			d.red.Printf("  ✗ %s: FAIL (%s)\n", res.ScenarioName, res.Result.OutcomeReason)
		case sim.OutcomeBlock:
			d.red.Printf("  ✗ %s: BLOCK (%s)\n", res.ScenarioName, res.Result.OutcomeReason)
		}

	case batch.EventScenarioError:
		d.yellow.Printf("  ~ %s: execution error (%s)\n", event.Scenario.ScenarioName, event.Scenario.Error)

	case batch.EventBatchComplete:
		fmt.Println()
		d.bold.Println("=== Batch Complete ===")
	}
}

func displayReport(report *batch.Report, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)

	case "text":
		printSummary(report.Summary)
		return nil

	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func printSummary(s batch.Summary) {
	green := color.New(color.FgGreen)
	bold := color.New(color.Bold)

	fmt.Println()
	bold.Println("=== Summary ===")
	fmt.Printf("Scenarios: %d (errors: %d)\n", s.Total, s.Errors)

	for _, outcome := range []string{"PASS", "FAIL", "BLOCK"} {
		if count, ok := s.ByOutcome[outcome]; ok {
			fmt.Printf("  %s: %d\n", outcome, count)
		}
	}

	if s.GoldenTotal > 0 {
		if s.GoldenPassed == s.GoldenTotal {
			green.Printf("Golden pass rate: %.0f%% (%d/%d)\n", s.GoldenPass*100, s.GoldenPassed, s.GoldenTotal)
		} else {
			fmt.Printf("Golden pass rate: %.0f%% (%d/%d)\n", s.GoldenPass*100, s.GoldenPassed, s.GoldenTotal)
		}
	}
	if s.KillTotal > 0 {
		if s.KillContained == s.KillTotal {
			green.Printf("Kill containment: %.0f%% (%d/%d)\n", s.KillContain*100, s.KillContained, s.KillTotal)
		} else {
			fmt.Printf("Kill containment: %.0f%% (%d/%d)\n", s.KillContain*100, s.KillContained, s.KillTotal)
		}
	}
	if s.GoldenTotal > 0 && s.KillTotal > 0 {
		fmt.Printf("Effect size (golden vs kill): %.2f\n", s.EffectSize)
	}
}
