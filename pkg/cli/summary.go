package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dealprobe/dealprobe/pkg/results"
)

// NewSummaryCmd creates the summary command
func NewSummaryCmd() *cobra.Command {
	var filter string
	var showFailures bool

	cmd := &cobra.Command{
		Use:   "summary [results-file]",
		Short: "Summarize a saved results file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := results.Load(args[0])
			if err != nil {
				return err
			}

			stats := results.CalculateStats(args[0], report)
			fmt.Printf("Results file: %s\n", stats.ResultsFile)
			printSummary(report.Summary)

			if !showFailures {
				return nil
			}

			red := color.New(color.FgRed)
			filtered := results.Filter(report.Results, filter)
			fmt.Println()
			for _, r := range filtered {
				if r.Error == "" && (r.Result == nil || r.Result.Outcome == "PASS") {
					continue
				}
				red.Printf("%s (%s): %s\n", r.ScenarioName, r.Path, results.FailureReason(r))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only show scenarios whose name contains this substring")
	cmd.Flags().BoolVar(&showFailures, "failures", false, "List failed scenarios with reasons")

	return cmd
}
