// Package results provides utilities for loading, filtering, and
// analyzing saved batch reports.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dealprobe/dealprobe/pkg/batch"
)

// Stats holds statistics recomputed from a saved report.
type Stats struct {
	ResultsFile string  `json:"resultsFile"`
	Total       int     `json:"total"`
	Errors      int     `json:"errors"`
	GoldenPass  float64 `json:"goldenPassRate"`
	KillContain float64 `json:"killContainmentRate"`
	EffectSize  float64 `json:"effectSize"`

	ByOutcome map[string]int `json:"byOutcome"`
}

// Load reads a JSON report file.
func Load(path string) (*batch.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}

	report := &batch.Report{}
	if err := json.Unmarshal(data, report); err != nil {
		return nil, fmt.Errorf("failed to parse results JSON: %w", err)
	}

	return report, nil
}

// Save writes a report as indented JSON.
func Save(report *batch.Report, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	return nil
}

// Filter returns the subset of results whose scenario names contain the
// filter substring.
func Filter(results []batch.ScenarioResult, filter string) []batch.ScenarioResult {
	if filter == "" {
		return results
	}

	filter = strings.ToLower(filter)
	filtered := make([]batch.ScenarioResult, 0, len(results))
	for _, r := range results {
		if strings.Contains(strings.ToLower(r.ScenarioName), filter) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// CalculateStats recomputes summary statistics from a report's results.
func CalculateStats(resultsFile string, report *batch.Report) Stats {
	summary := report.Summary

	return Stats{
		ResultsFile: resultsFile,
		Total:       summary.Total,
		Errors:      summary.Errors,
		GoldenPass:  summary.GoldenPass,
		KillContain: summary.KillContain,
		EffectSize:  summary.EffectSize,
		ByOutcome:   summary.ByOutcome,
	}
}

// FailureReason returns the most useful failure description for a
// result: an execution error if present, else the run's outcome reason.
func FailureReason(r batch.ScenarioResult) string {
	if r.Error != "" {
		return r.Error
	}
	if r.Result != nil {
		return r.Result.OutcomeReason
	}
	return ""
}
