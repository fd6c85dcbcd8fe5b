package batch

import (
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"

	"github.com/dealprobe/dealprobe/pkg/persona"
	"github.com/dealprobe/dealprobe/pkg/scenario"
	"github.com/dealprobe/dealprobe/pkg/util"
)

const (
	KindSuite = "Suite"
)

// Suite is the top-level config tying personas, scenarios, the agent
// under test and run options together.
type Suite struct {
	util.TypeMeta

	Metadata SuiteMetadata `json:"metadata"`
	Config   SuiteConfig   `json:"config"`

	basePath string
}

type SuiteMetadata struct {
	Name string `json:"name"`
}

type SuiteConfig struct {
	PersonaSets  []FileSet `json:"personaSets"`
	ScenarioSets []FileSet `json:"scenarioSets"`

	Agent *AgentRef `json:"agent"`

	// LanguageModel, when set, enables naturalistic buyer replies. Left
	// unset the engine runs in its deterministic degraded mode.
	LanguageModel *ModelRef `json:"languageModel,omitempty"`

	Options SuiteOptions `json:"options,omitempty"`
}

// FileSet selects config files. Exactly one of Glob or Path must be set.
type FileSet struct {
	Glob string `json:"glob,omitempty"`
	Path string `json:"path,omitempty"`
}

// AgentRef selects the agent under test. Type is "openai" or
// "scripted".
type AgentRef struct {
	Type         string   `json:"type"`
	Model        string   `json:"model,omitempty"`
	SystemPrompt string   `json:"systemPrompt,omitempty"`
	BaseURLKey   string   `json:"baseUrlKey,omitempty"`
	APIKeyKey    string   `json:"apiKeyKey,omitempty"`
	Replies      []string `json:"replies,omitempty"`
}

// ModelRef configures the optional buyer-side language model via
// environment variable keys.
type ModelRef struct {
	Model      string `json:"model,omitempty"`
	BaseURLKey string `json:"baseUrlKey"`
	APIKeyKey  string `json:"apiKeyKey"`
}

type SuiteOptions struct {
	Seed        int64  `json:"seed,omitempty"`
	Concurrency int    `json:"concurrency,omitempty"`
	StoreDSN    string `json:"storeDsn,omitempty"`
}

func (s *Suite) UnmarshalJSON(data []byte) error {
	type Doppleganger Suite

	tmp := (*Doppleganger)(s)
	return util.UnmarshalWithKind(data, tmp, KindSuite)
}

func (s *Suite) BasePath() string {
	return s.basePath
}

// ReadSuite parses a suite and resolves file sets relative to basePath.
func ReadSuite(data []byte, basePath string) (*Suite, error) {
	suite := &Suite{}

	if err := yaml.Unmarshal(data, suite); err != nil {
		return nil, err
	}
	suite.basePath = basePath

	if err := suite.TypeMeta.Validate(KindSuite); err != nil {
		return nil, err
	}
	if suite.Metadata.Name == "" {
		return nil, fmt.Errorf("suite metadata.name must be set")
	}
	if suite.Config.Agent == nil {
		return nil, fmt.Errorf("agent must be specified in suite config")
	}

	for i := range suite.Config.PersonaSets {
		resolveFileSet(&suite.Config.PersonaSets[i], basePath)
	}
	for i := range suite.Config.ScenarioSets {
		resolveFileSet(&suite.Config.ScenarioSets[i], basePath)
	}

	return suite, nil
}

func SuiteFromFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s' for suite: %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for '%s': %w", path, err)
	}

	return ReadSuite(data, filepath.Dir(absPath))
}

func resolveFileSet(fs *FileSet, basePath string) {
	if fs.Path != "" && !filepath.IsAbs(fs.Path) {
		fs.Path = filepath.Join(basePath, fs.Path)
	}
	if fs.Glob != "" && !filepath.IsAbs(fs.Glob) {
		fs.Glob = filepath.Join(basePath, fs.Glob)
	}
}

// LoadPersonas collects and validates every persona spec the suite's
// file sets select, declared variants included. Config errors halt
// loading before any run starts.
func (s *Suite) LoadPersonas() ([]persona.PersonaSpec, error) {
	paths, err := collectPaths(s.Config.PersonaSets)
	if err != nil {
		return nil, err
	}

	personas := make([]persona.PersonaSpec, 0, len(paths))
	for _, path := range paths {
		spec, err := persona.FromFile(path)
		if err != nil {
			return nil, err
		}
		personas = append(personas, *spec)
	}

	if len(personas) == 0 {
		return nil, fmt.Errorf("suite selects no personas")
	}
	return personas, nil
}

// LoadScenarios collects and validates every scenario the suite's file
// sets select.
func (s *Suite) LoadScenarios() ([]scenario.Scenario, error) {
	paths, err := collectPaths(s.Config.ScenarioSets)
	if err != nil {
		return nil, err
	}

	scenarios := make([]scenario.Scenario, 0, len(paths))
	for _, path := range paths {
		spec, err := scenario.FromFile(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, spec.Spec)
	}

	if len(scenarios) == 0 {
		return nil, fmt.Errorf("suite selects no scenarios")
	}
	return scenarios, nil
}

func collectPaths(sets []FileSet) ([]string, error) {
	paths := make([]string, 0)

	for _, fs := range sets {
		switch {
		case fs.Glob != "":
			matches, err := filepath.Glob(fs.Glob)
			if err != nil {
				return nil, fmt.Errorf("failed to glob %s: %w", fs.Glob, err)
			}
			paths = append(paths, matches...)
		case fs.Path != "":
			paths = append(paths, fs.Path)
		}
	}

	return paths, nil
}
