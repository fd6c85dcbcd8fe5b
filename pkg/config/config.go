// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds credentials and runtime defaults sourced from the
// environment. Suite files reference these values by env key, so the
// keys here are the defaults used by the CLI.
type Config struct {
	AgentBaseURL string `env:"DEALPROBE_AGENT_BASE_URL"`
	AgentAPIKey  string `env:"DEALPROBE_AGENT_API_KEY"`
	AgentModel   string `env:"DEALPROBE_AGENT_MODEL" envDefault:"gpt-4"`

	ModelBaseURL string `env:"DEALPROBE_MODEL_BASE_URL"`
	ModelAPIKey  string `env:"DEALPROBE_MODEL_API_KEY"`
	ModelName    string `env:"DEALPROBE_MODEL" envDefault:"gpt-4"`

	StoreDSN    string `env:"DEALPROBE_STORE_DSN"`
	Concurrency int    `env:"DEALPROBE_CONCURRENCY" envDefault:"4"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment config: %w", err)
	}
	return cfg, nil
}
