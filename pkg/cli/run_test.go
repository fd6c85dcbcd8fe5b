package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealprobe/dealprobe/pkg/batch"
	"github.com/dealprobe/dealprobe/pkg/config"
	"github.com/dealprobe/dealprobe/pkg/store"
)

func TestBuildAgent(t *testing.T) {
	tests := map[string]struct {
		setupEnv    func(t *testing.T)
		ref         *batch.AgentRef
		cfg         *config.Config
		expectErr   bool
		errContains string
	}{
		"scripted agent": {
			ref: &batch.AgentRef{Type: "scripted", Replies: []string{"hello"}},
			cfg: &config.Config{},
		},
		"scripted agent without replies": {
			ref:         &batch.AgentRef{Type: "scripted"},
			cfg:         &config.Config{},
			expectErr:   true,
			errContains: "requires at least one reply",
		},
		"openai agent with env keys": {
			setupEnv: func(t *testing.T) {
				t.Setenv("TEST_AGENT_URL", "http://localhost:8080/v1")
				t.Setenv("TEST_AGENT_KEY", "test-key")
			},
			ref: &batch.AgentRef{
				Type:       "openai",
				Model:      "gpt-4",
				BaseURLKey: "TEST_AGENT_URL",
				APIKeyKey:  "TEST_AGENT_KEY",
			},
			cfg: &config.Config{},
		},
		"openai agent falls back to config credentials": {
			ref: &batch.AgentRef{Type: "openai"},
			cfg: &config.Config{
				AgentBaseURL: "http://localhost:8080/v1",
				AgentAPIKey:  "config-key",
				AgentModel:   "gpt-4",
			},
		},
		"openai agent without credentials": {
			ref:         &batch.AgentRef{Type: "openai"},
			cfg:         &config.Config{},
			expectErr:   true,
			errContains: "base URL and API key must be provided",
		},
		"unknown agent type": {
			ref:         &batch.AgentRef{Type: "telepathic"},
			cfg:         &config.Config{},
			expectErr:   true,
			errContains: "unknown agent type",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if tc.setupEnv != nil {
				tc.setupEnv(t)
			}

			invoker, err := buildAgent(tc.ref, tc.cfg)
			if tc.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errContains)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, invoker)
		})
	}
}

func TestBuildModel(t *testing.T) {
	t.Run("nil ref selects deterministic degraded mode", func(t *testing.T) {
		model, err := buildModel(nil, &config.Config{})
		require.NoError(t, err)
		assert.Nil(t, model)
	})

	t.Run("configured ref builds a client", func(t *testing.T) {
		model, err := buildModel(
			&batch.ModelRef{},
			&config.Config{ModelBaseURL: "http://localhost:8080/v1", ModelAPIKey: "k", ModelName: "gpt-4"},
		)
		require.NoError(t, err)
		assert.NotNil(t, model)
	})

	t.Run("missing credentials fail fast", func(t *testing.T) {
		_, err := buildModel(&batch.ModelRef{}, &config.Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base URL and API key must be provided")
	})
}

func TestBuildStore(t *testing.T) {
	t.Run("no DSN configured keeps runs in memory", func(t *testing.T) {
		s, closeStore, err := buildStore("", &config.Config{})
		require.NoError(t, err)
		defer closeStore()

		assert.IsType(t, store.NewMemoryStore(), s)
	})

	t.Run("suite DSN opens a sqlite store", func(t *testing.T) {
		s, closeStore, err := buildStore(filepath.Join(t.TempDir(), "runs.db"), &config.Config{})
		require.NoError(t, err)
		defer closeStore()

		assert.IsType(t, &store.SQLiteStore{}, s)
	})

	t.Run("environment DSN is the fallback", func(t *testing.T) {
		s, closeStore, err := buildStore("", &config.Config{StoreDSN: filepath.Join(t.TempDir(), "runs.db")})
		require.NoError(t, err)
		defer closeStore()

		assert.IsType(t, &store.SQLiteStore{}, s)
	})
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("DEALPROBE_TEST_KEY", "from-env")

	assert.Equal(t, "from-env", envOrDefault("DEALPROBE_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", envOrDefault("DEALPROBE_UNSET_KEY", "fallback"))
	assert.Equal(t, "fallback", envOrDefault("", "fallback"))
}
