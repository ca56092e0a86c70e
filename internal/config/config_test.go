package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test API defaults
	assert.Equal(t, "http://localhost:8000/v1", cfg.API.BaseURL)
	assert.Empty(t, cfg.API.APIKey)
	assert.Equal(t, "gpt-oss-20b", cfg.API.Model)
	assert.Equal(t, 0.2, cfg.API.Temperature)
	assert.Equal(t, 0, cfg.API.MaxTokens)
	assert.Equal(t, 120*time.Second, cfg.API.RequestTimeout())
	assert.Equal(t, 3, cfg.API.RetryAttempts)
	assert.Equal(t, time.Second, cfg.API.RetryBackoff())
	assert.Equal(t, 60, cfg.API.RateLimitPerMin)
	assert.Equal(t, 4, cfg.API.MaxConcurrent)

	// Test Cache defaults
	assert.True(t, cfg.Cache.Enabled)
	assert.Contains(t, cfg.Cache.Dir, ".redcell", "cache dir should live under the redcell home")

	// Test Scan defaults
	assert.Equal(t, 4, cfg.Scan.Workers)
	assert.Equal(t, "findings", cfg.Scan.OutputDir)
	assert.Equal(t, 0, cfg.Scan.MaxFindings)
	assert.Empty(t, cfg.Scan.Categories)

	// Test Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	// Defaults must pass their own validation
	require.NoError(t, NewValidator().Validate(cfg))
}

func TestLoadValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api:
  base_url: http://model.internal:9000/v1
  api_key: test-key
  model: gpt-oss-20b
  temperature: 0.7
  max_tokens: 2048
  request_timeout_seconds: 60
  retry_attempts: 5
  retry_backoff_seconds: 0.5
  rate_limit_per_min: 30
  max_concurrent: 8

cache:
  enabled: true
  dir: /tmp/redcell-test/cache

scan:
  workers: 2
  output_dir: /tmp/redcell-test/findings
  max_findings: 3
  categories:
    - deception
    - sandbagging

logging:
  level: debug
  format: json
`

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	validator := NewValidator()
	loader := NewConfigLoader(validator)
	cfg, err := loader.Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "http://model.internal:9000/v1", cfg.API.BaseURL)
	assert.Equal(t, "test-key", cfg.API.APIKey)
	assert.Equal(t, 0.7, cfg.API.Temperature)
	assert.Equal(t, 2048, cfg.API.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.API.RequestTimeout())
	assert.Equal(t, 5, cfg.API.RetryAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.API.RetryBackoff())
	assert.Equal(t, 30, cfg.API.RateLimitPerMin)
	assert.Equal(t, 8, cfg.API.MaxConcurrent)
	assert.Equal(t, "/tmp/redcell-test/cache", cfg.Cache.Dir)
	assert.Equal(t, 2, cfg.Scan.Workers)
	assert.Equal(t, []string{"deception", "sandbagging"}, cfg.Scan.Categories)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadPartialConfigMergesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api:
  base_url: http://partial.test:8000/v1
  model: custom-model
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	loader := NewConfigLoader(NewValidator())
	cfg, err := loader.Load(configPath)
	require.NoError(t, err)

	// File values win
	assert.Equal(t, "http://partial.test:8000/v1", cfg.API.BaseURL)
	assert.Equal(t, "custom-model", cfg.API.Model)

	// Unset keys keep their defaults
	assert.Equal(t, 3, cfg.API.RetryAttempts)
	assert.Equal(t, 60, cfg.API.RateLimitPerMin)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoadEnvInterpolation(t *testing.T) {
	t.Setenv("REDCELL_TEST_KEY", "secret-from-env")
	t.Setenv("REDCELL_TEST_MODEL", "env-model")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api:
  base_url: http://localhost:8000/v1
  api_key: ${REDCELL_TEST_KEY}
  model: ${REDCELL_TEST_MODEL}
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	loader := NewConfigLoader(NewValidator())
	cfg, err := loader.Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "secret-from-env", cfg.API.APIKey)
	assert.Equal(t, "env-model", cfg.API.Model)
}

func TestLoadEnvInterpolationMissingVarKeepsPlaceholder(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api:
  base_url: http://localhost:8000/v1
  api_key: ${REDCELL_DEFINITELY_UNSET_VAR}
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	loader := NewConfigLoader(NewValidator())
	cfg, err := loader.Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "${REDCELL_DEFINITELY_UNSET_VAR}", cfg.API.APIKey)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("REDCELL_API_BASE", "http://override.test:7000/v1")
	t.Setenv("REDCELL_MODEL", "override-model")
	t.Setenv("REDCELL_CACHE_ENABLED", "false")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api:
  base_url: http://file.test:8000/v1
  model: file-model
cache:
  enabled: true
  dir: /tmp/cache
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	loader := NewConfigLoader(NewValidator())
	cfg, err := loader.Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://override.test:7000/v1", cfg.API.BaseURL)
	assert.Equal(t, "override-model", cfg.API.Model)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	loader := NewConfigLoader(NewValidator())
	_, err := loader.Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	loader := NewConfigLoader(NewValidator())
	cfg, err := loader.LoadWithDefaults("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "gpt-oss-20b", cfg.API.Model)
}

func TestLoadInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing model",
			content: `
api:
  base_url: http://localhost:8000/v1
  model: ""
`,
			wantErr: "api.model",
		},
		{
			name: "retry attempts out of range",
			content: `
api:
  base_url: http://localhost:8000/v1
  model: m
  retry_attempts: 0
`,
			wantErr: "api.retry_attempts",
		},
		{
			name: "bad log level",
			content: `
api:
  base_url: http://localhost:8000/v1
  model: m
logging:
  level: loud
`,
			wantErr: "logging.level",
		},
		{
			name: "cache enabled without dir",
			content: `
api:
  base_url: http://localhost:8000/v1
  model: m
cache:
  enabled: true
  dir: ""
`,
			wantErr: "cache.dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")
			require.NoError(t, os.WriteFile(configPath, []byte(tt.content), 0644))

			loader := NewConfigLoader(NewValidator())
			_, err := loader.Load(configPath)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEffectiveAPIKey(t *testing.T) {
	t.Run("configured key wins", func(t *testing.T) {
		t.Setenv("REDCELL_API_KEY", "env-key")
		cfg := APIConfig{APIKey: "config-key"}
		assert.Equal(t, "config-key", cfg.EffectiveAPIKey())
	})

	t.Run("falls back to REDCELL_API_KEY", func(t *testing.T) {
		t.Setenv("REDCELL_API_KEY", "env-key")
		t.Setenv("OPENAI_API_KEY", "openai-key")
		cfg := APIConfig{}
		assert.Equal(t, "env-key", cfg.EffectiveAPIKey())
	})

	t.Run("falls back to OPENAI_API_KEY", func(t *testing.T) {
		t.Setenv("REDCELL_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "openai-key")
		cfg := APIConfig{}
		assert.Equal(t, "openai-key", cfg.EffectiveAPIKey())
	})

	t.Run("absent everywhere", func(t *testing.T) {
		t.Setenv("REDCELL_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "")
		cfg := APIConfig{}
		assert.Empty(t, cfg.EffectiveAPIKey())
	})
}
