package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides are process-environment values that take precedence over the
// config file. Only the fields commonly swapped between runs are exposed
// this way; everything else belongs in the file.
type envOverrides struct {
	BaseURL      string `env:"REDCELL_API_BASE"`
	APIKey       string `env:"REDCELL_API_KEY"`
	Model        string `env:"REDCELL_MODEL"`
	CacheEnabled *bool  `env:"REDCELL_CACHE_ENABLED"`
	CacheDir     string `env:"REDCELL_CACHE_DIR"`
	OutputDir    string `env:"REDCELL_OUTPUT_DIR"`
	LogLevel     string `env:"REDCELL_LOG_LEVEL"`
	LogFormat    string `env:"REDCELL_LOG_FORMAT"`
}

// applyEnvOverrides overlays REDCELL_* environment variables onto cfg.
func applyEnvOverrides(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	if o.BaseURL != "" {
		cfg.API.BaseURL = o.BaseURL
	}
	if o.APIKey != "" {
		cfg.API.APIKey = o.APIKey
	}
	if o.Model != "" {
		cfg.API.Model = o.Model
	}
	if o.CacheEnabled != nil {
		cfg.Cache.Enabled = *o.CacheEnabled
	}
	if o.CacheDir != "" {
		cfg.Cache.Dir = o.CacheDir
	}
	if o.OutputDir != "" {
		cfg.Scan.OutputDir = o.OutputDir
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Logging.Format = o.LogFormat
	}

	return nil
}
