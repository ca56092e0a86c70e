package config

import (
	"os"
	"path/filepath"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	homeDir := DefaultHomeDir()

	return &Config{
		API: APIConfig{
			BaseURL:               "http://localhost:8000/v1",
			APIKey:                "",
			Model:                 "gpt-oss-20b",
			Temperature:           0.2,
			MaxTokens:             0,
			RequestTimeoutSeconds: 120,
			RetryAttempts:         3,
			RetryBackoffSeconds:   1.0,
			RateLimitPerMin:       60,
			MaxConcurrent:         4,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     filepath.Join(homeDir, "cache"),
		},
		Scan: ScanConfig{
			Workers:     4,
			OutputDir:   "findings",
			MaxFindings: 0,
			Categories:  nil,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultHomeDir returns the default redcell home directory.
// It uses ~/.redcell or falls back to a temporary directory if user home
// cannot be determined.
func DefaultHomeDir() string {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".redcell")
	}
	return filepath.Join(userHome, ".redcell")
}

// DefaultConfigPath returns the config file path under the given home directory.
func DefaultConfigPath(homeDir string) string {
	return filepath.Join(homeDir, "config.yaml")
}
