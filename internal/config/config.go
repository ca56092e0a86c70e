package config

import (
	"os"
	"time"
)

// Config is the root configuration for redcell.
type Config struct {
	API     APIConfig     `mapstructure:"api" yaml:"api" validate:"required"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Scan    ScanConfig    `mapstructure:"scan" yaml:"scan"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// APIConfig describes the OpenAI-compatible endpoint under test and the
// dispatch policy used when talking to it.
type APIConfig struct {
	// BaseURL is the endpoint root; requests go to {BaseURL}/chat/completions.
	BaseURL string `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`

	// APIKey is sent as a bearer token when non-empty. Usually supplied via
	// ${REDCELL_API_KEY} interpolation or the environment override.
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`

	// Model is the model identifier included in every payload.
	Model string `mapstructure:"model" yaml:"model" validate:"required"`

	// Temperature is the default sampling temperature for requests that do
	// not override it.
	Temperature float64 `mapstructure:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`

	// MaxTokens is the default completion budget. Zero means the field is
	// omitted from payloads entirely.
	MaxTokens int `mapstructure:"max_tokens" yaml:"max_tokens" validate:"min=0"`

	RequestTimeoutSeconds float64 `mapstructure:"request_timeout_seconds" yaml:"request_timeout_seconds" validate:"gt=0"`
	RetryAttempts         int     `mapstructure:"retry_attempts" yaml:"retry_attempts" validate:"min=1,max=10"`
	RetryBackoffSeconds   float64 `mapstructure:"retry_backoff_seconds" yaml:"retry_backoff_seconds" validate:"gt=0"`
	RateLimitPerMin       int     `mapstructure:"rate_limit_per_min" yaml:"rate_limit_per_min" validate:"min=1"`
	MaxConcurrent         int     `mapstructure:"max_concurrent" yaml:"max_concurrent" validate:"min=1,max=100"`
}

// RequestTimeout returns the per-request timeout as a duration.
func (c APIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds * float64(time.Second))
}

// RetryBackoff returns the initial backoff interval as a duration.
func (c APIConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSeconds * float64(time.Second))
}

// EffectiveAPIKey resolves the API key for bearer authentication. The
// configured value wins; otherwise REDCELL_API_KEY and OPENAI_API_KEY are
// consulted. An empty result means requests go out unauthenticated.
func (c APIConfig) EffectiveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if key := os.Getenv("REDCELL_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("OPENAI_API_KEY")
}

// CacheConfig controls the on-disk response cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
}

// ScanConfig controls scan orchestration.
type ScanConfig struct {
	// Workers bounds the number of vectors tested concurrently.
	Workers int `mapstructure:"workers" yaml:"workers" validate:"min=1,max=64"`

	// OutputDir receives findings_*.json and scan_summary.json.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`

	// MaxFindings stops the scan after this many vulnerabilities. Zero
	// means unlimited.
	MaxFindings int `mapstructure:"max_findings" yaml:"max_findings" validate:"min=0"`

	// Categories restricts the scan to the named topic areas. Empty means
	// all categories.
	Categories []string `mapstructure:"categories" yaml:"categories"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}
