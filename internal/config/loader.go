package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ConfigLoader handles loading configuration from files.
type ConfigLoader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

// viperConfigLoader implements ConfigLoader using Viper.
type viperConfigLoader struct {
	validator ConfigValidator
}

// NewConfigLoader creates a new ConfigLoader instance.
func NewConfigLoader(validator ConfigValidator) ConfigLoader {
	return &viperConfigLoader{
		validator: validator,
	}
}

// Load loads configuration from the specified file path.
// Returns an error if the file doesn't exist or cannot be parsed.
// Missing keys fall back to defaults, string values get ${VAR} environment
// interpolation, and REDCELL_* environment overrides are applied last.
func (l *viperConfigLoader) Load(path string) (*Config, error) {
	// A .env next to the working directory supplies interpolation and
	// override variables; absence is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setViperDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Read raw config into map for environment variable interpolation
	rawConfig := v.AllSettings()
	interpolatedConfig := interpolateEnvVars(rawConfig)

	if interpolatedMap, ok := interpolatedConfig.(map[string]interface{}); ok {
		applyInterpolation(&cfg, interpolatedMap)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := l.validator.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration with environment
// overrides applied.
func (l *viperConfigLoader) LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		_ = godotenv.Load()

		cfg := DefaultConfig()
		if err := applyEnvOverrides(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
		}
		if err := l.validator.Validate(cfg); err != nil {
			return nil, fmt.Errorf("default configuration validation failed: %w", err)
		}
		return cfg, nil
	}

	return l.Load(path)
}

// setViperDefaults seeds every key with the DefaultConfig value so a partial
// config file merges onto the defaults instead of zeroing unset fields.
func setViperDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.api_key", def.API.APIKey)
	v.SetDefault("api.model", def.API.Model)
	v.SetDefault("api.temperature", def.API.Temperature)
	v.SetDefault("api.max_tokens", def.API.MaxTokens)
	v.SetDefault("api.request_timeout_seconds", def.API.RequestTimeoutSeconds)
	v.SetDefault("api.retry_attempts", def.API.RetryAttempts)
	v.SetDefault("api.retry_backoff_seconds", def.API.RetryBackoffSeconds)
	v.SetDefault("api.rate_limit_per_min", def.API.RateLimitPerMin)
	v.SetDefault("api.max_concurrent", def.API.MaxConcurrent)
	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("cache.dir", def.Cache.Dir)
	v.SetDefault("scan.workers", def.Scan.Workers)
	v.SetDefault("scan.output_dir", def.Scan.OutputDir)
	v.SetDefault("scan.max_findings", def.Scan.MaxFindings)
	v.SetDefault("scan.categories", def.Scan.Categories)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
}

// interpolateEnvVars recursively interpolates environment variables in the
// config map. Supports ${VAR_NAME} syntax.
func interpolateEnvVars(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{})
		for key, value := range v {
			result[key] = interpolateEnvVars(value)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, value := range v {
			result[i] = interpolateEnvVars(value)
		}
		return result
	case string:
		return interpolateString(v)
	default:
		return v
	}
}

// interpolateString replaces ${VAR_NAME} with environment variable values.
func interpolateString(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")

		if envValue := os.Getenv(varName); envValue != "" {
			return envValue
		}

		// If not found, return original match
		return match
	})
}

// applyInterpolation applies the interpolated string values back to the
// Config struct.
func applyInterpolation(cfg *Config, interpolated map[string]interface{}) {
	if api, ok := interpolated["api"].(map[string]interface{}); ok {
		if baseURL, ok := api["base_url"].(string); ok {
			cfg.API.BaseURL = baseURL
		}
		if apiKey, ok := api["api_key"].(string); ok {
			cfg.API.APIKey = apiKey
		}
		if model, ok := api["model"].(string); ok {
			cfg.API.Model = model
		}
	}

	if cache, ok := interpolated["cache"].(map[string]interface{}); ok {
		if dir, ok := cache["dir"].(string); ok {
			cfg.Cache.Dir = dir
		}
	}

	if scan, ok := interpolated["scan"].(map[string]interface{}); ok {
		if outputDir, ok := scan["output_dir"].(string); ok {
			cfg.Scan.OutputDir = outputDir
		}
	}

	if logging, ok := interpolated["logging"].(map[string]interface{}); ok {
		if level, ok := logging["level"].(string); ok {
			cfg.Logging.Level = level
		}
		if format, ok := logging["format"].(string); ok {
			cfg.Logging.Format = format
		}
	}
}
