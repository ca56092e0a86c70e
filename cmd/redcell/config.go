package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/redcell/internal/types"
)

// configCmd groups configuration subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration the other commands would run with: file
values merged over defaults, with environment overrides applied and
secrets redacted.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a commented starter config to the resolved config path
(--config, $REDCELL_HOME, or ~/.redcell). Fails if the file already
exists.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	// Copy so redaction never touches the live config.
	shown := *appCfg
	if shown.API.APIKey != "" {
		shown.API.APIKey = "[REDACTED]"
	}

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	cmd.Printf("# config: %s\n", configPath(globalFlags))
	cmd.Print(string(data))
	return nil
}

// starterConfig is the template written by 'redcell config init'. Optional
// keys stay commented out so the compiled defaults apply; REDCELL_API_KEY
// is picked up from the environment without being named here.
const starterConfig = `api:
  base_url: http://localhost:8000/v1
  model: gpt-oss-20b
  temperature: 0.2
  max_tokens: 0                 # 0 = omit from payloads
  request_timeout_seconds: 120
  retry_attempts: 3
  retry_backoff_seconds: 1.0
  rate_limit_per_min: 60
  max_concurrent: 4
  # api_key: ${REDCELL_API_KEY} # uncomment to interpolate at load time;
  #                             # unset, the REDCELL_API_KEY env var is used

cache:
  enabled: true
  # dir: /path/to/cache         # default: <home>/cache

scan:
  workers: 4
  output_dir: findings
  max_findings: 0               # 0 = unlimited
  categories: []                # empty = all topic areas

logging:
  level: info                   # debug|info|warn|error
  format: text                  # text|json
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath(globalFlags)

	if _, err := os.Stat(path); err == nil {
		return types.NewError(types.CONFIG_LOAD_FAILED,
			fmt.Sprintf("config file already exists at %s", path))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	cmd.Printf("Wrote starter config to %s\n", path)
	cmd.Println("Set REDCELL_API_KEY in the environment (or a .env file) if the endpoint needs auth.")
	return nil
}
