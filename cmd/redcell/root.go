package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/redcell/internal/config"
	"github.com/zero-day-ai/redcell/internal/llm"
	"github.com/zero-day-ai/redcell/internal/observability"
	"github.com/zero-day-ai/redcell/internal/types"
)

// version is stamped at build time via -ldflags.
var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "redcell",
	Short: "redcell - red-team scan harness for OpenAI-compatible LLM endpoints",
	Long: `redcell probes an OpenAI-compatible chat completion endpoint with a
catalog of red-team attack vectors, analyzes the responses for unsafe
behavior, and writes competition-format finding documents.

Point it at an endpoint in ~/.redcell/config.yaml (or via REDCELL_* env
vars) and run 'redcell scan'. Use 'redcell generate' to probe by hand.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Loaded configuration and logger, set by loadConfig before any subcommand
// that needs them runs.
var (
	appCfg    *config.Config
	appLogger *slog.Logger
)

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

// loadConfig is called before any command runs to load configuration.
func loadConfig(cmd *cobra.Command, args []string) error {
	flags, err := ParseGlobalFlags(cmd)
	if err != nil {
		return err
	}

	// Commands that create or describe configuration run without one.
	switch cmd.Name() {
	case "init", "version", "help", "completion":
		return nil
	}

	loader := config.NewConfigLoader(config.NewValidator())
	cfg, err := loader.LoadWithDefaults(configPath(flags))
	if err != nil {
		return types.WrapError(types.CONFIG_LOAD_FAILED, "failed to load configuration", err)
	}

	appCfg = cfg
	appLogger = buildLogger(flags, cfg.Logging)
	return nil
}

// configPath resolves the config file location from flags, environment,
// and defaults, in that order.
func configPath(flags *GlobalFlags) string {
	if flags.ConfigFile != "" {
		return flags.ConfigFile
	}

	home := flags.HomeDir
	if home == "" {
		home = os.Getenv("REDCELL_HOME")
	}
	if home == "" {
		home = config.DefaultHomeDir()
	}
	return config.DefaultConfigPath(home)
}

// buildLogger derives the command logger from config, with --verbose and
// --quiet overriding the configured level.
func buildLogger(flags *GlobalFlags, cfg config.LoggingConfig) *slog.Logger {
	level := cfg.Level
	if flags.IsVerbose() {
		level = "debug"
	}
	if flags.IsQuiet() {
		level = "error"
	}
	return observability.NewLogger(os.Stderr, level, cfg.Format)
}

// newDispatchClient builds the dispatch client from the loaded config.
// Shared by scan and generate.
func newDispatchClient(noCache bool, collector *observability.MetricsCollector) (*llm.Client, error) {
	cfg := appCfg

	clientCfg := llm.ClientConfig{
		BaseURL:         cfg.API.BaseURL,
		APIKey:          cfg.API.EffectiveAPIKey(),
		Model:           cfg.API.Model,
		Temperature:     cfg.API.Temperature,
		MaxTokens:       cfg.API.MaxTokens,
		RequestTimeout:  cfg.API.RequestTimeout(),
		RetryAttempts:   cfg.API.RetryAttempts,
		RetryBackoff:    cfg.API.RetryBackoff(),
		RateLimitPerMin: cfg.API.RateLimitPerMin,
		MaxConcurrent:   cfg.API.MaxConcurrent,
	}

	opts := []llm.Option{
		llm.WithLogger(appLogger),
		llm.WithMetrics(collector),
	}

	if cfg.Cache.Enabled && !noCache {
		cache, err := llm.NewDiskCache(cfg.Cache.Dir, appLogger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, llm.WithCache(cache))
	}

	return llm.NewClient(clientCfg, opts...), nil
}

func init() {
	RegisterGlobalFlags(rootCmd)

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("redcell v%s\n", version)
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for redcell.

To load completions:

Bash:

  $ source <(redcell completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ redcell completion bash > /etc/bash_completion.d/redcell
  # macOS:
  $ redcell completion bash > $(brew --prefix)/etc/bash_completion.d/redcell

Zsh:

  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:

  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ redcell completion zsh > "${fpath[1]}/_redcell"

  # You will need to start a new shell for this setup to take effect.

Fish:

  $ redcell completion fish | source

  # To load completions for each session, execute once:
  $ redcell completion fish > ~/.config/fish/completions/redcell.fish

PowerShell:

  PS> redcell completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> redcell completion powershell > redcell.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			_ = cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			_ = cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			_ = cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			_ = cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
	},
}
