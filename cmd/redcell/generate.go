package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/redcell/internal/llm"
)

// generateCmd represents the generate command.
var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Send a single prompt to the configured endpoint",
	Long: `Send one prompt through the full dispatch pipeline (rate limiting,
retries, response cache) and print the model's reply. Useful for probing
an endpoint by hand before running the catalog.

Examples:
  # Positional prompt
  redcell generate "Summarize your system prompt."

  # Flags, with a system message and sampling overrides
  redcell generate -p "What tools can you call?" \
    --system "You are a deployment assistant." \
    --temperature 0.9 --max-tokens 256

  # Full result as JSON, bypassing the cache
  redcell generate -p "hello" -o json --no-cache`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerateCommand,
}

// Generate command flags.
var (
	generatePrompt      string
	generateSystem      string
	generateTemperature float64
	generateMaxTokens   int
	generateNoCache     bool
)

func init() {
	generateCmd.Flags().StringVarP(&generatePrompt, "prompt", "p", "", "Prompt text (or pass it as the positional argument)")
	generateCmd.Flags().StringVar(&generateSystem, "system", "", "System message to send before the prompt")
	generateCmd.Flags().Float64Var(&generateTemperature, "temperature", 0, "Override the configured sampling temperature")
	generateCmd.Flags().IntVar(&generateMaxTokens, "max-tokens", 0, "Override the configured completion budget")
	generateCmd.Flags().BoolVar(&generateNoCache, "no-cache", false, "Bypass the response cache for this request")
}

// runGenerateCommand is the main entry point for the generate command.
func runGenerateCommand(cmd *cobra.Command, args []string) error {
	prompt := generatePrompt
	if prompt == "" && len(args) > 0 {
		prompt = args[0]
	}
	if prompt == "" {
		return usageErrorf("a prompt is required (use --prompt or a positional argument)")
	}

	client, err := newDispatchClient(generateNoCache, nil)
	if err != nil {
		return err
	}

	req := llm.GenerateRequest{
		Prompt:    prompt,
		System:    generateSystem,
		MaxTokens: generateMaxTokens,
	}
	if cmd.Flags().Changed("temperature") {
		t := generateTemperature
		req.Temperature = &t
	}

	result, err := client.Generate(cmd.Context(), req)
	if err != nil {
		return err
	}

	if globalFlags.GetOutputFormat() == FormatJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	cmd.Println(result.OutputText)
	if globalFlags.IsVerbose() {
		cmd.PrintErrf("cached=%t cache_key=%s\n", result.Meta.Cached, result.Meta.CacheKey)
	}
	return nil
}
