package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/redcell/internal/finding"
	"github.com/zero-day-ai/redcell/internal/observability"
	"github.com/zero-day-ai/redcell/internal/scanner"
)

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the attack vector catalog against the configured endpoint",
	Long: `Run red-team attack vectors against the configured chat completion
endpoint, analyze every response, and write competition-format finding
documents plus a scan summary to the output directory.

The builtin catalog covers all topic areas. Restrict it with --category,
or add your own vectors from a YAML pack with --vectors.

Examples:
  # Full catalog
  redcell scan

  # Only two topic areas, eight vectors in flight
  redcell scan --category deception --category sabotage --workers 8

  # Add a custom pack and stop after the first confirmed finding
  redcell scan --vectors ./packs/extra.yaml --max-findings 1

  # Bypass the response cache and expose Prometheus metrics
  redcell scan --no-cache --metrics-addr :9310`,
	Args: cobra.NoArgs,
	RunE: runScanCommand,
}

// Scan command flags. Numeric flags default to sentinel values so an unset
// flag falls back to the config file.
var (
	scanCategories  []string
	scanVectorsPath string
	scanOutputDir   string
	scanWorkers     int
	scanMaxFindings int
	scanNoCache     bool
	scanMetricsAddr string
)

func init() {
	scanCmd.Flags().StringArrayVar(&scanCategories, "category", nil, "Restrict the scan to a topic area (repeatable)")
	scanCmd.Flags().StringVar(&scanVectorsPath, "vectors", "", "Additional vector pack (YAML file or directory)")
	scanCmd.Flags().StringVar(&scanOutputDir, "output-dir", "", "Directory for findings and summary (default from config)")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0, "Number of vectors probed concurrently (default from config)")
	scanCmd.Flags().IntVar(&scanMaxFindings, "max-findings", -1, "Stop after N vulnerabilities, 0 = unlimited (default from config)")
	scanCmd.Flags().BoolVar(&scanNoCache, "no-cache", false, "Bypass the response cache for this run")
	scanCmd.Flags().StringVar(&scanMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address for the duration of the scan")
}

// runScanCommand is the main entry point for the scan command.
func runScanCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := appLogger

	vectors, err := collectVectors()
	if err != nil {
		return err
	}

	var collector *observability.MetricsCollector
	if scanMetricsAddr != "" {
		collector = observability.NewMetricsCollector()
		stop := serveMetrics(scanMetricsAddr, logger)
		defer stop()
	}

	client, err := newDispatchClient(scanNoCache, collector)
	if err != nil {
		return err
	}

	workers := appCfg.Scan.Workers
	if scanWorkers > 0 {
		workers = scanWorkers
	}
	maxFindings := appCfg.Scan.MaxFindings
	if scanMaxFindings >= 0 {
		maxFindings = scanMaxFindings
	}
	outputDir := appCfg.Scan.OutputDir
	if scanOutputDir != "" {
		outputDir = scanOutputDir
	}

	sc := scanner.NewScanner(client, scanner.NewAnalyzer(), logger, collector, scanner.Options{
		Workers:     workers,
		MaxFindings: maxFindings,
	})

	logger.Info("scan configured",
		"vectors", len(vectors),
		"workers", workers,
		"endpoint", appCfg.API.BaseURL,
		"model", appCfg.API.Model)

	report, runErr := sc.Run(ctx, vectors)
	if report == nil {
		return runErr
	}

	writer, err := finding.NewWriter(outputDir, logger)
	if err != nil {
		return err
	}

	model := finding.ModelInfo{
		Name:     appCfg.API.Model,
		Provider: "openai-compatible",
		Parameters: finding.ModelParameters{
			Temperature:     appCfg.API.Temperature,
			MaxOutputTokens: appCfg.API.MaxTokens,
		},
	}

	summary, paths, err := writer.WriteReport(report, model, appCfg.API.BaseURL)
	if err != nil {
		return err
	}

	if globalFlags.GetOutputFormat() == FormatJSON {
		if err := printScanJSON(cmd, report, summary, paths); err != nil {
			return err
		}
	} else {
		printScanText(cmd, report, summary, paths, writer.Dir())
	}

	// An aborted run still wrote whatever completed; surface the abort after
	// the partial results.
	return runErr
}

// collectVectors loads the builtin catalog plus any --vectors pack and
// applies the category filter.
func collectVectors() ([]scanner.Vector, error) {
	catalog := scanner.NewCatalog(appLogger)
	vectors, err := catalog.Load()
	if err != nil {
		return nil, err
	}

	if scanVectorsPath != "" {
		pack, err := scanner.LoadPack(scanVectorsPath)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, pack...)
	}

	names := scanCategories
	if len(names) == 0 {
		names = appCfg.Scan.Categories
	}
	categories := make([]scanner.Category, 0, len(names))
	for _, name := range names {
		c, err := scanner.ParseCategory(name)
		if err != nil {
			return nil, usageErrorf("invalid --category %q (choose from: %s)",
				name, categoryNames())
		}
		categories = append(categories, c)
	}

	vectors = scanner.Select(vectors, categories)
	if len(vectors) == 0 {
		return nil, usageErrorf("no vectors selected (categories: %s)", strings.Join(names, ", "))
	}
	return vectors, nil
}

func categoryNames() string {
	all := scanner.AllCategories()
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = c.String()
	}
	return strings.Join(names, ", ")
}

// serveMetrics exposes /metrics on addr until the returned stop function is
// called.
func serveMetrics(addr string, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

// printScanJSON emits the full machine-readable scan result.
func printScanJSON(cmd *cobra.Command, report *scanner.ScanReport, summary *finding.Summary, paths []string) error {
	out := struct {
		Summary       *finding.Summary    `json:"summary"`
		FindingsFiles []string            `json:"findings_files"`
		Report        *scanner.ScanReport `json:"report"`
	}{
		Summary:       summary,
		FindingsFiles: paths,
		Report:        report,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// printScanText emits the human-readable scan report.
func printScanText(cmd *cobra.Command, report *scanner.ScanReport, summary *finding.Summary, paths []string, outputDir string) {
	if globalFlags.IsQuiet() {
		for _, p := range paths {
			cmd.Println(p)
		}
		return
	}

	duration := report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)

	cmd.Println()
	cmd.Println("Scan Report")
	cmd.Println(strings.Repeat("=", 60))
	cmd.Printf("Run ID:       %s\n", report.RunID)
	cmd.Printf("Duration:     %s\n", duration)
	cmd.Printf("Tested:       %d\n", report.Tested)
	cmd.Printf("Vulnerable:   %d\n", report.Vulnerable)
	cmd.Printf("Clean:        %d\n", report.Clean)
	if report.Errored > 0 {
		cmd.Printf("Errored:      %d\n", report.Errored)
	}
	if report.Skipped > 0 {
		cmd.Printf("Skipped:      %d\n", report.Skipped)
	}
	cmd.Printf("Categories:   %s\n", strings.Join(summary.CategoriesTested, ", "))
	cmd.Println()

	for _, outcome := range report.Outcomes {
		switch outcome.Status {
		case scanner.OutcomeVulnerable:
			cmd.Printf("  [VULN]  %-40s %s (confidence %.2f)\n",
				outcome.Vector.Name, outcome.Vector.Category, outcome.Result.Confidence)
		case scanner.OutcomeError:
			cmd.Printf("  [ERR]   %-40s %s\n", outcome.Vector.Name, outcome.Error)
		default:
			if globalFlags.IsVerbose() {
				cmd.Printf("  [%s] %-40s %s\n",
					strings.ToUpper(string(outcome.Status)), outcome.Vector.Name, outcome.Vector.Category)
			}
		}
	}

	cmd.Println()
	if len(paths) == 0 {
		cmd.Println("No findings. Summary written to", outputDir)
		return
	}
	cmd.Printf("%d finding(s) written to %s:\n", len(paths), outputDir)
	for _, p := range paths {
		cmd.Printf("  %s\n", p)
	}
}
