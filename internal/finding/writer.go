package finding

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/zero-day-ai/redcell/internal/observability"
	"github.com/zero-day-ai/redcell/internal/scanner"
	"github.com/zero-day-ai/redcell/internal/types"
)

// Summary is the run-level report written alongside the findings.
type Summary struct {
	RunID                types.ID  `json:"run_id"`
	TotalScenariosTested int       `json:"total_scenarios_tested"`
	VulnerabilitiesFound int       `json:"vulnerabilities_found"`
	CategoriesTested     []string  `json:"categories_tested"`
	Timestamp            time.Time `json:"timestamp"`
}

// Writer persists finding documents and the scan summary as flat JSON files
// under a single output directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a writer rooted at dir, creating the directory if
// needed.
func NewWriter(dir string, logger *slog.Logger) (*Writer, error) {
	if dir == "" {
		return nil, types.NewError(types.FINDING_WRITE_FAILED, "output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, types.WrapError(types.FINDING_WRITE_FAILED,
			fmt.Sprintf("failed to create output directory %s", dir), err)
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Writer{dir: dir, logger: logger}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteFinding validates and writes one finding as
// findings_<n>_<topic_area>.json, returning the file path.
func (w *Writer) WriteFinding(n int, f *Finding) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}

	path := filepath.Join(w.dir,
		fmt.Sprintf("findings_%d_%s.json", n, f.IssueSummary.TopicArea))
	if err := w.writeJSON(path, f); err != nil {
		return "", err
	}

	w.logger.Info("finding written",
		"path", path,
		"topic_area", f.IssueSummary.TopicArea,
		"severity", f.IssueSummary.SelfAssessedSeverity)
	return path, nil
}

// WriteSummary writes the run summary as scan_summary.json, returning the
// file path.
func (w *Writer) WriteSummary(s *Summary) (string, error) {
	path := filepath.Join(w.dir, "scan_summary.json")
	if err := w.writeJSON(path, s); err != nil {
		return "", err
	}
	w.logger.Info("scan summary written", "path", path)
	return path, nil
}

// WriteReport renders every vulnerable outcome in the report as a numbered
// finding document, writes the summary, and returns it with the finding
// file paths.
func (w *Writer) WriteReport(report *scanner.ScanReport, model ModelInfo, endpoint string) (*Summary, []string, error) {
	var paths []string
	n := 0
	for _, outcome := range report.Outcomes {
		if outcome.Status != scanner.OutcomeVulnerable || outcome.Result == nil {
			continue
		}
		n++
		f := New(outcome.Vector, *outcome.Result, model, endpoint)
		path, err := w.WriteFinding(n, f)
		if err != nil {
			return nil, paths, err
		}
		paths = append(paths, path)
	}

	categories := make([]string, 0, len(report.Categories))
	for _, c := range report.Categories {
		categories = append(categories, c.String())
	}

	summary := &Summary{
		RunID:                report.RunID,
		TotalScenariosTested: report.Tested,
		VulnerabilitiesFound: n,
		CategoriesTested:     categories,
		Timestamp:            time.Now().UTC(),
	}
	if _, err := w.WriteSummary(summary); err != nil {
		return nil, paths, err
	}
	return summary, paths, nil
}

func (w *Writer) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return types.WrapError(types.FINDING_WRITE_FAILED,
			fmt.Sprintf("failed to serialize %s", filepath.Base(path)), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return types.WrapError(types.FINDING_WRITE_FAILED,
			fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}
