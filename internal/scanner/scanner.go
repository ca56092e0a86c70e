package scanner

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zero-day-ai/redcell/internal/llm"
	"github.com/zero-day-ai/redcell/internal/observability"
	"github.com/zero-day-ai/redcell/internal/types"
)

// Dispatcher is the slice of the LLM client the runner needs.
type Dispatcher interface {
	Generate(ctx context.Context, req llm.GenerateRequest) (*llm.ResponseResult, error)
}

// OutcomeStatus classifies how one vector run ended.
type OutcomeStatus string

const (
	OutcomeVulnerable OutcomeStatus = "vulnerable"
	OutcomeClean      OutcomeStatus = "clean"
	OutcomeError      OutcomeStatus = "error"
	OutcomeSkipped    OutcomeStatus = "skipped"
)

// VectorOutcome pairs a vector with its run result. Error-status outcomes
// carry the failure message; skipped outcomes carry neither.
type VectorOutcome struct {
	Vector Vector        `json:"vector"`
	Status OutcomeStatus `json:"status"`
	Result *VectorResult `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// ScanReport summarizes a full run.
type ScanReport struct {
	RunID      types.ID        `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Outcomes   []VectorOutcome `json:"outcomes"`
	Tested     int             `json:"tested"`
	Vulnerable int             `json:"vulnerable"`
	Clean      int             `json:"clean"`
	Errored    int             `json:"errored"`
	Skipped    int             `json:"skipped"`
	Categories []Category      `json:"categories"`
}

// Options tunes a Scanner.
type Options struct {
	// Workers is the number of vectors probed concurrently.
	Workers int

	// MaxFindings stops issuing new probes once this many vulnerabilities
	// are confirmed. Zero means unlimited.
	MaxFindings int
}

// Scanner drives a vector set against a target endpoint and analyzes every
// response.
type Scanner struct {
	dispatcher  Dispatcher
	analyzer    *Analyzer
	logger      *slog.Logger
	metrics     *observability.MetricsCollector
	workers     int
	maxFindings int
}

// NewScanner creates a runner. A nil logger is replaced with a no-op one; a
// nil metrics collector records nothing.
func NewScanner(dispatcher Dispatcher, analyzer *Analyzer, logger *slog.Logger,
	metrics *observability.MetricsCollector, opts Options) *Scanner {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if analyzer == nil {
		analyzer = NewAnalyzer()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Scanner{
		dispatcher:  dispatcher,
		analyzer:    analyzer,
		logger:      logger,
		metrics:     metrics,
		workers:     workers,
		maxFindings: opts.MaxFindings,
	}
}

// Run probes every vector and returns the aggregated report. Individual
// vector failures are recorded as error outcomes and never abort the batch;
// only external cancellation cuts a run short, returning the partial report
// with a scan-aborted error.
func (s *Scanner) Run(ctx context.Context, vectors []Vector) (*ScanReport, error) {
	report := &ScanReport{
		RunID:     types.NewID(),
		StartedAt: time.Now().UTC(),
		Outcomes:  make([]VectorOutcome, len(vectors)),
	}

	s.logger.Info("starting scan",
		"run_id", report.RunID,
		"vectors", len(vectors),
		"workers", s.workers)

	var vulnerable atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range vectors {
		idx := i
		vector := vectors[i]
		g.Go(func() error {
			report.Outcomes[idx] = s.runVector(gctx, vector, &vulnerable)
			return nil
		})
	}
	// Worker funcs never return errors; failures live in the outcomes.
	_ = g.Wait()

	for _, outcome := range report.Outcomes {
		switch outcome.Status {
		case OutcomeVulnerable:
			report.Tested++
			report.Vulnerable++
		case OutcomeClean:
			report.Tested++
			report.Clean++
		case OutcomeError:
			report.Tested++
			report.Errored++
		case OutcomeSkipped:
			report.Skipped++
		}
	}
	report.Categories = categoriesOf(vectors)
	report.FinishedAt = time.Now().UTC()

	s.logger.Info("scan finished",
		"run_id", report.RunID,
		"tested", report.Tested,
		"vulnerable", report.Vulnerable,
		"errored", report.Errored,
		"skipped", report.Skipped)

	if err := ctx.Err(); err != nil {
		return report, types.WrapError(types.SCAN_ABORTED, "scan aborted before completion", err)
	}
	return report, nil
}

func (s *Scanner) runVector(ctx context.Context, v Vector, vulnerable *atomic.Int32) VectorOutcome {
	if ctx.Err() != nil {
		return VectorOutcome{Vector: v, Status: OutcomeSkipped}
	}
	if s.maxFindings > 0 && int(vulnerable.Load()) >= s.maxFindings {
		s.logger.Debug("finding cap reached, skipping vector", "vector", v.Name)
		return VectorOutcome{Vector: v, Status: OutcomeSkipped}
	}

	s.logger.Info("testing vector",
		"vector", v.Name,
		"category", v.Category)

	resp, err := s.dispatcher.Generate(ctx, llm.GenerateRequest{
		Prompt: v.Prompt,
		System: v.System,
	})
	if err != nil {
		s.logger.Warn("vector dispatch failed",
			"vector", v.Name,
			"error", err)
		s.metrics.RecordVectorResult("error")
		return VectorOutcome{Vector: v, Status: OutcomeError, Error: err.Error()}
	}

	result := s.analyzer.Analyze(v, resp.OutputText)
	if result.IsVulnerable {
		vulnerable.Add(1)
		s.metrics.RecordVectorResult("vulnerable")
		s.logger.Info("vulnerability detected",
			"vector", v.Name,
			"category", v.Category,
			"confidence", result.Confidence)
		return VectorOutcome{Vector: v, Status: OutcomeVulnerable, Result: &result}
	}

	s.metrics.RecordVectorResult("clean")
	return VectorOutcome{Vector: v, Status: OutcomeClean, Result: &result}
}

// categoriesOf returns the distinct categories present, in catalog order.
func categoriesOf(vectors []Vector) []Category {
	present := make(map[Category]bool, len(vectors))
	for _, v := range vectors {
		present[v.Category] = true
	}
	categories := make([]Category, 0, len(present))
	for _, c := range AllCategories() {
		if present[c] {
			categories = append(categories, c)
		}
	}
	return categories
}
