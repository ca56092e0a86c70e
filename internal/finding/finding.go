// Package finding renders scan outcomes into competition-format finding
// documents and writes them to disk.
package finding

import (
	"fmt"
	"strings"
	"time"

	"github.com/zero-day-ai/redcell/internal/scanner"
	"github.com/zero-day-ai/redcell/internal/types"
)

// SchemaVersion is the findings document schema this package emits.
const SchemaVersion = "1.0.0"

// ModelInfo identifies the probed model in a finding document.
type ModelInfo struct {
	Name       string          `json:"name"`
	Version    string          `json:"version,omitempty"`
	Provider   string          `json:"provider"`
	Parameters ModelParameters `json:"parameters"`
}

// ModelParameters records the sampling settings the finding was produced
// under.
type ModelParameters struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens,omitempty"`
}

// Environment describes where the probed model was running.
type Environment struct {
	Endpoint string `json:"endpoint"`
}

// IssueSummary is the narrative core of a finding.
type IssueSummary struct {
	Title            string `json:"title"`
	TopicArea        string `json:"topic_area"`
	Overview         string `json:"overview"`
	DesiredBehavior  string `json:"desired_behavior"`
	ObservedBehavior string `json:"observed_behavior"`

	// Severity and breadth are 0-10 self-assessed scores with their
	// justifications.
	SelfAssessedSeverity              int    `json:"self_assessed_severity"`
	SelfAssessedSeverityJustification string `json:"self_assessed_severity_justification"`
	SelfAssessedBreadth               int    `json:"self_assessed_breadth"`
	SelfAssessedBreadthJustification  string `json:"self_assessed_breadth_justification"`
}

// Finding is one vulnerability report in the competition schema. ID and
// CreatedAt are harness-internal and stay out of the published document.
type Finding struct {
	SchemaVersion               string       `json:"schema_version"`
	IssueTitle                  string       `json:"issue_title"`
	Model                       ModelInfo    `json:"model"`
	Environment                 Environment  `json:"environment"`
	IssueSummary                IssueSummary `json:"issue_summary"`
	HarmonyResponseWalkthroughs []string     `json:"harmony_response_walkthroughs"`
	StepsToReproduce            []string     `json:"steps_to_reproduce"`
	Notes                       string       `json:"notes,omitempty"`

	ID        types.ID  `json:"-"`
	CreatedAt time.Time `json:"-"`
}

// New builds a finding document from a confirmed vector result.
func New(vector scanner.Vector, result scanner.VectorResult, model ModelInfo, endpoint string) *Finding {
	observed := result.Description
	if len(result.Evidence) > 0 {
		observed = fmt.Sprintf("%s. Evidence: %s", result.Description,
			strings.Join(result.Evidence, "; "))
	}

	return &Finding{
		SchemaVersion: SchemaVersion,
		IssueTitle:    fmt.Sprintf("%s: %s", topicTitle(vector.Category), vector.Name),
		Model:         model,
		Environment:   Environment{Endpoint: endpoint},
		IssueSummary: IssueSummary{
			Title:            vector.Name,
			TopicArea:        vector.Category.String(),
			Overview:         overviewText(vector, result),
			DesiredBehavior:  desiredText(vector),
			ObservedBehavior: observed,
			SelfAssessedSeverity: result.SeverityScore,
			SelfAssessedSeverityJustification: fmt.Sprintf(
				"Scored %d/10 for the %s topic area based on the vector's impact profile and a detection confidence of %.2f.",
				result.SeverityScore, vector.Category, result.Confidence),
			SelfAssessedBreadth: result.BreadthScore,
			SelfAssessedBreadthJustification: fmt.Sprintf(
				"Scored %d/10: the probe uses no user-specific context, so the behavior plausibly reproduces across deployments of this model.",
				result.BreadthScore),
		},
		HarmonyResponseWalkthroughs: []string{
			HarmonyWalkthrough(vector.System, vector.Prompt, result.ModelResponse),
		},
		StepsToReproduce: result.ReproductionSteps,
		Notes: fmt.Sprintf(
			"Produced by automated heuristic analysis (confidence %.2f). Re-run the reproduction steps to confirm by hand.",
			result.Confidence),
		ID:        types.NewID(),
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks the document is publishable.
func (f *Finding) Validate() error {
	if f.IssueTitle == "" {
		return types.NewError(types.FINDING_INVALID, "issue title is required")
	}
	if f.IssueSummary.TopicArea == "" {
		return types.NewError(types.FINDING_INVALID, "topic area is required")
	}
	if f.IssueSummary.SelfAssessedSeverity < 0 || f.IssueSummary.SelfAssessedSeverity > 10 {
		return types.NewError(types.FINDING_INVALID,
			fmt.Sprintf("severity must be 0-10, got %d", f.IssueSummary.SelfAssessedSeverity))
	}
	if f.IssueSummary.SelfAssessedBreadth < 0 || f.IssueSummary.SelfAssessedBreadth > 10 {
		return types.NewError(types.FINDING_INVALID,
			fmt.Sprintf("breadth must be 0-10, got %d", f.IssueSummary.SelfAssessedBreadth))
	}
	if len(f.HarmonyResponseWalkthroughs) == 0 {
		return types.NewError(types.FINDING_INVALID, "at least one walkthrough is required")
	}
	return nil
}

// HarmonyWalkthrough renders one exchange in the harmony conversation
// format. An empty system prompt is omitted.
func HarmonyWalkthrough(system, user, assistant string) string {
	var b strings.Builder
	if system != "" {
		writeHarmonyTurn(&b, "system", system)
	}
	writeHarmonyTurn(&b, "user", user)
	writeHarmonyTurn(&b, "assistant", assistant)
	return b.String()
}

func writeHarmonyTurn(b *strings.Builder, role, content string) {
	b.WriteString("<|start|>")
	b.WriteString(role)
	b.WriteString("<|message|>")
	b.WriteString(content)
	b.WriteString("<|end|>")
}

func topicTitle(c scanner.Category) string {
	words := strings.Split(c.String(), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func overviewText(vector scanner.Vector, result scanner.VectorResult) string {
	if vector.ExpectedVulnerability != "" {
		return fmt.Sprintf("The %q probe elicited the behavior it targets: %s",
			vector.Name, vector.ExpectedVulnerability)
	}
	return fmt.Sprintf("The %q probe elicited the targeted behavior: %s",
		vector.Name, result.Description)
}

func desiredText(vector scanner.Vector) string {
	return fmt.Sprintf(
		"The model should decline or safely handle the probe without exhibiting %s behavior.",
		strings.ReplaceAll(vector.Category.String(), "_", " "))
}
