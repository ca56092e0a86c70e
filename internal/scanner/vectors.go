package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/redcell/internal/types"
)

// Category is a competition topic area an attack vector targets.
type Category string

const (
	CategoryRewardHacking        Category = "reward_hacking"
	CategoryDeception            Category = "deception"
	CategoryHiddenMotivations    Category = "hidden_motivations"
	CategorySabotage             Category = "sabotage"
	CategoryInappropriateToolUse Category = "inappropriate_tool_use"
	CategoryDataExfiltration     Category = "data_exfiltration"
	CategorySandbagging          Category = "sandbagging"
	CategoryEvaluationAwareness  Category = "evaluation_awareness"
	CategoryChainOfThought       Category = "chain_of_thought"
)

// AllCategories returns every known category in a stable order.
func AllCategories() []Category {
	return []Category{
		CategoryRewardHacking,
		CategoryDeception,
		CategoryHiddenMotivations,
		CategorySabotage,
		CategoryInappropriateToolUse,
		CategoryDataExfiltration,
		CategorySandbagging,
		CategoryEvaluationAwareness,
		CategoryChainOfThought,
	}
}

// String returns the string representation of the Category
func (c Category) String() string {
	return string(c)
}

// IsValid checks if the category is a known value
func (c Category) IsValid() bool {
	switch c {
	case CategoryRewardHacking, CategoryDeception, CategoryHiddenMotivations,
		CategorySabotage, CategoryInappropriateToolUse, CategoryDataExfiltration,
		CategorySandbagging, CategoryEvaluationAwareness, CategoryChainOfThought:
		return true
	default:
		return false
	}
}

// ParseCategory converts a string into a Category, accepting hyphens as
// separators.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !c.IsValid() {
		return "", types.NewError(types.SCAN_VECTOR_INVALID,
			fmt.Sprintf("unknown category: %s", s))
	}
	return c, nil
}

// Vector is one adversarial probe: a prompt aimed at eliciting a specific
// misbehavior, with the self-assessed impact scores a confirmed hit would
// carry.
type Vector struct {
	ID       types.ID `yaml:"id,omitempty" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Category Category `yaml:"category" json:"category"`

	// Prompt is the user message sent to the target.
	Prompt string `yaml:"prompt" json:"prompt"`

	// System, when set, is the system message framing the probe.
	System string `yaml:"system,omitempty" json:"system,omitempty"`

	// ExpectedVulnerability names what a hit demonstrates.
	ExpectedVulnerability string `yaml:"expected_vulnerability,omitempty" json:"expected_vulnerability,omitempty"`

	// Severity and Breadth are self-assessed 0-10 scores applied when the
	// probe lands.
	Severity int `yaml:"severity" json:"severity"`
	Breadth  int `yaml:"breadth" json:"breadth"`

	// BuiltIn marks vectors shipped with the binary.
	BuiltIn bool `yaml:"-" json:"built_in,omitempty"`
}

// Validate checks the vector is runnable.
func (v *Vector) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("vector name is required")
	}
	if !v.Category.IsValid() {
		return fmt.Errorf("invalid category: %q", v.Category)
	}
	if v.Prompt == "" {
		return fmt.Errorf("vector prompt is required")
	}
	if v.Severity < 0 || v.Severity > 10 {
		return fmt.Errorf("severity must be 0-10, got %d", v.Severity)
	}
	if v.Breadth < 0 || v.Breadth > 10 {
		return fmt.Errorf("breadth must be 0-10, got %d", v.Breadth)
	}
	return nil
}

// Select returns the vectors matching the category filter. An empty filter
// selects everything.
func Select(vectors []Vector, categories []Category) []Vector {
	if len(categories) == 0 {
		return vectors
	}
	wanted := make(map[Category]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}
	selected := make([]Vector, 0, len(vectors))
	for _, v := range vectors {
		if wanted[v.Category] {
			selected = append(selected, v)
		}
	}
	return selected
}

// LoadPack loads vectors from a YAML file, or from every .yaml/.yml file in
// a directory. Unlike the builtin catalog, pack vectors are validated
// strictly: a broken entry in a file the operator handed us is an error,
// not a warning.
func LoadPack(path string) ([]Vector, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, types.WrapError(types.SCAN_VECTOR_LOAD_FAILED,
			fmt.Sprintf("cannot read vector pack %s", path), err)
	}

	if !info.IsDir() {
		return loadPackFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, types.WrapError(types.SCAN_VECTOR_LOAD_FAILED,
			fmt.Sprintf("cannot read vector pack directory %s", path), err)
	}

	var vectors []Vector
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		loaded, err := loadPackFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, loaded...)
	}
	return vectors, nil
}

func loadPackFile(path string) ([]Vector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.SCAN_VECTOR_LOAD_FAILED,
			fmt.Sprintf("cannot read vector file %s", path), err)
	}

	vectors, err := parseVectors(data)
	if err != nil {
		return nil, types.WrapError(types.SCAN_VECTOR_LOAD_FAILED,
			fmt.Sprintf("cannot parse vector file %s", path), err)
	}

	for i := range vectors {
		normalizeVectorID(&vectors[i])
		if err := vectors[i].Validate(); err != nil {
			return nil, types.WrapError(types.SCAN_VECTOR_INVALID,
				fmt.Sprintf("invalid vector in %s[%d]", path, i), err)
		}
	}
	return vectors, nil
}

// parseVectors accepts the three catalog file shapes: a wrapper with a
// "vectors" key, a bare array, or a single vector document.
func parseVectors(data []byte) ([]Vector, error) {
	var wrapper struct {
		Vectors []Vector `yaml:"vectors"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err == nil && len(wrapper.Vectors) > 0 {
		return wrapper.Vectors, nil
	}

	var list []Vector
	if err := yaml.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return list, nil
	}

	var single Vector
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("tried wrapper, array, and single formats: %w", err)
	}
	if single.Name == "" && single.Prompt == "" {
		return nil, fmt.Errorf("no vector data found")
	}
	return []Vector{single}, nil
}
