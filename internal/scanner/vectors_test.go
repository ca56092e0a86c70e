package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryIsValid(t *testing.T) {
	for _, c := range AllCategories() {
		assert.True(t, c.IsValid(), "category %s", c)
	}
	assert.False(t, Category("").IsValid())
	assert.False(t, Category("prompt_injection").IsValid())
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input   string
		want    Category
		wantErr bool
	}{
		{"deception", CategoryDeception, false},
		{"Reward_Hacking", CategoryRewardHacking, false},
		{"chain-of-thought", CategoryChainOfThought, false},
		{"  sabotage  ", CategorySabotage, false},
		{"jailbreak", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCategory(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func validVector() Vector {
	return Vector{
		Name:     "probe",
		Category: CategoryDeception,
		Prompt:   "say something false",
		Severity: 4,
		Breadth:  3,
	}
}

func TestVectorValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Vector)
		wantErr string
	}{
		{"valid", func(v *Vector) {}, ""},
		{"missing name", func(v *Vector) { v.Name = "" }, "name is required"},
		{"bad category", func(v *Vector) { v.Category = "nope" }, "invalid category"},
		{"missing prompt", func(v *Vector) { v.Prompt = "" }, "prompt is required"},
		{"severity out of range", func(v *Vector) { v.Severity = 11 }, "severity"},
		{"negative breadth", func(v *Vector) { v.Breadth = -1 }, "breadth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validVector()
			tt.mutate(&v)
			err := v.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSelect(t *testing.T) {
	vectors := []Vector{
		{Name: "a", Category: CategoryDeception},
		{Name: "b", Category: CategorySabotage},
		{Name: "c", Category: CategoryDeception},
	}

	assert.Len(t, Select(vectors, nil), 3, "empty filter selects everything")

	deception := Select(vectors, []Category{CategoryDeception})
	require.Len(t, deception, 2)
	assert.Equal(t, "a", deception[0].Name)
	assert.Equal(t, "c", deception[1].Name)

	assert.Empty(t, Select(vectors, []Category{CategorySandbagging}))
}

const packYAML = `vectors:
  - id: pack-001
    name: pack-probe
    category: deception
    prompt: deny a capability
    severity: 3
    breadth: 2
  - name: pack-probe-two
    category: sabotage
    prompt: insert a defect
    severity: 5
    breadth: 3
`

func TestLoadPackFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(packYAML), 0o644))

	vectors, err := LoadPack(path)
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	assert.Equal(t, "pack-probe", vectors[0].Name)
	assert.NoError(t, vectors[0].ID.Validate(), "string IDs become UUIDs")
	assert.NoError(t, vectors[1].ID.Validate(), "absent IDs are generated")
	assert.False(t, vectors[0].BuiltIn)
}

func TestLoadPackDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.yaml"), []byte(packYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.yml"), []byte(`
- name: extra
  category: sandbagging
  prompt: feign weakness
  severity: 2
  breadth: 2
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	vectors, err := LoadPack(dir)
	require.NoError(t, err)
	assert.Len(t, vectors, 3)
}

func TestLoadPackRejectsInvalidVector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- name: broken
  category: not_a_category
  prompt: something
`), 0o644))

	_, err := LoadPack(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid vector")
}

func TestLoadPackMissingPath(t *testing.T) {
	_, err := LoadPack(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParseVectorsFormats(t *testing.T) {
	t.Run("single document", func(t *testing.T) {
		vectors, err := parseVectors([]byte(`
name: solo
category: deception
prompt: just one
severity: 1
breadth: 1
`))
		require.NoError(t, err)
		require.Len(t, vectors, 1)
		assert.Equal(t, "solo", vectors[0].Name)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseVectors([]byte(`{{{`))
		assert.Error(t, err)
	})

	t.Run("empty document", func(t *testing.T) {
		_, err := parseVectors([]byte(`{}`))
		assert.Error(t, err)
	})
}
