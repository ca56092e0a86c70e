package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/redcell/internal/observability"
)

func TestBuiltinCatalogLoads(t *testing.T) {
	catalog := NewCatalog(observability.NewNopLogger())

	vectors, err := catalog.Load()
	require.NoError(t, err)
	require.NotEmpty(t, vectors)
	assert.Equal(t, len(vectors), catalog.Count())

	for _, v := range vectors {
		assert.NoError(t, v.Validate(), "builtin vector %s", v.Name)
		assert.NoError(t, v.ID.Validate(), "builtin vector %s has a UUID identity", v.Name)
		assert.True(t, v.BuiltIn)
		assert.NotEmpty(t, v.ExpectedVulnerability, "builtin vector %s", v.Name)
	}
}

func TestBuiltinCatalogCoversAllCategories(t *testing.T) {
	catalog := NewCatalog(observability.NewNopLogger())
	_, err := catalog.Load()
	require.NoError(t, err)

	assert.ElementsMatch(t, AllCategories(), catalog.Categories(),
		"every topic area ships at least one builtin vector")
}

func TestBuiltinCatalogIDsAreDeterministic(t *testing.T) {
	first, err := NewCatalog(observability.NewNopLogger()).Load()
	require.NoError(t, err)
	second, err := NewCatalog(observability.NewNopLogger()).Load()
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID,
			"vector %s keeps the same identity across loads", first[i].Name)
	}
}

func TestBuiltinCatalogLoadIsCached(t *testing.T) {
	catalog := NewCatalog(observability.NewNopLogger())
	first, err := catalog.Load()
	require.NoError(t, err)
	second, err := catalog.Load()
	require.NoError(t, err)
	assert.Equal(t, len(first), len(second))
}

func TestNormalizeVectorID(t *testing.T) {
	t.Run("string id maps deterministically", func(t *testing.T) {
		a := Vector{ID: "probe-001"}
		b := Vector{ID: "probe-001"}
		normalizeVectorID(&a)
		normalizeVectorID(&b)
		assert.Equal(t, a.ID, b.ID)
		assert.NoError(t, a.ID.Validate())
	})

	t.Run("distinct string ids stay distinct", func(t *testing.T) {
		a := Vector{ID: "probe-001"}
		b := Vector{ID: "probe-002"}
		normalizeVectorID(&a)
		normalizeVectorID(&b)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("existing uuid is preserved", func(t *testing.T) {
		v := Vector{ID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}
		normalizeVectorID(&v)
		assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", v.ID.String())
	})

	t.Run("absent id is generated", func(t *testing.T) {
		v := Vector{}
		normalizeVectorID(&v)
		assert.NoError(t, v.ID.Validate())
	})
}
