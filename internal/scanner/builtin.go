// Package scanner owns the attack-vector catalog and the scan runner.
//
// The builtin catalog is YAML embedded in the binary at compile time. Files
// may hold a single vector, an array of vectors, or a wrapper with a
// "vectors:" key. String IDs are converted to deterministic UUIDs with
// UUID v5, so the same vector keeps the same identity across runs and
// machines. Invalid builtin entries are skipped with a warning rather than
// failing the load.
package scanner

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/zero-day-ai/redcell/internal/types"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// builtinNamespace seeds UUID v5 generation for vectors declared with plain
// string IDs.
var builtinNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// Catalog loads and caches the builtin vector set.
type Catalog interface {
	// Load parses every embedded vector file and returns the vectors.
	Load() ([]Vector, error)

	// Categories returns the categories represented in the catalog.
	Categories() []Category

	// Count returns the number of loaded vectors.
	Count() int
}

type builtinCatalog struct {
	logger     *slog.Logger
	vectors    []Vector
	categories map[Category]bool
	loaded     bool
	skipped    int
}

// NewCatalog creates the builtin vector catalog. A nil logger falls back to
// the process default so skip warnings stay visible.
func NewCatalog(logger *slog.Logger) Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &builtinCatalog{
		logger:     logger,
		vectors:    make([]Vector, 0),
		categories: make(map[Category]bool),
	}
}

// Load parses all embedded YAML files and returns the vectors
func (c *builtinCatalog) Load() ([]Vector, error) {
	if c.loaded {
		return c.vectors, nil
	}

	err := fs.WalkDir(builtinFS, "builtin", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error walking builtin directory: %w", err)
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		data, err := fs.ReadFile(builtinFS, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		vectors, err := parseVectors(data)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		for i := range vectors {
			if err := c.add(&vectors[i]); err != nil {
				c.logger.Warn("skipping invalid builtin vector",
					"source", fmt.Sprintf("%s[%d]", path, i),
					"error", err)
				c.skipped++
			}
		}
		return nil
	})
	if err != nil {
		return nil, types.WrapError(types.SCAN_VECTOR_LOAD_FAILED,
			"failed to load builtin vectors", err)
	}

	if c.skipped > 0 {
		c.logger.Warn("builtin catalog loaded with skips",
			"loaded", len(c.vectors),
			"skipped", c.skipped)
	}

	c.loaded = true
	return c.vectors, nil
}

// add normalizes, validates, and records one builtin vector.
func (c *builtinCatalog) add(v *Vector) error {
	normalizeVectorID(v)
	v.BuiltIn = true

	if err := v.Validate(); err != nil {
		return err
	}

	c.vectors = append(c.vectors, *v)
	c.categories[v.Category] = true
	return nil
}

// Categories returns all categories represented in the catalog
func (c *builtinCatalog) Categories() []Category {
	if !c.loaded {
		_, _ = c.Load()
	}
	categories := make([]Category, 0, len(c.categories))
	for _, category := range AllCategories() {
		if c.categories[category] {
			categories = append(categories, category)
		}
	}
	return categories
}

// Count returns the total number of builtin vectors
func (c *builtinCatalog) Count() int {
	if !c.loaded {
		_, _ = c.Load()
	}
	return len(c.vectors)
}

// normalizeVectorID gives a vector a stable UUID identity: string IDs map
// deterministically through UUID v5, absent IDs get a fresh UUID.
func normalizeVectorID(v *Vector) {
	if v.ID == "" {
		v.ID = types.NewID()
		return
	}
	if err := v.ID.Validate(); err != nil {
		v.ID = types.ID(uuid.NewSHA1(builtinNamespace, []byte(v.ID)).String())
	}
}

// LoadBuiltinVectors loads the embedded catalog. This is the primary entry
// point for callers that do not need Catalog's bookkeeping.
func LoadBuiltinVectors(logger *slog.Logger) ([]Vector, error) {
	return NewCatalog(logger).Load()
}
