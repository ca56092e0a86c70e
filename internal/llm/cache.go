package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/zero-day-ai/redcell/internal/observability"
)

// Cache stores dispatch results keyed by request fingerprint. Implementations
// must treat every failure as a miss: a broken cache may never fail a
// dispatch, only forfeit its shortcut. Stored results are read-only to
// callers.
type Cache interface {
	Get(key string) (*ResponseResult, bool)
	Put(key string, result *ResponseResult)
}

// Fingerprint derives the cache key for a request payload: a SHA-256 over
// the model name concatenated with the canonical JSON form of the payload.
// Map keys serialize sorted, so logically identical payloads always produce
// the same key and any semantic difference produces a different one.
func Fingerprint(model string, payload map[string]any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize payload for fingerprint: %w", err)
	}
	return fingerprintBytes(model, data), nil
}

func fingerprintBytes(model string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// DiskCache persists results as one flat JSON file per fingerprint under a
// single directory. Entries never expire and are valid across process
// restarts for as long as the fingerprint inputs stay stable.
type DiskCache struct {
	dir    string
	logger *slog.Logger
}

// NewDiskCache creates a disk cache rooted at dir, creating the directory
// if needed.
func NewDiskCache(dir string, logger *slog.Logger) (*DiskCache, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &DiskCache{dir: dir, logger: logger}, nil
}

// Get loads the entry for key. A plain absent entry is a silent miss; an
// unreadable or corrupt entry is logged and reported as a miss.
func (c *DiskCache) Get(key string) (*ResponseResult, bool) {
	path := c.entryPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("cache read failed, treating as miss",
				"path", path,
				"error", err)
		}
		return nil, false
	}

	var result ResponseResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("corrupt cache entry, treating as miss",
			"path", path,
			"error", err)
		return nil, false
	}
	return &result, true
}

// Put stores the entry for key. Writes are best-effort: failures are logged
// and swallowed so a full disk or bad permissions never fail a dispatch.
func (c *DiskCache) Put(key string, result *ResponseResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("cache write skipped, result not serializable",
			"key", key,
			"error", err)
		return
	}
	path := c.entryPath(key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.logger.Warn("cache write failed",
			"path", path,
			"error", err)
	}
}

// Dir returns the cache root directory.
func (c *DiskCache) Dir() string {
	return c.dir
}

func (c *DiskCache) entryPath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// MemoryCache is a process-local Cache for tests and cache-agnostic callers.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*ResponseResult
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*ResponseResult)}
}

// Get returns the entry for key if present.
func (c *MemoryCache) Get(key string) (*ResponseResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.entries[key]
	return result, ok
}

// Put stores the entry for key, replacing any existing entry.
func (c *MemoryCache) Put(key string, result *ResponseResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = result
}

// Len returns the number of stored entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
