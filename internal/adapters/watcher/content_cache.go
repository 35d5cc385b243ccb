package watcher

import (
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ContentCache remembers a digest of each watched file so that events which
// leave a file's bytes unchanged (touch, editor swap files, atomic saves of
// identical content) can be dropped.
type ContentCache struct {
	mu   sync.Mutex
	sums map[string]uint64
}

// NewContentCache creates an empty cache.
func NewContentCache() *ContentCache {
	return &ContentCache{sums: make(map[string]uint64)}
}

// Prime records the current content of paths without reporting changes.
func (c *ContentCache) Prime(paths ...string) {
	for _, path := range paths {
		c.Changed(path)
	}
}

// Changed reports whether the content of path differs from the last time it
// was observed, and records the new content. A file that disappears counts as
// changed once.
func (c *ContentCache) Changed(path string) bool {
	sum, exists := digest(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, known := c.sums[path]
	switch {
	case !exists && !known:
		return false
	case !exists:
		delete(c.sums, path)
		return true
	case known && prev == sum:
		return false
	default:
		c.sums[path] = sum
		return true
	}
}

func digest(path string) (uint64, bool) {
	data, err := os.ReadFile(path) //nolint:gosec // watched paths come from the CLI
	if err != nil {
		return 0, false
	}
	return xxhash.Sum64(data), true
}
