package code_snapshot

import (
	"sync"

	"github.com/zeebo/xxh3"

	"crev/code_snapshot/models"
)

// scanCacheEntry holds a symbol scan result keyed by content hash.
type scanCacheEntry struct {
	contentHash uint64
	symbols     []models.SymbolTag
}

// ScanCache memoizes per-file symbol scans across snapshot rebuilds. Entries
// are validated by content hash, so edits invalidate themselves.
type ScanCache struct {
	mu      sync.RWMutex
	entries map[string]*scanCacheEntry
}

func NewScanCache() *ScanCache {
	return &ScanCache{entries: make(map[string]*scanCacheEntry)}
}

func (c *ScanCache) get(path string, content []byte) ([]models.SymbolTag, bool) {
	hash := xxh3.Hash(content)

	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[path]
	if !ok || entry.contentHash != hash {
		return nil, false
	}
	return entry.symbols, true
}

func (c *ScanCache) set(path string, content []byte, symbols []models.SymbolTag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = &scanCacheEntry{contentHash: xxh3.Hash(content), symbols: symbols}
}

// Clear drops all cached scan results.
func (c *ScanCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*scanCacheEntry)
}

// Len reports the number of cached files.
func (c *ScanCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
