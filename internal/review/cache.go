// ABOUTME: Workflow-owned cache of analysis reports
// ABOUTME: Keyed by file and URL hash, invalidated when a file is replaced
package review

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/mixroom/mixcheck/pkg/analysis"
)

type cacheEntry struct {
	fileID string
	report analysis.Report
}

// Cache holds the last report per (file, URL). A replaced upload gets a new
// key, and Invalidate drops whatever the file had cached before.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// CacheKey derives the cache key for a file at a URL
func CacheKey(fileID, url string) string {
	hash := sha256.Sum256([]byte(fileID + "\x00" + url))
	return fmt.Sprintf("%x", hash[:])
}

// Get returns the cached report for a file at a URL
func (c *Cache) Get(fileID, url string) (analysis.Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[CacheKey(fileID, url)]
	return entry.report, ok
}

// Put stores a report
func (c *Cache) Put(fileID, url string, report analysis.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[CacheKey(fileID, url)] = cacheEntry{fileID: fileID, report: report}
}

// Invalidate drops every entry of a file and returns how many went
func (c *Cache) Invalidate(fileID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.entries {
		if entry.fileID == fileID {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached reports
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
