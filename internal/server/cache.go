package server

import (
	"sync"
	"time"

	"github.com/mj1618/screen-macro/internal/model"
	"github.com/mj1618/screen-macro/internal/platform"
)

// cacheEntry holds a cached window list with its timestamp.
type cacheEntry struct {
	windows   []model.Window
	timestamp time.Time
}

// WindowCache provides a TTL-based cache for window listings, which are
// slow to enumerate and polled heavily by agents between actions.
type WindowCache struct {
	mu      sync.Mutex
	entries map[platform.ListOptions]cacheEntry
	ttl     time.Duration
}

// NewWindowCache creates a new cache. A ttl of 0 disables caching.
func NewWindowCache(ttl time.Duration) *WindowCache {
	return &WindowCache{
		entries: make(map[platform.ListOptions]cacheEntry),
		ttl:     ttl,
	}
}

// Windows returns the cached listing if within TTL, otherwise lists fresh.
func (c *WindowCache) Windows(list func(platform.ListOptions) ([]model.Window, error), opts platform.ListOptions) ([]model.Window, error) {
	if c.ttl == 0 {
		return list(opts)
	}

	c.mu.Lock()
	if entry, ok := c.entries[opts]; ok && time.Since(entry.timestamp) < c.ttl {
		windows := entry.windows
		c.mu.Unlock()
		return windows, nil
	}
	c.mu.Unlock()

	windows, err := list(opts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[opts] = cacheEntry{windows: windows, timestamp: time.Now()}
	c.mu.Unlock()

	return windows, nil
}

// Invalidate clears the cache. Called after anything that can change
// focus or close windows.
func (c *WindowCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[platform.ListOptions]cacheEntry)
}
