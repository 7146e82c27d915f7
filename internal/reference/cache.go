package reference

import (
	"sync"
	"time"

	"newsgate/internal/core"
)

// ttlCache is the acquisitor-owned keyword cache. Expiry is checked on read;
// writes only happen for successful non-fallback fetches.
type ttlCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	articles  []core.ReferenceArticle
	expiresAt time.Time
}

func newTTLCache(ttl time.Duration) *ttlCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ttlCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// get returns the cached articles for a normalized keyword, or false when
// absent or expired. Expired entries are evicted on read.
func (c *ttlCache) get(key string) ([]core.ReferenceArticle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	out := make([]core.ReferenceArticle, len(entry.articles))
	copy(out, entry.articles)
	return out, true
}

func (c *ttlCache) put(key string, articles []core.ReferenceArticle) {
	stored := make([]core.ReferenceArticle, len(articles))
	copy(stored, articles)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{articles: stored, expiresAt: c.now().Add(c.ttl)}
}

// len reports the live entry count. Test hook.
func (c *ttlCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
