package gateway

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CachedResponse is a rendered response. The body is stored serialized so
// every hit replays exactly the bytes of the original response.
type CachedResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

type cacheEntry struct {
	response  CachedResponse
	expiresAt time.Time
}

// ResponseCache is the process-local response cache used by cached GET
// routes. Expired entries are dropped when they are next read; there is no
// background sweep.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time

	// fills coalesces concurrent misses on the same key into one handler call.
	fills singleflight.Group
}

type CacheOption func(*ResponseCache)

// WithCacheClock overrides the time source (for tests).
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *ResponseCache) {
		c.now = now
	}
}

// NewResponseCache creates an empty cache.
func NewResponseCache(opts ...CacheOption) *ResponseCache {
	c := &ResponseCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live entry for key.
func (c *ResponseCache) Get(key string) (CachedResponse, bool) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return CachedResponse{}, false
	}
	if now.Before(e.expiresAt) {
		return e.response, true
	}

	c.mu.Lock()
	// re-check: a fill may have replaced the entry since the read lock
	if cur, ok := c.entries[key]; ok && !now.Before(cur.expiresAt) {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return CachedResponse{}, false
}

// Set stores resp under key until ttl elapses.
func (c *ResponseCache) Set(key string, resp CachedResponse, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{response: resp, expiresAt: c.now().Add(ttl)}
}

// Delete removes key.
func (c *ResponseCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidatePrefix removes every entry whose key starts with prefix and
// returns how many were removed. Default keys start with "<METHOD> <path>",
// so InvalidatePrefix("GET /api/v1/recognitions") drops every cached page of
// that listing.
func (c *ResponseCache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// fill runs load once per key among concurrent callers. shared is true for
// callers that received another caller's result.
func (c *ResponseCache) fill(key string, load func() (CachedResponse, error)) (CachedResponse, bool, error) {
	v, err, shared := c.fills.Do(key, func() (any, error) {
		return load()
	})
	if err != nil {
		return CachedResponse{}, shared, err
	}
	return v.(CachedResponse), shared, nil
}

// DefaultCacheKey is method, path and the query string with its parameters
// sorted, so "?b=2&a=1" and "?a=1&b=2" share an entry.
func DefaultCacheKey(r *http.Request) string {
	key := r.Method + " " + r.URL.Path
	if q := r.URL.Query(); len(q) > 0 {
		key += "?" + q.Encode()
	}
	return key
}
