package storage

import (
	"sync"
	"sync/atomic"
	"time"
)

// ProgramCache caches program text by compilation key
type ProgramCache struct {
	cache map[string]*cachedProgram
	mu    sync.RWMutex

	hits   int64
	misses int64

	maxSize int
	ttl     time.Duration
}

type cachedProgram struct {
	text      string
	timestamp time.Time
}

// NewProgramCache creates a cache. Non-positive arguments select the
// defaults of 1000 entries and a 5 minute TTL.
func NewProgramCache(maxSize int, ttl time.Duration) *ProgramCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ProgramCache{
		cache:   make(map[string]*cachedProgram),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns the cached program for key if present and not expired
func (c *ProgramCache) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, ok := c.cache[key]
	if !ok || time.Since(cached.timestamp) > c.ttl {
		// Expired entries are removed lazily by Set
		atomic.AddInt64(&c.misses, 1)
		return "", false
	}

	atomic.AddInt64(&c.hits, 1)
	return cached.text, true
}

// Set stores a program, evicting expired entries and then the oldest
// entry when the cache is full.
func (c *ProgramCache) Set(key, text string) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.cache[key]; !exists && len(c.cache) >= c.maxSize {
		c.evictExpired()
		if len(c.cache) >= c.maxSize {
			c.evictOldest()
		}
	}

	c.cache[key] = &cachedProgram{text: text, timestamp: time.Now()}
}

// Clear removes all entries and resets statistics
func (c *ProgramCache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]*cachedProgram)
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
}

// Stats returns hit and miss counts and the current size
func (c *ProgramCache) Stats() (hits, misses int64, size int) {
	if c == nil {
		return 0, 0, 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses), len(c.cache)
}

func (c *ProgramCache) evictExpired() {
	now := time.Now()
	for key, cached := range c.cache {
		if now.Sub(cached.timestamp) > c.ttl {
			delete(c.cache, key)
		}
	}
}

func (c *ProgramCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, cached := range c.cache {
		if oldestKey == "" || cached.timestamp.Before(oldestTime) {
			oldestKey = key
			oldestTime = cached.timestamp
		}
	}

	if oldestKey != "" {
		delete(c.cache, oldestKey)
	}
}
