package syntax

import (
	"github.com/wbrown/janus-olap/olap/logic"
)

// Cache memoizes parse results per distinct call text. A cache belongs to a
// single compilation and is not safe for concurrent use.
type Cache struct {
	entries map[string]cacheEntry
	hits    int
	misses  int
}

type cacheEntry struct {
	call *logic.Call
	err  error
}

// NewCache creates an empty parse cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Call returns the parsed call for text. Callers must not modify the
// returned call; use WithSubject to derive new calls.
func (c *Cache) Call(text string) (*logic.Call, error) {
	if e, ok := c.entries[text]; ok {
		c.hits++
		return e.call, e.err
	}
	c.misses++
	call, err := Parse(text)
	c.entries[text] = cacheEntry{call: call, err: err}
	return call, err
}

// Predicate returns the predicate name called by text
func (c *Cache) Predicate(text string) (string, error) {
	call, err := c.Call(text)
	if err != nil {
		return "", err
	}
	return call.Predicate, nil
}

// Stats returns cache hit and miss counts
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}
