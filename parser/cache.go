package parser

import (
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/robinvdvleuten/ledgerscript/ast"
)

// DefaultCacheSize bounds the shared expression cache.
const DefaultCacheSize = 4096

// Cache memoizes parsed expressions keyed by the xxh3 hash of their text.
// Schedule columns and loop bodies evaluate the same few texts for every
// row, so most lookups hit. Cached trees are immutable and safe to share
// between concurrent runs.
type Cache struct {
	mu      sync.RWMutex
	entries map[uint64]cacheEntry
	max     int
}

type cacheEntry struct {
	text string
	node ast.Node
}

// NewCache creates a cache holding at most max expressions.
func NewCache(max int) *Cache {
	return &Cache{
		entries: make(map[uint64]cacheEntry, 64),
		max:     max,
	}
}

var defaultCache = NewCache(DefaultCacheSize)

// ParseCached parses text through the shared cache.
func ParseCached(text string) (ast.Node, error) {
	return defaultCache.Parse(text)
}

// Parse returns the tree for text, parsing it on a miss. Failed parses are
// not cached.
func (c *Cache) Parse(text string) (ast.Node, error) {
	key := xxh3.HashString(text)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && entry.text == text {
		return entry.node, nil
	}

	node, err := ParseExpr(text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.entries) >= c.max {
		// Full: start over.
		c.entries = make(map[uint64]cacheEntry, 64)
	}
	c.entries[key] = cacheEntry{text: text, node: node}
	c.mu.Unlock()

	return node, nil
}

// Len returns the number of cached expressions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
