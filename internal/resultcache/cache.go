// Package resultcache memoizes parse outcomes by file content.
package resultcache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultSize = 4096

// Entry is a cached parse outcome. BlockKinds is meaningful only when Failed is false.
type Entry struct {
	Failed     bool
	BlockKinds []string
	Error      string
}

// Cache is an LRU keyed by the xxhash of file contents. A nil *Cache is a
// valid, always-missing cache.
type Cache struct {
	entries *lru.Cache[uint64, Entry]
	hits    int
	misses  int
}

func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[uint64, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

func Key(src []byte) uint64 {
	return xxhash.Sum64(src)
}

func (c *Cache) Get(src []byte) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	entry, ok := c.entries.Get(Key(src))
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return entry, ok
}

func (c *Cache) Add(src []byte, entry Entry) {
	if c == nil {
		return
	}
	c.entries.Add(Key(src), entry)
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

// Stats returns lookup hits and misses since creation.
func (c *Cache) Stats() (hits int, misses int) {
	if c == nil {
		return 0, 0
	}
	return c.hits, c.misses
}
