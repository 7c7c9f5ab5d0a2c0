package fs

import (
	"container/list"
	"fmt"
	"os"
	"sync"
)

// FDCache provides an LRU cache for open file descriptors, keyed by the
// cleaned store path.
type FDCache struct {
	maxSize int
	mu      sync.Mutex
	cache   map[string]*list.Element
	lru     *list.List
}

type cacheEntry struct {
	path string
	file *os.File
}

// DefaultFDCacheSize is used when the configured size is not positive.
const DefaultFDCacheSize = 256

func NewFDCache(maxSize int) *FDCache {
	if maxSize < 1 {
		maxSize = DefaultFDCacheSize
	}
	return &FDCache{
		maxSize: maxSize,
		cache:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

func (c *FDCache) Get(path string) (*os.File, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.cache[path]
	if !exists {
		return nil, false
	}

	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheEntry).file, true
}

// Put adds file for a path that is not cached yet, evicting the least
// recently used descriptor when full. Callers check Get first while holding
// the store lock, so path is never already present.
func (c *FDCache) Put(path string, file *os.File) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lru.Len() >= c.maxSize {
		if err := c.evictLRU(); err != nil {
			return fmt.Errorf("evict LRU: %w", err)
		}
	}

	c.cache[path] = c.lru.PushFront(&cacheEntry{path: path, file: file})
	return nil
}

func (c *FDCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for c.lru.Len() > 0 {
		elem := c.lru.Back()
		entry := elem.Value.(*cacheEntry)

		if err := entry.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}

		c.lru.Remove(elem)
		delete(c.cache, entry.path)
	}
	return firstErr
}

func (c *FDCache) evictLRU() error {
	elem := c.lru.Back()
	if elem == nil {
		return nil
	}

	entry := elem.Value.(*cacheEntry)
	c.lru.Remove(elem)
	delete(c.cache, entry.path)

	if err := entry.file.Close(); err != nil {
		return fmt.Errorf("close evicted file %s: %w", entry.path, err)
	}
	return nil
}

// Stats returns the number of open descriptors and the cache capacity.
func (c *FDCache) Stats() (size int, maxSize int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len(), c.maxSize
}
