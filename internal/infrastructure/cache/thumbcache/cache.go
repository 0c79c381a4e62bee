package thumbcache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a fixed-size LRU of encoded thumbnails keyed by storage key.
type Cache struct {
	entries *lru.Cache[string, []byte]
}

func New(size int) (*Cache, error) {
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create thumbnail cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

func (c *Cache) Get(key string) ([]byte, bool) {
	return c.entries.Get(key)
}

func (c *Cache) Add(key string, data []byte) {
	c.entries.Add(key, data)
}

func (c *Cache) Remove(key string) {
	c.entries.Remove(key)
}

func (c *Cache) Len() int {
	return c.entries.Len()
}
