package storage

import (
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru"

	"github.com/nemanja-m/gomandel/internal/scheduler/core"
)

// LRUTileCache keeps the most recently used tile counts in memory. It is safe
// for concurrent use. Counts are copied on the way in and out.
type LRUTileCache struct {
	cache *lru.Cache
}

func NewLRUTileCache(size int) (*LRUTileCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("error creating tile cache: %w", err)
	}
	return &LRUTileCache{cache: cache}, nil
}

// NewTileCache returns an LRU cache of the given size, or a cache that stores
// nothing when size is 0.
func NewTileCache(size int) (core.TileCache, error) {
	if size == 0 {
		return NoopTileCache{}, nil
	}
	return NewLRUTileCache(size)
}

func (c *LRUTileCache) Get(key core.TileKey) ([]int, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	return slices.Clone(v.([]int)), true
}

func (c *LRUTileCache) Put(key core.TileKey, counts []int) {
	c.cache.Add(key, slices.Clone(counts))
}

func (c *LRUTileCache) Len() int {
	return c.cache.Len()
}

type NoopTileCache struct{}

func (NoopTileCache) Get(core.TileKey) ([]int, bool) { return nil, false }
func (NoopTileCache) Put(core.TileKey, []int)        {}
func (NoopTileCache) Len() int                       { return 0 }
