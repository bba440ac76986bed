// Package devicecache implements the device/cache manager collaborator
// contract (spec §6): get-or-create by content hash for pipeline/layout/
// module wrappers. The core only ever holds the returned handle and
// never frees it directly; eviction is this package's concern alone,
// backed by a real LRU so tests can exercise cache pressure without a
// GPU.
package devicecache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// ContentHash identifies a cacheable object by its content, not its
// identity, so two equivalent descriptions collapse to one entry.
type ContentHash uint64

// Handle is an opaque reference to a cached device object (pipeline,
// descriptor-set layout, shader module wrapper, …).
type Handle struct {
	hash ContentHash
	obj  any
}

func (h Handle) Hash() ContentHash { return h.hash }
func (h Handle) Object() any       { return h.obj }

// Cache is a get-or-create-by-content-hash store with bounded capacity.
// node.DeviceLike is satisfied by *Cache via GetOrCreate.
type Cache struct {
	lru *lru.Cache[ContentHash, Handle]
}

// New returns a Cache holding at most capacity entries, evicting least
// recently used on overflow.
func New(capacity int) (*Cache, error) {
	l, err := lru.New[ContentHash, Handle](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// GetOrCreate returns the cached object for contentHash, calling create
// to populate the cache on a miss. Implements node.DeviceLike.
func (c *Cache) GetOrCreate(contentHash uint64, create func() (any, error)) (any, error) {
	key := ContentHash(contentHash)
	if h, ok := c.lru.Get(key); ok {
		return h.Object(), nil
	}
	obj, err := create()
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, Handle{hash: key, obj: obj})
	return obj, nil
}

// Len reports how many entries are currently cached.
func (c *Cache) Len() int { return c.lru.Len() }

// Purge evicts every cached entry.
func (c *Cache) Purge() { c.lru.Purge() }
