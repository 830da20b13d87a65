// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package lucien

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheKey identifies one memoized k-NN query: the enclosing cell,
// k, and maxDist (§4.6).
type cacheKey struct {
	cell    bound128
	k       int
	maxDist float64
}

func cacheKeyOf(cell bound128, k int, maxDist float64) cacheKey {
	return cacheKey{cell: cell, k: k, maxDist: maxDist}
}

type cacheEntry struct {
	version uint64
	ids     []ID
}

// knnCache memoizes k-NN results keyed by (cell, k, maxDist), backed by
// hashicorp/golang-lru so eviction doesn't need hand-rolling (the
// teacher's own pool.go hand-rolls a sync.Pool for node reuse, a
// different concern from result caching); the hit/miss counters are kept
// here as atomics. Entries are
// validated against the index's version counter: a cached entry from an
// older version is a miss, not a stale hit (§4.6, §8).
type knnCache struct {
	lru  *lru.Cache[cacheKey, cacheEntry]
	hits atomic.Uint64
	miss atomic.Uint64
}

func newKNNCache(size int) *knnCache {
	if size <= 0 {
		size = 1
	}
	c, _ := lru.New[cacheKey, cacheEntry](size)
	return &knnCache{lru: c}
}

func (c *knnCache) get(key cacheKey, version uint64) ([]ID, bool) {
	e, ok := c.lru.Get(key)
	if !ok || e.version != version {
		c.miss.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.ids, true
}

func (c *knnCache) put(key cacheKey, version uint64, ids []ID) {
	c.lru.Add(key, cacheEntry{version: version, ids: ids})
}

// invalidate drops every cached entry; called by Update and Remove. Stale
// entries would already miss by the version check, but an explicit purge
// keeps memory bounded to what's still current. Insert and InsertBatch do
// not call it and rely on the version check alone.
func (c *knnCache) invalidate() {
	c.lru.Purge()
}

func (c *knnCache) purge() {
	c.lru.Purge()
}

// HitRate returns the cache's lifetime hit ratio in [0,1].
func (c *knnCache) HitRate() float64 {
	h, m := c.hits.Load(), c.miss.Load()
	if h+m == 0 {
		return 0
	}
	return float64(h) / float64(h+m)
}

// CacheStats reports k-NN cache hit/miss/size counters (§4.6, §6).
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Size    int
	HitRate float64
}

// KNNCacheStats returns the current k-NN cache statistics.
func (ix *Index[K, V]) KNNCacheStats() CacheStats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return CacheStats{
		Hits:    ix.cache.hits.Load(),
		Misses:  ix.cache.miss.Load(),
		Size:    ix.cache.lru.Len(),
		HitRate: ix.cache.HitRate(),
	}
}
