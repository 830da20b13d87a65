// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package lucien

import (
	"container/heap"
	"math"

	"github.com/lucien-spatial/lucien/internal/cube"
)

// cellQueueItem orders candidate nodes by their minimum possible
// distance to the query point, the classic priority-queue k-NN search
// strategy: always expand the closest unexplored cell next.
type cellQueueItem[K SpatialKey] struct {
	rec     *nodeRecord[K]
	minDist float64
}

type cellQueue[K SpatialKey] []cellQueueItem[K]

func (q cellQueue[K]) Len() int            { return len(q) }
func (q cellQueue[K]) Less(i, j int) bool  { return q[i].minDist < q[j].minDist }
func (q cellQueue[K]) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *cellQueue[K]) Push(x any)         { *q = append(*q, x.(cellQueueItem[K])) }
func (q *cellQueue[K]) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// candidate is one scored entity in the bounded max-heap of k results.
type candidate struct {
	id   ID
	dist float64
}

// resultHeap is a bounded max-heap: the worst (farthest) of the current
// top-k sits at the root, so a new candidate only needs comparing
// against root to decide whether it displaces anything.
type resultHeap []candidate

func (h resultHeap) Len() int            { return len(h) }
func (h resultHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h resultHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x any)         { *h = append(*h, x.(candidate)) }
func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// KNearest returns up to k entity IDs nearest to p, nearest first,
// optionally bounded by maxDist (0 means unbounded), using the LRU
// cache when a fresh cached result exists (§4.6).
func (ix *Index[K, V]) KNearest(p Point3, k int, maxDist float64) ([]ID, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	cellKey, ok := ix.enclosingLocked(p.X, p.Y, p.Z)
	if ok {
		if ids, hit := ix.cache.get(cacheKeyOf(cellKey, k, maxDist), ix.version); hit {
			return ids, nil
		}
	}

	ids := ix.knnSearchLocked(p, k, maxDist)
	if ok {
		ix.cache.put(cacheKeyOf(cellKey, k, maxDist), ix.version, ids)
	}
	return ids, nil
}

func (ix *Index[K, V]) enclosingLocked(x, y, z uint32) (bound128, bool) {
	level := ix.cfg.MaxLevel
	k, err := ix.ops.encode(x, y, z, level)
	if err != nil {
		return bound128{}, false
	}
	for l := int(level); l >= 0; l-- {
		ak := ix.ops.atLevel(k, uint8(l))
		if _, ok := ix.nodes.get(ak); ok {
			lo, _ := ix.ops.bound(ak)
			return lo, true
		}
	}
	return bound128{}, false
}

func (ix *Index[K, V]) knnSearchLocked(p Point3, k int, maxDist float64) []ID {
	if k <= 0 {
		return nil
	}
	px, py, pz := float64(p.X), float64(p.Y), float64(p.Z)

	var cq cellQueue[K]
	ix.nodes.ascendAll(func(r *nodeRecord[K]) bool {
		ox, oy, oz := ix.ops.origin(r.key)
		size := float64(ix.ops.cellSize(r.key))
		d := cube.MinDistPointToCube(float64(ox), float64(oy), float64(oz), size, px, py, pz)
		if maxDist > 0 && d > maxDist {
			return true
		}
		heap.Push(&cq, cellQueueItem[K]{rec: r, minDist: d})
		return true
	})

	var results resultHeap
	for cq.Len() > 0 {
		item := heap.Pop(&cq).(cellQueueItem[K])
		if results.Len() == k && item.minDist > results[0].dist {
			break
		}
		for _, id := range item.rec.ids {
			rec, ok := ix.store.get(id)
			if !ok {
				continue
			}
			dx, dy, dz := float64(rec.pos.X)-px, float64(rec.pos.Y)-py, float64(rec.pos.Z)-pz
			d := math.Sqrt(dx*dx + dy*dy + dz*dz)
			if maxDist > 0 && d > maxDist {
				continue
			}
			if results.Len() < k {
				heap.Push(&results, candidate{id: id, dist: d})
			} else if d < results[0].dist {
				heap.Pop(&results)
				heap.Push(&results, candidate{id: id, dist: d})
			}
		}
	}

	out := make([]ID, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&results).(candidate).id
	}
	return out
}

