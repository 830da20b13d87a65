// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package lucien

import (
	"sort"

	"github.com/google/btree"
)

// nodeRecord is one materialized cell: its key, its 128-bit ordering
// bound, and the sorted set of entity IDs spanning it (§4, L1 "Node
// map"). A node exists in the map iff it owns at least one entity,
// matching the "no empty nodes persist" invariant (§8).
type nodeRecord[K SpatialKey] struct {
	key   K
	lo    bound128
	level uint8
	ids   []ID
}

func idInsert(ids []ID, id ID) []ID {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if i < len(ids) && ids[i] == id {
		return ids
	}
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}

func idRemove(ids []ID, id ID) ([]ID, bool) {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if i >= len(ids) || ids[i] != id {
		return ids, false
	}
	return append(ids[:i], ids[i+1:]...), true
}

// nodeMap is an ordered key -> entity-id-set structure, backed by
// google/btree the way a geo-indexing service in the retrieved corpus
// reaches for an ordered B-tree rather than a fixed-radix popcount array
// when the key domain is sparse and globally ordered (the teacher's own
// node/child storage is a perfect fit for an 8-bit trie stride, not for
// an arbitrary set of materialized spatial keys at mixed levels).
//
// Ordering is primary by bound128 (the MaxLevel-resolution descendant
// range of the key), tie-broken by level ascending so an ancestor key
// sorts immediately before its own descendants — giving DFS pre-order
// traversal "for free" from a single ascending scan (§4, L1; §4.8
// Visitor).
type nodeMap[K SpatialKey] struct {
	tree  *btree.BTreeG[*nodeRecord[K]]
	byKey map[K]*nodeRecord[K]
}

func newNodeMap[K SpatialKey]() *nodeMap[K] {
	less := func(a, b *nodeRecord[K]) bool {
		if a.lo != b.lo {
			return a.lo.less(b.lo)
		}
		return a.level < b.level
	}
	return &nodeMap[K]{
		tree:  btree.NewG(32, less),
		byKey: make(map[K]*nodeRecord[K]),
	}
}

func (m *nodeMap[K]) get(k K) (*nodeRecord[K], bool) {
	r, ok := m.byKey[k]
	return r, ok
}

// addEntity materializes k if absent and adds id to its id-set. Returns
// whether the node was newly created.
func (m *nodeMap[K]) addEntity(ops keyOps[K], k K, id ID) bool {
	r, ok := m.byKey[k]
	if !ok {
		lo, _ := ops.bound(k)
		r = &nodeRecord[K]{key: k, lo: lo, level: k.Level()}
		m.byKey[k] = r
		m.tree.ReplaceOrInsert(r)
	}
	r.ids = idInsert(r.ids, id)
	return !ok
}

// removeEntity removes id from k's id-set. If the set becomes empty the
// node is dematerialized. Returns (removed, nodeDeleted).
func (m *nodeMap[K]) removeEntity(k K, id ID) (bool, bool) {
	r, ok := m.byKey[k]
	if !ok {
		return false, false
	}
	ids, removed := idRemove(r.ids, id)
	r.ids = ids
	if !removed {
		return false, false
	}
	if len(r.ids) == 0 {
		delete(m.byKey, k)
		m.tree.Delete(r)
		return true, true
	}
	return true, false
}

func (m *nodeMap[K]) len() int { return len(m.byKey) }

// ascendBound visits, in ascending order, every node whose bound128 lies
// within [lo,hi], stopping early if visit returns false.
func (m *nodeMap[K]) ascendBound(lo, hi bound128, visit func(*nodeRecord[K]) bool) {
	pivotLo := &nodeRecord[K]{lo: lo}
	m.tree.AscendGreaterOrEqual(pivotLo, func(r *nodeRecord[K]) bool {
		if hi.less(r.lo) {
			return false
		}
		return visit(r)
	})
}

// ascendAll visits every materialized node in DFS pre-order (ancestors
// before descendants).
func (m *nodeMap[K]) ascendAll(visit func(*nodeRecord[K]) bool) {
	m.tree.Ascend(func(r *nodeRecord[K]) bool { return visit(r) })
}

// snapshotLevelOrder returns every materialized node sorted strictly by
// (level ascending, bound128 ascending), for BFS/level-order traversal;
// computed on demand since traversal is infrequent relative to
// insert/lookup.
func (m *nodeMap[K]) snapshotLevelOrder() []*nodeRecord[K] {
	out := make([]*nodeRecord[K], 0, len(m.byKey))
	m.ascendAll(func(r *nodeRecord[K]) bool { out = append(out, r); return true })
	sort.Slice(out, func(i, j int) bool {
		if out[i].level != out[j].level {
			return out[i].level < out[j].level
		}
		return out[i].lo.less(out[j].lo)
	})
	return out
}
