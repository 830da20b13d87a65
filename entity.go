// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package lucien

import "sync/atomic"

// ID identifies an entity stored in an Index.
type ID uint64

// Point3 is a 3-D point in the integer grid coordinate space (§3).
type Point3 struct{ X, Y, Z uint32 }

// AABB is an axis-aligned bounding box in grid coordinates, inclusive of
// Min, exclusive of Max, matching §3's region semantics.
type AABB struct{ Min, Max Point3 }

// Contains reports whether p lies within the box.
func (b AABB) Contains(p Point3) bool {
	return p.X >= b.Min.X && p.X < b.Max.X &&
		p.Y >= b.Min.Y && p.Y < b.Max.Y &&
		p.Z >= b.Min.Z && p.Z < b.Max.Z
}

// Intersects reports whether two boxes overlap.
func (b AABB) Intersects(o AABB) bool {
	return b.Min.X < o.Max.X && b.Max.X > o.Min.X &&
		b.Min.Y < o.Max.Y && b.Max.Y > o.Min.Y &&
		b.Min.Z < o.Max.Z && b.Max.Z > o.Min.Z
}

// entityRecord[K,V] stores one entity's user payload, position/bounds,
// and the small set of node keys it spans (§4.2). Entities own their
// span-set; nodes own only entity IDs — neither owns the other, which
// resolves the natural cyclic reference between the two.
type entityRecord[K SpatialKey, V any] struct {
	value    V
	pos      Point3
	bounds   *AABB // nil for point entities
	spanInline [4]K
	spanOverflow []K
	spanCount    int
}

func (r *entityRecord[K, V]) span() []K {
	if r.spanCount <= len(r.spanInline) {
		return r.spanInline[:r.spanCount]
	}
	return r.spanOverflow
}

func (r *entityRecord[K, V]) setSpan(keys []K) {
	r.spanCount = len(keys)
	if len(keys) <= len(r.spanInline) {
		copy(r.spanInline[:], keys)
		r.spanOverflow = nil
		return
	}
	r.spanOverflow = append([]K(nil), keys...)
}

// store is the entity table: id -> record. Not safe for concurrent use
// on its own; the owning Index serializes access with its RWMutex.
type store[K SpatialKey, V any] struct {
	nextID  atomic.Uint64
	records map[ID]*entityRecord[K, V]
}

func newStore[K SpatialKey, V any]() *store[K, V] {
	return &store[K, V]{records: make(map[ID]*entityRecord[K, V])}
}

func (s *store[K, V]) allocateID() ID {
	return ID(s.nextID.Add(1))
}

func (s *store[K, V]) put(id ID, value V, pos Point3, bounds *AABB) *entityRecord[K, V] {
	r := &entityRecord[K, V]{value: value, pos: pos, bounds: bounds}
	s.records[id] = r
	return r
}

func (s *store[K, V]) get(id ID) (*entityRecord[K, V], bool) {
	r, ok := s.records[id]
	return r, ok
}

func (s *store[K, V]) remove(id ID) (*entityRecord[K, V], bool) {
	r, ok := s.records[id]
	if ok {
		delete(s.records, id)
	}
	return r, ok
}

func (s *store[K, V]) len() int { return len(s.records) }
