// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package lucien

// TraversalOrder selects DFS pre-order or BFS level-order (§4.8). Any
// other value is walked as DFS.
type TraversalOrder int

const (
	DFS TraversalOrder = iota
	BFS
)

// Visitor receives callbacks during a Traverse call. VisitNode returning
// false stops the traversal early (cancellation); VisitEntity returning
// false skips the remaining entities of the current node but continues
// to the next node.
type Visitor[K SpatialKey] struct {
	Begin       func()
	VisitNode   func(key K, level uint8, entityCount int) bool
	VisitEntity func(id ID) bool
	LeaveNode   func(key K)
	End         func()

	// MaxDepth bounds traversal to nodes at level <= MaxDepth; 0 means
	// unbounded.
	MaxDepth uint8
	// Region, if non-nil, restricts traversal to nodes whose cell
	// intersects it.
	Region *AABB
}

// Traverse walks the materialized nodes of the index in the given
// order, invoking v's callbacks (§4.8).
func (ix *Index[K, V]) Traverse(order TraversalOrder, v Visitor[K]) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if v.Begin != nil {
		v.Begin()
	}
	defer func() {
		if v.End != nil {
			v.End()
		}
	}()

	visit := func(r *nodeRecord[K]) bool {
		if v.MaxDepth > 0 && r.level > v.MaxDepth {
			return true
		}
		if v.Region != nil {
			ox, oy, oz := ix.ops.origin(r.key)
			size := ix.ops.cellSize(r.key)
			cell := AABB{Min: Point3{ox, oy, oz}, Max: Point3{ox + size, oy + size, oz + size}}
			if !cell.Intersects(*v.Region) {
				return true
			}
		}
		cont := true
		if v.VisitNode != nil {
			cont = v.VisitNode(r.key, r.level, len(r.ids))
		}
		if cont && v.VisitEntity != nil {
			for _, id := range r.ids {
				if !v.VisitEntity(id) {
					break
				}
			}
		}
		if v.LeaveNode != nil {
			v.LeaveNode(r.key)
		}
		return cont
	}

	switch order {
	case BFS:
		for _, r := range ix.nodes.snapshotLevelOrder() {
			if !visit(r) {
				return
			}
		}
	default:
		ix.nodes.ascendAll(visit)
	}
}
