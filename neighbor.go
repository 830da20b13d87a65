// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package lucien

import "github.com/lucien-spatial/lucien/internal/cube"

// NeighborDirection names one of the up to 26 face/edge/vertex
// directions a cell can have a neighbor in (§4.7).
type NeighborDirection struct{ DX, DY, DZ int8 }

var faceDirections = []NeighborDirection{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

var edgeDirections = []NeighborDirection{
	{1, 1, 0}, {1, -1, 0}, {-1, 1, 0}, {-1, -1, 0},
	{1, 0, 1}, {1, 0, -1}, {-1, 0, 1}, {-1, 0, -1},
	{0, 1, 1}, {0, 1, -1}, {0, -1, 1}, {0, -1, -1},
}

var vertexDirections = []NeighborDirection{
	{1, 1, 1}, {1, 1, -1}, {1, -1, 1}, {1, -1, -1},
	{-1, 1, 1}, {-1, 1, -1}, {-1, -1, 1}, {-1, -1, -1},
}

// FaceNeighbors returns the up to 6 geometric face-adjacent neighbor keys
// of k, regardless of whether the neighbor cell is currently materialized
// — a neighbor is omitted only when it would fall outside the world cube
// (§4.7: "return None if out of [0, 2^MAX_LEVEL)"). The computation is
// cube adjacency for both key kinds: for a TetreeKey it returns the keys
// that the 6 face-adjacent cubes' origins encode to at k's level, not the
// 4 tetrahedra that share a face with k. The only tetrahedral neighbor
// relation in this package is SiblingNeighbors.
func (ix *Index[K, V]) FaceNeighbors(k K) []K {
	return ix.directionalNeighbors(k, faceDirections)
}

// EdgeNeighbors returns the geometric edge-adjacent neighbor keys.
func (ix *Index[K, V]) EdgeNeighbors(k K) []K {
	return ix.directionalNeighbors(k, edgeDirections)
}

// VertexNeighbors returns the geometric vertex-adjacent neighbor keys.
func (ix *Index[K, V]) VertexNeighbors(k K) []K {
	return ix.directionalNeighbors(k, vertexDirections)
}

// directionalNeighbors computes neighbor coordinates as (x,y,z) ±
// cellSize along each of dirs's axes and re-encodes them (§4.7 "Octree:
// compute neighbor coordinates ... Re-encode."). Occupancy of the
// resulting key is irrelevant here — this is a geometric relation, not
// a query over materialized nodes.
func (ix *Index[K, V]) directionalNeighbors(k K, dirs []NeighborDirection) []K {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []K
	for _, d := range dirs {
		if nk, ok := ix.neighborKeyLocked(k, d); ok {
			out = append(out, nk)
		}
	}
	return out
}

// neighborKeyLocked returns the key of the cell adjacent to k in
// direction d, or false if that cell would lie outside the world cube
// [0, 2^MAX_LEVEL).
func (ix *Index[K, V]) neighborKeyLocked(k K, d NeighborDirection) (K, bool) {
	var zero K
	ox, oy, oz := ix.ops.origin(k)
	size := ix.ops.cellSize(k)
	nx, ny, nz := int64(ox)+int64(d.DX)*int64(size), int64(oy)+int64(d.DY)*int64(size), int64(oz)+int64(d.DZ)*int64(size)
	if nx < 0 || ny < 0 || nz < 0 || nx >= cube.WorldSize || ny >= cube.WorldSize || nz >= cube.WorldSize {
		return zero, false
	}
	nk, err := ix.ops.encode(uint32(nx), uint32(ny), uint32(nz), k.Level())
	if err != nil {
		return zero, false
	}
	return nk, true
}

// IsBoundary reports whether k sits at the world edge in the given
// direction: the neighbor cell in that direction would fall outside
// [0, 2^MAX_LEVEL) (§4.7 is_boundary(key, direction)).
func (ix *Index[K, V]) IsBoundary(k K, direction NeighborDirection) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.neighborKeyLocked(k, direction)
	return !ok
}

// BoundaryDirections returns the face directions of k that sit at the
// world edge, i.e. whose neighbor coordinate falls outside
// [0, 2^MAX_LEVEL). It says nothing about occupancy.
func (ix *Index[K, V]) BoundaryDirections(k K) []NeighborDirection {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []NeighborDirection
	for _, d := range faceDirections {
		if _, ok := ix.neighborKeyLocked(k, d); !ok {
			out = append(out, d)
		}
	}
	return out
}

// MaterializedNeighbors filters keys to those currently present in the
// node map — the occupancy-aware view some consumers of FaceNeighbors
// et al. want on top of the purely geometric relation above.
func (ix *Index[K, V]) MaterializedNeighbors(keys []K) []K {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []K
	for _, k := range keys {
		if _, ok := ix.nodes.get(k); ok {
			out = append(out, k)
		}
	}
	return out
}

// SiblingNeighbors returns the materialized neighbors of k among the
// other Bey children (or octants) of k's own parent cube — the only
// neighbor relation this package resolves for tetree cells (§9(i),
// OPEN QUESTION DECISIONS #1). Non-sibling (upward-and-across) tetree
// neighbor traversal is not implemented; it returns an empty slice for
// a root key or for neighbors outside the immediate parent, rather than
// emulating partial coverage.
func (ix *Index[K, V]) SiblingNeighbors(k K) []K {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	parent, ok := ix.ops.parent(k)
	if !ok {
		return nil
	}
	self := ix.ops.childIndex(k)
	var out []K
	for i := uint8(0); i < 8; i++ {
		if i == self {
			continue
		}
		sib, err := ix.ops.child(parent, i)
		if err != nil {
			continue
		}
		if _, ok := ix.nodes.get(sib); ok {
			out = append(out, sib)
		}
	}
	return out
}

// NeighborInfo describes one neighbor key together with the rank and
// tree that own it (§4.7 find_neighbors_with_owners). This is a
// single-process index, so every neighbor is always local.
type NeighborInfo struct {
	Key         interface{}
	OwnerRank   RankID
	OwnerTreeID int64
	Local       bool
}

// FindNeighborsWithOwners resolves keys's owning rank/tree — always the
// local rank/tree in this single-process deployment — for a ghost-layer
// replicator deciding which neighbors require cross-rank synchronization
// (§4.7, §4.8).
func (ix *Index[K, V]) FindNeighborsWithOwners(keys []K, selfRank RankID, selfTreeID int64) []NeighborInfo {
	out := make([]NeighborInfo, 0, len(keys))
	for _, k := range keys {
		out = append(out, NeighborInfo{Key: k, OwnerRank: selfRank, OwnerTreeID: selfTreeID, Local: true})
	}
	return out
}
