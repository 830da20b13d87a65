// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package lucien

import (
	"github.com/lucien-spatial/lucien/internal/cube"
	"github.com/lucien-spatial/lucien/internal/morton"
	"github.com/lucien-spatial/lucien/internal/tetcode"
)

// SpatialKey is the common surface both MortonKey and TetreeKey satisfy:
// a totally ordered identifier for one cell of a spatial hierarchy (§3,
// §4.1). The generic Index is built once against this interface and
// instantiated twice, the way bart's tree algorithm is written once
// against internal/nodes.NodeReadWriter[V] and instantiated against
// several concrete node encodings.
type SpatialKey interface {
	comparable
	Level() uint8
}

// MortonKey is the octree's spatial key: a 63-bit Z-order code.
type MortonKey struct{ k morton.Key }

// Level returns the refinement level of the key.
func (k MortonKey) Level() uint8 { return k.k.Level }

// Code returns the raw interleaved Morton code.
func (k MortonKey) Code() uint64 { return k.k.Code }

func (k MortonKey) String() string { return k.k.String() }

// TetreeKey is the tetree's spatial key: a 128-bit TM-index.
type TetreeKey struct{ k tetcode.Key }

// Level returns the refinement level of the key.
func (k TetreeKey) Level() uint8 { return k.k.Level }

// Type returns the tetrahedron type this key denotes at its own level.
func (k TetreeKey) Type() uint8 { return k.k.Type() }

func (k TetreeKey) String() string { return k.k.String() }

// keyOps is the capability set a concrete key kind must supply for the
// generic Index: codec, navigation, and ordering primitives. Unexported
// so callers can't implement a third key kind without touching this
// package — the spec names exactly two (§3).
type keyOps[K SpatialKey] interface {
	root() K
	encode(x, y, z uint32, level uint8) (K, error)
	decode(k K) (x, y, z uint32)
	parent(k K) (K, bool)
	child(k K, i uint8) (K, error)
	childIndex(k K) uint8
	isAncestorOf(a, d K) bool
	atLevel(k K, level uint8) K
	less(a, b K) bool
	equal(a, b K) bool
	origin(k K) (ox, oy, oz uint32)
	cellSize(k K) uint32
	bound(k K) (lo, hi bound128)
	bits(k K) (lo, hi uint64)
	fromBits(lo, hi uint64, level uint8) K
}

// bound128 orders any key kind at a uniform 128-bit resolution
// regardless of its native level, letting the node map and traversal use
// one ordering scheme for both MortonKey and TetreeKey.
type bound128 struct{ Hi, Lo uint64 }

func (b bound128) less(o bound128) bool {
	if b.Hi != o.Hi {
		return b.Hi < o.Hi
	}
	return b.Lo < o.Lo
}

type mortonOps struct{}

func (mortonOps) root() MortonKey { return MortonKey{morton.Root} }

// encode takes world coordinates in [0, 2^cube.MaxLevel) and returns the
// key of the level-`level` cell containing them.
func (mortonOps) encode(x, y, z uint32, level uint8) (MortonKey, error) {
	if level <= cube.MaxLevel {
		shift := cube.MaxLevel - level
		x, y, z = x>>shift, y>>shift, z>>shift
	}
	k, err := morton.Encode(x, y, z, level)
	return MortonKey{k}, err
}

func (mortonOps) decode(k MortonKey) (x, y, z uint32) { return morton.Decode(k.k) }

func (mortonOps) parent(k MortonKey) (MortonKey, bool) {
	p, ok := k.k.Parent()
	return MortonKey{p}, ok
}

func (mortonOps) child(k MortonKey, i uint8) (MortonKey, error) {
	c, err := k.k.Child(i)
	return MortonKey{c}, err
}

func (mortonOps) childIndex(k MortonKey) uint8 { return k.k.ChildIndex() }

func (mortonOps) isAncestorOf(a, d MortonKey) bool { return a.k.IsAncestorOf(d.k) }

func (mortonOps) atLevel(k MortonKey, level uint8) MortonKey {
	return MortonKey{k.k.AtLevel(level)}
}

func (mortonOps) less(a, b MortonKey) bool  { return a.k.Less(b.k) }
func (mortonOps) equal(a, b MortonKey) bool { return a.k.Equal(b.k) }

func (mortonOps) origin(k MortonKey) (ox, oy, oz uint32) {
	x, y, z := morton.Decode(k.k)
	cx, cy, cz := cube.Origin(x<<(cube.MaxLevel-k.k.Level), y<<(cube.MaxLevel-k.k.Level), z<<(cube.MaxLevel-k.k.Level), k.k.Level)
	return cx, cy, cz
}

func (mortonOps) cellSize(k MortonKey) uint32 { return cube.CellSize(k.k.Level) }

func (mortonOps) bound(k MortonKey) (lo, hi bound128) {
	l, h := k.k.DescendantRange()
	return bound128{Hi: 0, Lo: l.Code}, bound128{Hi: 0, Lo: h.Code}
}

// bits exposes MortonKey's 63-bit code as a (lo, 0) pair, the wire
// representation §6's GhostElement carries for an octree key.
func (mortonOps) bits(k MortonKey) (lo, hi uint64) { return k.k.Code, 0 }

func (mortonOps) fromBits(lo, hi uint64, level uint8) MortonKey {
	return MortonKey{morton.Key{Code: lo, Level: level}}
}

type tetOps struct{}

func (tetOps) root() TetreeKey { return TetreeKey{tetcode.Root} }

// encode takes world coordinates in [0, 2^cube.MaxLevel) and returns the
// key of the level-`level` cell containing them.
func (tetOps) encode(x, y, z uint32, level uint8) (TetreeKey, error) {
	if level <= cube.MaxLevel {
		shift := cube.MaxLevel - level
		x, y, z = x>>shift, y>>shift, z>>shift
	}
	k, err := tetcode.Encode(x, y, z, level)
	return TetreeKey{k}, err
}

func (tetOps) decode(k TetreeKey) (x, y, z uint32) { return tetcode.Decode(k.k) }

func (tetOps) parent(k TetreeKey) (TetreeKey, bool) {
	p, ok := k.k.Parent()
	return TetreeKey{p}, ok
}

func (tetOps) child(k TetreeKey, i uint8) (TetreeKey, error) {
	c, err := k.k.Child(i)
	return TetreeKey{c}, err
}

func (tetOps) childIndex(k TetreeKey) uint8 { return k.k.ChildIndex() }

func (tetOps) isAncestorOf(a, d TetreeKey) bool { return a.k.IsAncestorOf(d.k) }

func (tetOps) atLevel(k TetreeKey, level uint8) TetreeKey {
	return TetreeKey{k.k.AtLevel(level)}
}

func (tetOps) less(a, b TetreeKey) bool  { return a.k.Less(b.k) }
func (tetOps) equal(a, b TetreeKey) bool { return a.k.Equal(b.k) }

func (tetOps) origin(k TetreeKey) (ox, oy, oz uint32) {
	x, y, z := tetcode.Decode(k.k)
	shift := cube.MaxLevel - k.k.Level
	return cube.Origin(x<<shift, y<<shift, z<<shift, k.k.Level)
}

func (tetOps) cellSize(k TetreeKey) uint32 { return cube.CellSize(k.k.Level) }

func (tetOps) bound(k TetreeKey) (lo, hi bound128) {
	l, h := k.k.DescendantRange()
	return bound128(l), bound128(h)
}

// bits exposes TetreeKey's 128-bit TM-index as a (lo, hi) pair, the
// wire representation §6's GhostElement carries for a tetree key.
func (tetOps) bits(k TetreeKey) (lo, hi uint64) { return k.k.Lo, k.k.Hi }

func (tetOps) fromBits(lo, hi uint64, level uint8) TetreeKey {
	return TetreeKey{tetcode.Key{Lo: lo, Hi: hi, Level: level}}
}
