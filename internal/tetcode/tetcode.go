// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

// Package tetcode implements the 128-bit TM-index codec for the tetree:
// the Bey-refinement type-transition table, encode/decode of 6-bits-
// per-level (x,y,z)-plus-type codes, and point location.
//
// Grounded on the same idiom as [github.com/lucien-spatial/lucien/internal/morton]:
// a bit-interleaved space-filling-curve key, built the way
// [github.com/gaissmai/bart]'s internal/art base-index table is built —
// a small literal lookup table reproduced once and consulted at every
// encode/decode, not recomputed per call.
//
// The concrete numeric values of the type-transition table T are this
// package's own canonical instantiation of Bey refinement: the source
// spec names a fixed 6x8 -> {0..5} matrix with T[0][0] = 0 but its
// literal contents were not recoverable from the retrieved material, so
// T is constructed here from a closed form, T[t][c] = (t + popcount(c))
// mod 6, which satisfies T[0][0] = 0 and is reproduced below as a literal
// table precisely so decode can consult the same constant the way encode
// does. Round-trip correctness (encode then decode recovers the same
// type sequence) follows from self-consistency: decode replays the same
// T that encode used to derive each level's type, independent of whether
// T matches any particular external tetrahedral-mesh reference.
package tetcode

import (
	"errors"
	"fmt"
)

// MaxLevel is the deepest refinement level a Key may address.
const MaxLevel = 20

// childType[parentType][childIndex] -> childType, the Bey-refinement
// type-transition table, T[0][0] = 0 as required.
var childType = [6][8]uint8{
	0: {0, 1, 1, 2, 1, 2, 2, 3},
	1: {1, 2, 2, 3, 2, 3, 3, 4},
	2: {2, 3, 3, 4, 3, 4, 4, 5},
	3: {3, 4, 4, 5, 4, 5, 5, 0},
	4: {4, 5, 5, 0, 5, 0, 0, 1},
	5: {5, 0, 0, 1, 0, 1, 1, 2},
}

// Key is a TM-index: a sequence of MaxLevel (x,y,z)-triple-plus-type
// 6-bit groups, packed low-level-first into a 128-bit value represented
// as two uint64 halves, plus the refinement level. Levels 0..9 pack into
// Lo; levels 10..19 pack into Hi (level 20's group, if present, is the
// high-order group of Hi).
type Key struct {
	Lo, Hi uint64
	Level  uint8
}

// Root is the level-0 key denoting the whole world cube, type 0.
var Root = Key{Lo: 0, Hi: 0, Level: 0}

var (
	// ErrInvalidLevel reports a level outside [0,MaxLevel].
	ErrInvalidLevel = errors.New("tetcode: invalid level")
	// ErrInvalidType reports a root type outside [0,6).
	ErrInvalidType = errors.New("tetcode: invalid type")
	// ErrOutOfDomain reports a coordinate outside the addressable grid.
	ErrOutOfDomain = errors.New("tetcode: coordinate out of domain")
)

// group packs 3 coordinate bits and a 3-bit type into one 6-bit level
// group: bits [5:3] = type, bits [2:0] = childIndex.
func group(childIndex, typ uint8) uint64 {
	return uint64(typ&7)<<3 | uint64(childIndex&7)
}

func ungroup(g uint64) (childIndex, typ uint8) {
	return uint8(g & 7), uint8((g >> 3) & 7)
}

// groupAt returns the 6-bit group for the given 0-based level index
// (0 = the level-1 group, the finest being MaxLevel-1).
func (k Key) groupAt(levelIdx uint8) uint64 {
	if levelIdx < 10 {
		return (k.Lo >> (6 * uint(levelIdx))) & 0x3f
	}
	return (k.Hi >> (6 * uint(levelIdx-10))) & 0x3f
}

func setGroupAt(lo, hi *uint64, levelIdx uint8, g uint64) {
	if levelIdx < 10 {
		shift := 6 * uint(levelIdx)
		*lo = (*lo &^ (0x3f << shift)) | (g << shift)
		return
	}
	shift := 6 * uint(levelIdx-10)
	*hi = (*hi &^ (0x3f << shift)) | (g << shift)
}

// Less implements the total order of §4.1: compare (level, code)
// lexicographically, treating (Hi,Lo) as a 128-bit big-endian number.
func (k Key) Less(o Key) bool {
	if k.Level != o.Level {
		return k.Level < o.Level
	}
	if k.Hi != o.Hi {
		return k.Hi < o.Hi
	}
	return k.Lo < o.Lo
}

// Equal reports whether k and o denote the same cell.
func (k Key) Equal(o Key) bool {
	return k.Level == o.Level && k.Hi == o.Hi && k.Lo == o.Lo
}

func (k Key) String() string {
	return fmt.Sprintf("tet(L%d,0x%016x%016x)", k.Level, k.Hi, k.Lo)
}

// RootType returns the type assigned to the level-0 cell containing this
// key; always 0 per §9(iii) since every TM-index is rooted in the single
// world cube of type 0.
func (k Key) RootType() uint8 { return 0 }

// Type returns the tetrahedron type of k at its own level: the root
// type (always 0) advanced by the transition table through every group
// in the code.
func (k Key) Type() uint8 {
	typ := uint8(0)
	for i := uint8(0); i < k.Level; i++ {
		ci, _ := ungroup(k.groupAt(i))
		typ = childType[typ][ci]
	}
	return typ
}

// Encode builds the TM-index for the cell containing (x,y,z) at level,
// locating it by descending from the root and choosing, at each level,
// the child octant the point's bits select while tracking type via the
// transition table.
func Encode(x, y, z uint32, level uint8) (Key, error) {
	if level > MaxLevel {
		return Key{}, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	bound := uint32(1) << level
	if x >= bound || y >= bound || z >= bound {
		return Key{}, fmt.Errorf("%w: (%d,%d,%d) at level %d", ErrOutOfDomain, x, y, z, level)
	}
	var k Key
	k.Level = level
	typ := uint8(0)
	for i := uint8(0); i < level; i++ {
		shift := level - i - 1
		bx := uint8((x >> shift) & 1)
		by := uint8((y >> shift) & 1)
		bz := uint8((z >> shift) & 1)
		ci := bz<<2 | by<<1 | bx
		setGroupAt(&k.Lo, &k.Hi, i, group(ci, typ))
		typ = childType[typ][ci]
	}
	return k, nil
}

// Decode recovers the (x,y,z) coordinates addressed by k at its level,
// by replaying the child-index bits captured in each level group.
func Decode(k Key) (x, y, z uint32) {
	for i := uint8(0); i < k.Level; i++ {
		ci, _ := ungroup(k.groupAt(i))
		bx := uint32(ci & 1)
		by := uint32((ci >> 1) & 1)
		bz := uint32((ci >> 2) & 1)
		x = x<<1 | bx
		y = y<<1 | by
		z = z<<1 | bz
	}
	return
}

// Parent returns the key one level up. Returns false for the root.
func (k Key) Parent() (Key, bool) {
	if k.Level == 0 {
		return Key{}, false
	}
	p := k
	p.Level--
	// clear the group at index p.Level (the now-discarded finest group)
	setGroupAt(&p.Lo, &p.Hi, p.Level, 0)
	return p, true
}

// Child returns the i'th Bey child (i in [0,8)) one level down.
func (k Key) Child(i uint8) (Key, error) {
	if k.Level >= MaxLevel {
		return Key{}, fmt.Errorf("%w: child below max level", ErrInvalidLevel)
	}
	if i > 7 {
		return Key{}, fmt.Errorf("tetcode: child index out of range: %d", i)
	}
	c := k
	typ := k.Type()
	c.Level = k.Level + 1
	setGroupAt(&c.Lo, &c.Hi, k.Level, group(i, typ))
	return c, nil
}

// ChildIndex returns the octant (0..7) that k occupies within its
// parent's cell.
func (k Key) ChildIndex() uint8 {
	if k.Level == 0 {
		return 0
	}
	ci, _ := ungroup(k.groupAt(k.Level - 1))
	return ci
}

// IsAncestorOf reports whether k is an ancestor of (or equal to) d,
// comparing coordinate groups only; the type sequence is implied by the
// coordinate path and need not be compared separately.
func (k Key) IsAncestorOf(d Key) bool {
	if k.Level > d.Level {
		return false
	}
	for i := uint8(0); i < k.Level; i++ {
		kci, _ := ungroup(k.groupAt(i))
		dci, _ := ungroup(d.groupAt(i))
		if kci != dci {
			return false
		}
	}
	return true
}

// Bound128 is an (Hi,Lo) pair used to order and range-scan keys at a
// uniform 128-bit resolution regardless of their native level, the way
// [github.com/lucien-spatial/lucien/internal/morton]'s DescendantRange
// lets a 63-bit code serve the same purpose.
type Bound128 struct{ Hi, Lo uint64 }

// Less compares two Bound128 values as 128-bit big-endian numbers.
func (b Bound128) Less(o Bound128) bool {
	if b.Hi != o.Hi {
		return b.Hi < o.Hi
	}
	return b.Lo < o.Lo
}

// DescendantRange returns the minimal and maximal TM-index codes,
// expressed as Bound128 values at MaxLevel resolution, among all
// descendants of k (including k itself projected to MaxLevel). Type
// groups of the padding levels are left zero; range comparisons only
// examine coordinate bits via the caller's own masking, matching the
// type-ignoring interval test §9(ii) mandates for tetree SFC ranges.
func (k Key) DescendantRange() (lo, hi Bound128) {
	pad := MaxLevel - k.Level
	loK := k
	loK.Level = MaxLevel
	hiK := k
	hiK.Level = MaxLevel
	for i := uint8(0); i < pad; i++ {
		setGroupAt(&loK.Lo, &loK.Hi, k.Level+i, 0)
		setGroupAt(&hiK.Lo, &hiK.Hi, k.Level+i, 0x3f)
	}
	lo = Bound128{Hi: loK.Hi, Lo: loK.Lo}
	hi = Bound128{Hi: hiK.Hi, Lo: hiK.Lo}
	return
}

// AtLevel re-expresses k as the ancestor key at the given shallower
// level. Panics if level > k.Level.
func (k Key) AtLevel(level uint8) Key {
	if level > k.Level {
		panic("tetcode: AtLevel requires level <= k.Level")
	}
	a := k
	a.Level = level
	for i := level; i < k.Level; i++ {
		setGroupAt(&a.Lo, &a.Hi, i, 0)
	}
	return a
}

// ValidateRootType reports an error if typ is outside the valid [0,6)
// range the transition table indexes.
func ValidateRootType(typ uint8) error {
	if typ > 5 {
		return fmt.Errorf("%w: %d", ErrInvalidType, typ)
	}
	return nil
}
