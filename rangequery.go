// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package lucien

// litmaxBigmin splits the address space [lo,hi] into contiguous SFC
// intervals, by repeated halving, and returns the pieces that together
// cover the code range [qlo,qhi] clipped to [lo,hi] (§4.5). It works on
// the code range alone and never tests a piece against the query box:
// the result covers every code between the box's two corner codes,
// including cells that lie outside the box, and adjacent pieces are not
// merged, so the list is not minimal. Callers filter candidates by exact
// geometry.
//
// This implementation works over a uniform 128-bit (Hi,Lo) code space;
// MortonKey uses only the Lo half (Hi always 0), TetreeKey uses both.
// For tetree keys the interval test ignores type bits: the caller masks
// them out of qlo/qhi/lo/hi before calling, and revalidates each
// resulting candidate key's type separately (§9(ii)).
func litmaxBigmin(lo, hi, qlo, qhi bound128) []interval {
	if qhi.less(lo) || hi.less(qlo) {
		return nil
	}
	if !lo.less(qlo) && !qhi.less(hi) {
		return []interval{{lo, hi}}
	}
	// binary split at the midpoint of [lo,hi]'s Lo half (both kinds keep
	// all interesting bits in Lo for any individual level's code domain,
	// since Hi is only used to extend resolution across the 128-bit
	// packed TM-index, not to split within one level).
	if lo.Hi != hi.Hi {
		midHi := lo.Hi + (hi.Hi-lo.Hi)/2
		left := bound128{Hi: midHi, Lo: ^uint64(0)}
		right := bound128{Hi: midHi + 1, Lo: 0}
		return append(litmaxBigmin(lo, left, qlo, qhi), litmaxBigmin(right, hi, qlo, qhi)...)
	}
	if lo.Lo >= hi.Lo {
		return []interval{{lo, hi}}
	}
	mid := lo.Lo + (hi.Lo-lo.Lo)/2
	left := bound128{Hi: lo.Hi, Lo: mid}
	right := bound128{Hi: lo.Hi, Lo: mid + 1}
	return append(litmaxBigmin(lo, left, qlo, qhi), litmaxBigmin(right, hi, qlo, qhi)...)
}

type interval struct{ Lo, Hi bound128 }

// regionIntervals converts an AABB into the set of contiguous key
// intervals (in the uniform bound128 space) that cover it, by encoding
// the box's two corners at MaxLevel resolution and running
// litmaxBigmin over the whole addressable range.
func regionIntervals[K SpatialKey](ops keyOps[K], aabb AABB, maxLevel uint8) ([]interval, error) {
	loK, err := ops.encode(aabb.Min.X, aabb.Min.Y, aabb.Min.Z, maxLevel)
	if err != nil {
		return nil, err
	}
	hx, hy, hz := aabb.Max.X, aabb.Max.Y, aabb.Max.Z
	if hx > 0 {
		hx--
	}
	if hy > 0 {
		hy--
	}
	if hz > 0 {
		hz--
	}
	hiK, err := ops.encode(hx, hy, hz, maxLevel)
	if err != nil {
		return nil, err
	}
	qlo, _ := ops.bound(loK)
	_, qhi := ops.bound(hiK)
	worldLo, worldHi := ops.bound(ops.root())
	return litmaxBigmin(worldLo, worldHi, qlo, qhi), nil
}

// EntitiesInRegion returns the IDs of every entity whose recorded
// position or bounds overlaps aabb (§4.4, §4.5). Candidate cells are
// found via LITMAX/BIGMIN range-scanning the node map at the
// MaxLevel-resolution bound128 ordering (catching materialized nodes at
// any level nested within the query footprint), plus an ancestor-corner
// walk (catching coarser materialized ancestors whose cell only
// partially starts before the query range).
func (ix *Index[K, V]) EntitiesInRegion(aabb AABB) ([]ID, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	seen := make(map[ID]struct{})
	var out []ID
	add := func(id ID) {
		if _, ok := seen[id]; ok {
			return
		}
		rec, ok := ix.store.get(id)
		if !ok {
			return
		}
		if rec.bounds != nil {
			if !rec.bounds.Intersects(aabb) {
				return
			}
		} else if !aabb.Contains(rec.pos) {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	ivs, err := regionIntervals[K](ix.ops, aabb, ix.cfg.MaxLevel)
	if err != nil {
		return nil, newErr(CodecError, "entities_in_region", err)
	}
	for _, iv := range ivs {
		ix.nodes.ascendBound(iv.Lo, iv.Hi, func(r *nodeRecord[K]) bool {
			for _, id := range r.ids {
				add(id)
			}
			return true
		})
	}

	// ancestor-corner check: coarser materialized nodes whose cell
	// contains the query box's min corner but whose own bound128 starts
	// before qlo won't appear in the scan above.
	k, err := ix.ops.encode(aabb.Min.X, aabb.Min.Y, aabb.Min.Z, ix.cfg.MaxLevel)
	if err == nil {
		for l := int(ix.cfg.MaxLevel); l >= 0; l-- {
			ak := ix.ops.atLevel(k, uint8(l))
			if r, ok := ix.nodes.get(ak); ok {
				for _, id := range r.ids {
					add(id)
				}
			}
		}
	}
	return out, nil
}
