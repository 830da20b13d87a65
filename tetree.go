// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package lucien

import "github.com/lucien-spatial/lucien/internal/tetcode"

// Tetree is a spatial index keyed by TM-indices over the tetrahedral
// decomposition of the grid.
type Tetree[V any] struct {
	*Index[TetreeKey, V]
}

// NewTetree constructs a Tetree with the given configuration. The
// tetree's addressable depth tops out one level shallower than the
// octree's (internal/tetcode.MaxLevel, a consequence of the TM-index's
// 128-bit packing budget: 6 bits/level leaves room for 21 groups, but
// the last is reserved so Hi/Lo splits cleanly at 10 groups each) — a
// caller-supplied MaxLevel above that is clamped down.
func NewTetree[V any](cfg Config) *Tetree[V] {
	if cfg.MaxLevel > tetcode.MaxLevel || cfg.MaxLevel == 21 {
		cfg.MaxLevel = tetcode.MaxLevel
	}
	return &Tetree[V]{Index: newIndex[TetreeKey, V](tetOps{}, cfg)}
}
