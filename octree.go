// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package lucien

// Octree is a spatial index keyed by Morton (Z-order) codes.
type Octree[V any] struct {
	*Index[MortonKey, V]
}

// NewOctree constructs an Octree with the given configuration.
func NewOctree[V any](cfg Config) *Octree[V] {
	return &Octree[V]{Index: newIndex[MortonKey, V](mortonOps{}, cfg)}
}
