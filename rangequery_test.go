// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package lucien

import "testing"

func TestRegionIntervalsCoverWholeWorld(t *testing.T) {
	ivs, err := regionIntervals[MortonKey](mortonOps{}, AABB{Min: Point3{0, 0, 0}, Max: Point3{1 << 21, 1 << 21, 1 << 21}}, 21)
	if err != nil {
		t.Fatalf("regionIntervals: %v", err)
	}
	if len(ivs) != 1 {
		t.Fatalf("expected the whole world to collapse to one interval, got %d", len(ivs))
	}
}

func TestRegionIntervalsNonEmptyForSubRegion(t *testing.T) {
	ivs, err := regionIntervals[MortonKey](mortonOps{}, AABB{Min: Point3{10, 10, 10}, Max: Point3{20, 20, 20}}, 21)
	if err != nil {
		t.Fatalf("regionIntervals: %v", err)
	}
	if len(ivs) == 0 {
		t.Fatal("expected at least one interval for a nonempty sub-region")
	}
}

func TestTetreeEntitiesInRegion(t *testing.T) {
	tree := NewTetree[string](DefaultConfig())
	defer tree.Close()

	in, err := tree.Insert(10, 10, 10, 10, "inside")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	ids, err := tree.EntitiesInRegion(AABB{Min: Point3{0, 0, 0}, Max: Point3{100, 100, 100}})
	if err != nil {
		t.Fatalf("EntitiesInRegion: %v", err)
	}
	found := false
	for _, id := range ids {
		if id == in {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected entity %d in tetree region result %v", in, ids)
	}
}
