// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package lucien

import "testing"

func TestOctreeInsertLookupRemove(t *testing.T) {
	tree := NewOctree[string](DefaultConfig())
	defer tree.Close()

	id, err := tree.Insert(10, 20, 30, 8, "alpha")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	v, err := tree.Lookup(id)
	if err != nil || v != "alpha" {
		t.Fatalf("Lookup(%d) = (%q, %v), want (alpha, nil)", id, v, err)
	}
	if !tree.Contains(id) {
		t.Fatal("Contains should report true right after Insert")
	}
	if !tree.Remove(id) {
		t.Fatal("Remove should succeed for a known id")
	}
	if tree.Contains(id) {
		t.Fatal("Contains should report false after Remove")
	}
	if _, err := tree.Lookup(id); err == nil {
		t.Fatal("Lookup after Remove should fail")
	}
}

func TestVersionMonotonicity(t *testing.T) {
	tree := NewOctree[int](DefaultConfig())
	defer tree.Close()

	v0 := tree.Version()
	id, _ := tree.Insert(1, 1, 1, 8, 1)
	v1 := tree.Version()
	if v1 <= v0 {
		t.Fatalf("version did not advance on Insert: %d -> %d", v0, v1)
	}
	tree.Update(id, 2, 2, 2, 8)
	v2 := tree.Version()
	if v2 <= v1 {
		t.Fatalf("version did not advance on Update: %d -> %d", v1, v2)
	}
	tree.Remove(id)
	v3 := tree.Version()
	if v3 <= v2 {
		t.Fatalf("version did not advance on Remove: %d -> %d", v2, v3)
	}
}

func TestNoEmptyNodesPersist(t *testing.T) {
	tree := NewOctree[int](DefaultConfig())
	defer tree.Close()

	id, _ := tree.Insert(5, 5, 5, 6, 1)
	if tree.StatsSnapshot().NodeCount == 0 {
		t.Fatal("expected at least one node after insert")
	}
	tree.Remove(id)
	if n := tree.StatsSnapshot().NodeCount; n != 0 {
		t.Fatalf("NodeCount = %d after removing the only entity, want 0", n)
	}
}

func TestEntitiesInRegion(t *testing.T) {
	tree := NewOctree[string](DefaultConfig())
	defer tree.Close()

	in, _ := tree.Insert(10, 10, 10, 10, "inside")
	tree.Insert(900, 900, 900, 10, "outside")

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
		t.Fatalf("expected entity %d in region result %v", in, ids)
	}
	for _, id := range ids {
		if v, _ := tree.Lookup(id); v == "outside" {
			t.Fatal("region query returned an entity outside the box")
		}
	}
}

func TestKNearest(t *testing.T) {
	tree := NewOctree[string](DefaultConfig())
	defer tree.Close()

	near, _ := tree.Insert(100, 100, 100, 12, "near")
	tree.Insert(2000, 2000, 2000, 12, "far")

	ids, err := tree.KNearest(Point3{100, 100, 101}, 1, 0)
	if err != nil {
		t.Fatalf("KNearest: %v", err)
	}
	if len(ids) != 1 || ids[0] != near {
		t.Fatalf("KNearest = %v, want [%d]", ids, near)
	}
}

func TestKNNCacheHitOnRepeatedQuery(t *testing.T) {
	tree := NewOctree[string](DefaultConfig())
	defer tree.Close()
	tree.Insert(100, 100, 100, 12, "a")

	q := Point3{100, 100, 100}
	if _, err := tree.KNearest(q, 1, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := tree.KNearest(q, 1, 0); err != nil {
		t.Fatal(err)
	}
	stats := tree.KNNCacheStats()
	if stats.Hits == 0 {
		t.Fatal("expected at least one cache hit on a repeated query")
	}
}

func TestKNNCacheInvalidatedByMutation(t *testing.T) {
	tree := NewOctree[string](DefaultConfig())
	defer tree.Close()
	id, _ := tree.Insert(100, 100, 100, 12, "a")

	q := Point3{100, 100, 100}
	first, _ := tree.KNearest(q, 1, 0)
	tree.Remove(id)
	second, _ := tree.KNearest(q, 1, 0)
	if len(first) == len(second) && len(first) > 0 {
		t.Fatal("expected k-NN result to reflect removal, not a stale cached value")
	}
}

func TestNeighborSymmetry(t *testing.T) {
	tree := NewOctree[string](DefaultConfig())
	defer tree.Close()

	// a level-6 cell is 2^15 wide, so x=32776 lies in the next cell along +x.
	kA, _ := tree.ops.encode(8, 8, 8, 6)
	kB, _ := tree.ops.encode(32776, 8, 8, 6)
	tree.Insert(8, 8, 8, 6, "a")
	tree.Insert(32776, 8, 8, 6, "b")

	neighborsOfA := tree.FaceNeighbors(kA)
	foundB := false
	for _, n := range neighborsOfA {
		if n == kB {
			foundB = true
		}
	}
	if !foundB {
		t.Fatalf("expected %v in face neighbors of %v: %v", kB, kA, neighborsOfA)
	}

	neighborsOfB := tree.FaceNeighbors(kB)
	foundA := false
	for _, n := range neighborsOfB {
		if n == kA {
			foundA = true
		}
	}
	if !foundA {
		t.Fatalf("neighbor relation is not symmetric: %v missing from %v", kA, neighborsOfB)
	}
}

func TestTraverseDFSVisitsEveryNode(t *testing.T) {
	tree := NewOctree[int](DefaultConfig())
	defer tree.Close()
	for i := 0; i < 5; i++ {
		tree.Insert(uint32(i*10), uint32(i*10), uint32(i*10), 10, i)
	}

	visited := 0
	tree.Traverse(DFS, Visitor[MortonKey]{
		VisitNode: func(key MortonKey, level uint8, entityCount int) bool {
			visited++
			return true
		},
	})
	if visited != tree.StatsSnapshot().NodeCount {
		t.Fatalf("visited %d nodes, want %d", visited, tree.StatsSnapshot().NodeCount)
	}
}

func TestTraverseCancellation(t *testing.T) {
	tree := NewOctree[int](DefaultConfig())
	defer tree.Close()
	for i := 0; i < 5; i++ {
		tree.Insert(uint32(i*10), uint32(i*10), uint32(i*10), 10, i)
	}

	visited := 0
	tree.Traverse(DFS, Visitor[MortonKey]{
		VisitNode: func(key MortonKey, level uint8, entityCount int) bool {
			visited++
			return false
		},
	})
	if visited != 1 {
		t.Fatalf("visited %d nodes after cancellation, want 1", visited)
	}
}

func TestLookupAtScenarioA_ThreeEntitiesSameCell(t *testing.T) {
	tree := NewOctree[string](DefaultConfig())
	defer tree.Close()

	e1, _ := tree.Insert(100, 100, 100, 10, "E1")
	e2, _ := tree.Insert(100, 100, 100, 10, "E2")
	e3, _ := tree.Insert(100, 100, 100, 10, "E3")

	ids, err := tree.LookupAt(Point3{100, 100, 100}, 10)
	if err != nil {
		t.Fatalf("LookupAt: %v", err)
	}
	want := map[ID]bool{e1: true, e2: true, e3: true}
	if len(ids) != 3 {
		t.Fatalf("LookupAt = %v, want 3 ids", ids)
	}
	for _, id := range ids {
		if !want[id] {
			t.Fatalf("unexpected id %d in %v", id, ids)
		}
	}
	stats := tree.StatsSnapshot()
	if stats.EntityCount != 3 {
		t.Fatalf("EntityCount = %d, want 3", stats.EntityCount)
	}
	if stats.NodeCount != 1 {
		t.Fatalf("NodeCount = %d, want 1", stats.NodeCount)
	}
}

func TestLookupAtScenarioB_RemoveOneOfThree(t *testing.T) {
	tree := NewOctree[string](DefaultConfig())
	defer tree.Close()

	e1, _ := tree.Insert(100, 100, 100, 10, "E1")
	e2, _ := tree.Insert(100, 100, 100, 10, "E2")
	e3, _ := tree.Insert(100, 100, 100, 10, "E3")

	if !tree.Remove(e2) {
		t.Fatal("Remove(e2) should succeed the first time")
	}
	ids, err := tree.LookupAt(Point3{100, 100, 100}, 10)
	if err != nil {
		t.Fatalf("LookupAt: %v", err)
	}
	want := map[ID]bool{e1: true, e3: true}
	if len(ids) != 2 {
		t.Fatalf("LookupAt after remove = %v, want 2 ids", ids)
	}
	for _, id := range ids {
		if !want[id] {
			t.Fatalf("unexpected id %d in %v", id, ids)
		}
	}
	if tree.Remove(e2) {
		t.Fatal("second Remove(e2) should return false")
	}
}

func TestLookupAtScenarioC_UpdateAcrossCells(t *testing.T) {
	tree := NewOctree[string](DefaultConfig())
	defer tree.Close()

	m, err := tree.Insert(300, 300, 300, 10, "M")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tree.Update(m, 3000, 3000, 3000, 10); err != nil {
		t.Fatalf("Update: %v", err)
	}

	oldIDs, err := tree.LookupAt(Point3{300, 300, 300}, 10)
	if err != nil {
		t.Fatalf("LookupAt(old): %v", err)
	}
	if len(oldIDs) != 0 {
		t.Fatalf("LookupAt(old) = %v, want empty", oldIDs)
	}

	newIDs, err := tree.LookupAt(Point3{3000, 3000, 3000}, 10)
	if err != nil {
		t.Fatalf("LookupAt(new): %v", err)
	}
	if len(newIDs) != 1 || newIDs[0] != m {
		t.Fatalf("LookupAt(new) = %v, want [%d]", newIDs, m)
	}

	pos, err := tree.Position(m)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if pos != (Point3{3000, 3000, 3000}) {
		t.Fatalf("Position = %v, want (3000,3000,3000)", pos)
	}
}

func TestSpanSetInvariant(t *testing.T) {
	tree := NewOctree[string](DefaultConfig())
	defer tree.Close()
	id, err := tree.InsertWithBounds(Point3{50, 50, 50}, AABB{Min: Point3{40, 40, 40}, Max: Point3{60, 60, 60}}, 8, "big")
	if err != nil {
		t.Fatal(err)
	}
	n, err := tree.SpanCount(id)
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Fatal("a bounded entity must span at least one node")
	}
}
