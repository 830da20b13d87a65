// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package lucien

import (
	"testing"

	"github.com/lucien-spatial/lucien/internal/morton"
)

func newTestGhostLayer[V any]() *GhostLayer[MortonKey, V] {
	return newGhostLayer[MortonKey, V](mortonOps{})
}

// mortonKeyAt returns the key of cell (x,y,z) in the level-`level` grid.
func mortonKeyAt(t *testing.T, x, y, z uint32, level uint8) MortonKey {
	t.Helper()
	k, err := morton.Encode(x, y, z, level)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return MortonKey{k}
}

func TestGhostLayerAddAndGet(t *testing.T) {
	g := newTestGhostLayer[string]()
	k := mortonKeyAt(t, 1, 2, 3, 10)
	g.AddGhost(k, GhostElement[MortonKey, string]{ID: 1, Owner: 1, Pos: Point3{1, 2, 3}, Value: "x"})
	g.AddRemote(1, RemoteElement{ID: 2, Pos: Point3{4, 5, 6}})

	ghosts := g.GetGhosts(k)
	if len(ghosts) != 1 || ghosts[0].Value != "x" {
		t.Fatalf("GetGhosts = %v", ghosts)
	}
	remotes := g.GetRemotes(1)
	if len(remotes) != 1 {
		t.Fatalf("GetRemotes = %v", remotes)
	}
	ranks := g.RemoteRanks()
	if len(ranks) != 1 || ranks[0] != 1 {
		t.Fatalf("RemoteRanks = %v", ranks)
	}
}

func TestGhostLayerGetGhostsInRange(t *testing.T) {
	g := newTestGhostLayer[string]()
	kLow := mortonKeyAt(t, 1, 1, 1, 10)
	kMid := mortonKeyAt(t, 100, 100, 100, 10)
	kHigh := mortonKeyAt(t, 900, 900, 900, 10)
	g.AddGhost(kLow, GhostElement[MortonKey, string]{ID: 1, Value: "low"})
	g.AddGhost(kMid, GhostElement[MortonKey, string]{ID: 2, Value: "mid"})
	g.AddGhost(kHigh, GhostElement[MortonKey, string]{ID: 3, Value: "high"})

	got := g.GetGhostsInRange(kLow, kMid)
	if len(got) != 2 {
		t.Fatalf("GetGhostsInRange(low,mid) = %v, want 2 elements", got)
	}
	for _, e := range got {
		if e.Value == "high" {
			t.Fatalf("range scan leaked an out-of-range element: %v", got)
		}
	}
}

func TestGhostLayerClear(t *testing.T) {
	g := newTestGhostLayer[int]()
	k := mortonKeyAt(t, 1, 1, 1, 5)
	g.AddGhost(k, GhostElement[MortonKey, int]{ID: 1})
	g.Clear()
	if g.totalGhosts() != 0 {
		t.Fatal("expected 0 ghosts after Clear")
	}
}

func TestGhostBatchRoundTrip(t *testing.T) {
	g := newTestGhostLayer[string]()
	k1 := mortonKeyAt(t, 1, 2, 3, 10)
	k2 := mortonKeyAt(t, 4, 5, 6, 10)
	g.AddGhost(k1, GhostElement[MortonKey, string]{ID: 7, Owner: 3, Pos: Point3{1, 2, 3}, Value: "hello"})
	g.AddGhost(k2, GhostElement[MortonKey, string]{ID: 8, Owner: 3, Pos: Point3{4, 5, 6}, Value: "world"})

	batch, err := g.ToBatch(3, 42)
	if err != nil {
		t.Fatalf("ToBatch: %v", err)
	}
	if batch.SourceRank != 3 || batch.SourceTreeID != 42 || len(batch.Items) != 2 {
		t.Fatalf("batch = %+v", batch)
	}
	wire, err := batch.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeGhostBatch(wire)
	if err != nil {
		t.Fatalf("DecodeGhostBatch: %v", err)
	}
	if decoded.SourceRank != 3 || decoded.SourceTreeID != 42 || len(decoded.Items) != 2 {
		t.Fatalf("decoded = %+v", decoded)
	}

	g2 := newTestGhostLayer[string]()
	if err := g2.FromBatch(decoded); err != nil {
		t.Fatalf("FromBatch: %v", err)
	}
	got1 := g2.GetGhosts(k1)
	got2 := g2.GetGhosts(k2)
	if len(got1) != 1 || got1[0].Value != "hello" {
		t.Fatalf("round-tripped ghosts at k1 = %+v", got1)
	}
	if len(got2) != 1 || got2[0].Value != "world" {
		t.Fatalf("round-tripped ghosts at k2 = %+v", got2)
	}
}

func TestGhostStatsResponse(t *testing.T) {
	g := newTestGhostLayer[int]()
	k1 := mortonKeyAt(t, 1, 1, 1, 5)
	k2 := mortonKeyAt(t, 2, 2, 2, 5)
	g.AddGhost(k1, GhostElement[MortonKey, int]{ID: 1, Owner: 1})
	g.AddGhost(k1, GhostElement[MortonKey, int]{ID: 2, Owner: 1})
	g.AddGhost(k2, GhostElement[MortonKey, int]{ID: 3, Owner: 2})

	stats := g.StatsResponse()
	if stats.TotalGhosts != 3 {
		t.Fatalf("TotalGhosts = %d, want 3", stats.TotalGhosts)
	}
	if stats.PerRank[1] != 2 {
		t.Fatalf("PerRank[1] = %d, want 2", stats.PerRank[1])
	}
}
