// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package tetcode

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		x, y, z uint32
		level   uint8
	}{
		{0, 0, 0, 0},
		{1, 2, 3, 5},
		{0, 0, 0, 20},
		{(1 << 20) - 1, (1 << 20) - 1, (1 << 20) - 1, 20},
	}
	for _, c := range cases {
		k, err := Encode(c.x, c.y, c.z, c.level)
		if err != nil {
			t.Fatalf("Encode(%d,%d,%d,%d): %v", c.x, c.y, c.z, c.level, err)
		}
		gx, gy, gz := Decode(k)
		if gx != c.x || gy != c.y || gz != c.z {
			t.Fatalf("round trip mismatch: got (%d,%d,%d), want (%d,%d,%d)", gx, gy, gz, c.x, c.y, c.z)
		}
	}
}

func TestRootTypeIsZero(t *testing.T) {
	if Root.Type() != 0 {
		t.Fatalf("root type = %d, want 0", Root.Type())
	}
	if childType[0][0] != 0 {
		t.Fatal("T[0][0] must be 0")
	}
}

func TestParentChildConsistency(t *testing.T) {
	k, err := Encode(5, 9, 2, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := uint8(0); i < 8; i++ {
		c, err := k.Child(i)
		if err != nil {
			t.Fatal(err)
		}
		p, ok := c.Parent()
		if !ok || !p.Equal(k) {
			t.Fatalf("child(%d).Parent() = %v, want %v", i, p, k)
		}
		if c.ChildIndex() != i {
			t.Fatalf("ChildIndex() = %d, want %d", c.ChildIndex(), i)
		}
	}
}

func TestTypeTableBounds(t *testing.T) {
	for t0 := 0; t0 < 6; t0++ {
		for c := 0; c < 8; c++ {
			if childType[t0][c] > 5 {
				t.Fatalf("childType[%d][%d] = %d out of range", t0, c, childType[t0][c])
			}
		}
	}
}

func TestEncodeOutOfDomain(t *testing.T) {
	if _, err := Encode(4, 0, 0, 2); err == nil {
		t.Fatal("expected ErrOutOfDomain")
	}
}

func TestIsAncestorOf(t *testing.T) {
	root := Root
	k, _ := Encode(3, 3, 3, 3)
	if !root.IsAncestorOf(k) {
		t.Fatal("root must be an ancestor of every key")
	}
}
