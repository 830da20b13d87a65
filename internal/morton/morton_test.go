// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package morton

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		x, y, z uint32
		level   uint8
	}{
		{0, 0, 0, 0},
		{1, 2, 3, 5},
		{31, 0, 17, 5},
		{0, 0, 0, 21},
		{(1 << 21) - 1, (1 << 21) - 1, (1 << 21) - 1, 21},
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

func TestEncodeOutOfDomain(t *testing.T) {
	if _, err := Encode(4, 0, 0, 2); err == nil {
		t.Fatal("expected ErrOutOfDomain")
	}
}

func TestEncodeInvalidLevel(t *testing.T) {
	if _, err := Encode(0, 0, 0, 22); err == nil {
		t.Fatal("expected ErrInvalidLevel")
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

func TestTotalOrder(t *testing.T) {
	a := Key{Code: 5, Level: 2}
	b := Key{Code: 1, Level: 3}
	if !a.Less(b) {
		t.Fatal("keys at a shallower level must sort before any deeper-level key")
	}
}

func TestIsAncestorOf(t *testing.T) {
	root := Root
	k, _ := Encode(3, 3, 3, 3)
	if !root.IsAncestorOf(k) {
		t.Fatal("root must be an ancestor of every key")
	}
	if k.IsAncestorOf(root) {
		t.Fatal("a deeper key cannot be an ancestor of the root")
	}
}

func TestDescendantRangeContainsChildren(t *testing.T) {
	k, _ := Encode(1, 1, 1, 2)
	lo, hi := k.DescendantRange()
	for i := uint8(0); i < 8; i++ {
		c, _ := k.Child(i)
		d, _ := c.DescendantRange()
		dHi, _ := c.DescendantRange()
		_ = dHi
		if d.Less(lo) || hi.Less(d) {
			t.Fatalf("child %d descendant-range start %v outside parent range [%v,%v]", i, d, lo, hi)
		}
	}
}

func FuzzEncodeDecode(f *testing.F) {
	f.Add(uint32(0), uint32(0), uint32(0), uint8(10))
	f.Add(uint32(12345), uint32(6789), uint32(42), uint8(21))
	f.Fuzz(func(t *testing.T, x, y, z uint32, level uint8) {
		if level > MaxLevel {
			level = level % (MaxLevel + 1)
		}
		bound := uint32(1) << level
		if bound > 0 {
			x, y, z = x%bound, y%bound, z%bound
		} else {
			x, y, z = 0, 0, 0
		}
		k, err := Encode(x, y, z, level)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		gx, gy, gz := Decode(k)
		if gx != x || gy != y || gz != z {
			t.Fatalf("round trip: got (%d,%d,%d) want (%d,%d,%d)", gx, gy, gz, x, y, z)
		}
	})
}
