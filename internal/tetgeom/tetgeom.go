// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

// Package tetgeom implements the canonical geometry of the six
// tetrahedra that partition a cube (§4.1 "Tet geometry"): the vertex
// orderings and the signed-volume containment predicate.
//
// The six tetrahedra are the Kuhn (Freudenthal) triangulation of the
// unit cube: for each of the 3! = 6 orderings of the coordinate axes,
// walk the cube's main diagonal from corner 0b000 to corner 0b111,
// flipping one axis bit at a time in that order. This is a standard,
// well-known simplicial decomposition of a cube (it appears in finite
// element meshing and adaptive-refinement literature under "Kuhn
// triangulation" or "Freudenthal triangulation") and it is the
// construction this package reproduces literally as BasicType3D.
package tetgeom

// BasicType3D[type] holds, for each of the 6 tetrahedron types, the 4
// cube corners (encoded as 3-bit values: bit0=x, bit1=y, bit2=z) of its
// canonical vertex ordering, walking the cube diagonal from corner 0 to
// corner 7.
var BasicType3D = [6][4]uint8{
	0: {0, 1, 3, 7}, // axis order x,y,z
	1: {0, 1, 5, 7}, // axis order x,z,y
	2: {0, 2, 3, 7}, // axis order y,x,z
	3: {0, 2, 6, 7}, // axis order y,z,x
	4: {0, 4, 5, 7}, // axis order z,x,y
	5: {0, 4, 6, 7}, // axis order z,y,x
}

// CornerOffset returns the (x,y,z) unit-cube offset, each in {0,1}, for
// a corner index encoded as bit0=x, bit1=y, bit2=z.
func CornerOffset(corner uint8) (x, y, z uint32) {
	return uint32(corner & 1), uint32((corner >> 1) & 1), uint32((corner >> 2) & 1)
}

// Vertices returns the 4 world-coordinate vertices of the tetrahedron of
// the given type, whose enclosing cube has minimal corner (ox,oy,oz) and
// side length `size`.
func Vertices(typ uint8, ox, oy, oz, size uint32) (v [4][3]uint32) {
	for i, corner := range BasicType3D[typ] {
		dx, dy, dz := CornerOffset(corner)
		v[i] = [3]uint32{ox + dx*size, oy + dy*size, oz + dz*size}
	}
	return
}

// signedVolume6 returns six times the signed volume of the tetrahedron
// (a,b,c,d), i.e. the scalar triple product (b-a)·((c-a)×(d-a)).
// Using int64 keeps this exact for the grid's integer coordinate range.
func signedVolume6(a, b, c, d [3]int64) int64 {
	bx, by, bz := b[0]-a[0], b[1]-a[1], b[2]-a[2]
	cx, cy, cz := c[0]-a[0], c[1]-a[1], c[2]-a[2]
	dx, dy, dz := d[0]-a[0], d[1]-a[1], d[2]-a[2]

	// (c-a) x (d-a)
	cxx := cy*dz - cz*dy
	cxy := cz*dx - cx*dz
	cxz := cx*dy - cy*dx

	return bx*cxx + by*cxy + bz*cxz
}

func to64(v [3]uint32) [3]int64 {
	return [3]int64{int64(v[0]), int64(v[1]), int64(v[2])}
}

// Contains reports whether point p lies within (or on the boundary of)
// the tetrahedron with vertices v0..v3, using four signed-volume
// (triple-product) tests, one per face, each compared against the sign of
// the tetrahedron's own volume. Boundary
// points (where a triple product is exactly zero) are considered
// contained; the caller resolves ties between adjacent tetrahedra by
// the (type, index) rule described in §4.1.
func Contains(v [4][3]uint32, p [3]uint32) bool {
	a, b, c, d := to64(v[0]), to64(v[1]), to64(v[2]), to64(v[3])
	q := to64(p)

	// reference orientation: sign of the tet's own volume
	vol := signedVolume6(a, b, c, d)
	if vol == 0 {
		return false
	}

	// replace one vertex at a time with the query point and compare the
	// sign of the resulting sub-tet volume against the reference sign;
	// p is inside iff every sub-tet has the same sign (or is degenerate).
	faces := [4][4][3]int64{
		{q, b, c, d},
		{a, q, c, d},
		{a, b, q, d},
		{a, b, c, q},
	}

	for _, f := range faces {
		sv := signedVolume6(f[0], f[1], f[2], f[3])
		if sv == 0 {
			continue // on the boundary of this face
		}
		if (sv > 0) != (vol > 0) {
			return false
		}
	}
	return true
}
