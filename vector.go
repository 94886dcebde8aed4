package cellmap

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Float is the scalar type constraint propagated through every exported
// generic type in this package. Coordinates are stored as flat []T slices
// (length Dim, 2 or 3) rather than fixed-size arrays: Go has no array-length
// generics, and this keeps every hot loop a plain slice walk, matching the
// teacher's row-major []float64 convention.
type Float interface {
	~float32 | ~float64
}

// sqrtT computes the square root of a generic Float by round-tripping
// through float64. Both float32 and float64 have enough mantissa bits that
// this is exact for the ranges the engine deals in.
func sqrtT[T Float](v T) T {
	return T(math.Sqrt(float64(v)))
}

// sub writes a-b into dst and returns it. dst may alias neither a nor b's
// backing array being reused elsewhere, but may alias a itself.
func sub[T Float](dst, a, b []T) []T {
	for i := range dst {
		dst[i] = a[i] - b[i]
	}
	return dst
}

// dot returns the dot product of a and b, which must have equal length.
func dot[T Float](a, b []T) T {
	var s T
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// dist2 returns the squared Euclidean distance between a and b.
func dist2[T Float](a, b []T) T {
	var s T
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// addScaled writes dst = a + scale*b and returns it.
func addScaled[T Float](dst, a, b []T, scale T) []T {
	for i := range dst {
		dst[i] = a[i] + scale*b[i]
	}
	return dst
}

// ToR2 converts a 2D point ([]float64 of length 2) into a gonum r2.Vec, for
// callers that already work in terms of gonum's spatial vector types.
func ToR2(p []float64) r2.Vec {
	return r2.Vec{X: p[0], Y: p[1]}
}

// FromR2 converts a gonum r2.Vec into a freshly allocated 2D point.
func FromR2(v r2.Vec) []float64 {
	return []float64{v.X, v.Y}
}

// ToR3 converts a 3D point ([]float64 of length 3) into a gonum r3.Vec.
func ToR3(p []float64) r3.Vec {
	return r3.Vec{X: p[0], Y: p[1], Z: p[2]}
}

// FromR3 converts a gonum r3.Vec into a freshly allocated 3D point.
func FromR3(v r3.Vec) []float64 {
	return []float64{v.X, v.Y, v.Z}
}

// PointsFromR2 converts a slice of gonum r2.Vec into the [][]float64 point
// layout every constructor in this package accepts.
func PointsFromR2(vs []r2.Vec) [][]float64 {
	pts := make([][]float64, len(vs))
	for i, v := range vs {
		pts[i] = FromR2(v)
	}
	return pts
}

// PointsFromR3 converts a slice of gonum r3.Vec into the [][]float64 point
// layout every constructor in this package accepts.
func PointsFromR3(vs []r3.Vec) [][]float64 {
	pts := make([][]float64, len(vs))
	for i, v := range vs {
		pts[i] = FromR3(v)
	}
	return pts
}
