// math/geom.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

///////////////////////////////////////////////////////////////////////////
// Extent2D

// Extent2D is an axis-aligned rectangle on the horizontal (x, z) plane
// with P0 at its minimum corner and P1 at its maximum corner.
type Extent2D struct {
	P0, P1 [2]float64
}

// SquareAround returns the square extent of the given side length
// centered at p.
func SquareAround(p [2]float64, side float64) Extent2D {
	h := side / 2
	return Extent2D{
		P0: [2]float64{p[0] - h, p[1] - h},
		P1: [2]float64{p[0] + h, p[1] + h},
	}
}

func (e Extent2D) Width() float64 {
	return e.P1[0] - e.P0[0]
}

func (e Extent2D) Height() float64 {
	return e.P1[1] - e.P0[1]
}

func (e Extent2D) Center() [2]float64 {
	return [2]float64{(e.P0[0] + e.P1[0]) / 2, (e.P0[1] + e.P1[1]) / 2}
}

// Inside reports whether the point p is inside e; points on the boundary
// count as inside.
func (e Extent2D) Inside(p [2]float64) bool {
	return p[0] >= e.P0[0] && p[0] <= e.P1[0] && p[1] >= e.P0[1] && p[1] <= e.P1[1]
}

// Contains reports whether all of o lies inside e.
func (e Extent2D) Contains(o Extent2D) bool {
	return e.Inside(o.P0) && e.Inside(o.P1)
}

// Overlaps returns true if the two provided Extent2Ds share interior
// area; rectangles that only touch along an edge do not overlap.
func Overlaps(a Extent2D, b Extent2D) bool {
	x := (a.P1[0] > b.P0[0]) && (a.P0[0] < b.P1[0])
	y := (a.P1[1] > b.P0[1]) && (a.P0[1] < b.P1[1])
	return x && y
}

// Distance2f returns the distance between two points in the plane.
func Distance2f(a, b [2]float64) float64 {
	return Sqrt(Sqr(a[0]-b[0]) + Sqr(a[1]-b[1]))
}
