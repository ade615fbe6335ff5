package kernel

import "math"

// BoundingBox is an axis-aligned box. Min[i] <= Max[i] on every axis; the
// box collapses to a plane or a point for flat meshes.
type BoundingBox struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// Extend grows the box to contain p.
func (b BoundingBox) Extend(p [3]float64) BoundingBox {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
	return b
}

// Extents returns max - min per axis.
func (b BoundingBox) Extents() [3]float64 {
	return [3]float64{
		b.Max[0] - b.Min[0],
		b.Max[1] - b.Min[1],
		b.Max[2] - b.Min[2],
	}
}

// Center returns the box midpoint.
func (b BoundingBox) Center() [3]float64 {
	return [3]float64{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// MaxExtent returns the largest axis span.
func (b BoundingBox) MaxExtent() float64 {
	e := b.Extents()
	return math.Max(e[0], math.Max(e[1], e[2]))
}

// IsDegenerate reports whether the box has zero span on every axis.
func (b BoundingBox) IsDegenerate() bool {
	return b.MaxExtent() == 0
}
