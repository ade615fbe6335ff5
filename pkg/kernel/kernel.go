// Package kernel defines the mesh value type and the abstract geometry
// kernel interface. Implementations (sdfx) provide the numerical primitives
// the analysis stages are defined in terms of: the volume centroid of a
// closed surface and the area of a planar convex hull. The kernel
// abstraction allows swapping backends without changing the stages.
package kernel

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// CenterMass returns the volume-weighted centroid of the solid enclosed
	// by the mesh surface. Backends fall back to a surface centroid when the
	// mesh encloses no volume.
	CenterMass(m *Mesh) ([3]float64, error)

	// HullArea returns the area of the 2D convex hull of points. It returns
	// an error wrapping ErrDegenerateGeometry when the points are collinear
	// or coincident.
	HullArea(points [][2]float64) (float64, error)
}
