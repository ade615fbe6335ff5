// Package sdfx implements the kernel.Kernel interface using the vector and
// triangle types of the github.com/deadsy/sdfx CAD library.
package sdfx

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/whitedwarf/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// degenerateTolerance scales with the mesh size: a signed volume below
// tolerance*extent^3 (or an area below tolerance*extent^2) counts as zero.
const degenerateTolerance = 1e-9

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

func toVec(p [3]float64) v3.Vec {
	return v3.Vec{X: p[0], Y: p[1], Z: p[2]}
}

func fromVec(v v3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func length(v v3.Vec) float64 {
	return math.Sqrt(v.Dot(v))
}

// CenterMass returns the centroid of the solid bounded by the mesh, summing
// signed tetrahedra against the bounding box centre. When the enclosed
// volume vanishes (open or flat meshes) it falls back to the area-weighted
// surface centroid, and when every face has zero area to the vertex mean.
func (k *SdfxKernel) CenterMass(m *kernel.Mesh) ([3]float64, error) {
	if m.VertexCount() == 0 {
		return [3]float64{}, fmt.Errorf("sdfx: center of mass of mesh %q with no vertices: %w",
			m.Name, kernel.ErrDegenerateGeometry)
	}

	bb := m.Bounds()
	origin := toVec(bb.Center())
	ext := bb.MaxExtent()

	var volume, area float64
	var volumeSum, areaSum v3.Vec
	for i := 0; i < m.TriangleCount(); i++ {
		pa, pb, pc := m.Triangle(i)
		a := toVec(pa).Sub(origin)
		b := toVec(pb).Sub(origin)
		c := toVec(pc).Sub(origin)
		centroid := a.Add(b).Add(c)

		v := a.Dot(b.Cross(c)) / 6
		volume += v
		volumeSum = volumeSum.Add(centroid.MulScalar(v / 4))

		s := length(b.Sub(a).Cross(c.Sub(a))) / 2
		area += s
		areaSum = areaSum.Add(centroid.MulScalar(s / 3))
	}

	if math.Abs(volume) > degenerateTolerance*ext*ext*ext {
		return fromVec(volumeSum.MulScalar(1 / volume).Add(origin)), nil
	}
	if area > degenerateTolerance*ext*ext {
		return fromVec(areaSum.MulScalar(1 / area).Add(origin)), nil
	}

	var sum v3.Vec
	for i := 0; i < m.VertexCount(); i++ {
		sum = sum.Add(toVec(m.Vertex(i)))
	}
	return fromVec(sum.MulScalar(1 / float64(m.VertexCount()))), nil
}

func cross2(o, a, b v2.Vec) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// hull returns the convex hull of pts in counter-clockwise order using
// Andrew's monotone chain. Collinear points on an edge are dropped.
func hull(pts []v2.Vec) []v2.Vec {
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	h := make([]v2.Vec, 0, 2*len(pts))
	for _, p := range pts {
		for len(h) >= 2 && cross2(h[len(h)-2], h[len(h)-1], p) <= 0 {
			h = h[:len(h)-1]
		}
		h = append(h, p)
	}
	lower := len(h) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(h) >= lower && cross2(h[len(h)-2], h[len(h)-1], p) <= 0 {
			h = h[:len(h)-1]
		}
		h = append(h, p)
	}
	return h[:len(h)-1]
}

// HullArea returns the area of the 2D convex hull of points. Fewer than
// three distinct non-collinear points is ErrDegenerateGeometry.
func (k *SdfxKernel) HullArea(points [][2]float64) (float64, error) {
	if len(points) < 3 {
		return 0, fmt.Errorf("sdfx: hull of %d points: %w", len(points), kernel.ErrDegenerateGeometry)
	}

	pts := make([]v2.Vec, len(points))
	var minX, maxX, minY, maxY float64
	for i, p := range points {
		pts[i] = v2.Vec{X: p[0], Y: p[1]}
		if i == 0 || p[0] < minX {
			minX = p[0]
		}
		if i == 0 || p[0] > maxX {
			maxX = p[0]
		}
		if i == 0 || p[1] < minY {
			minY = p[1]
		}
		if i == 0 || p[1] > maxY {
			maxY = p[1]
		}
	}

	h := hull(pts)
	if len(h) < 3 {
		return 0, fmt.Errorf("sdfx: hull has %d vertices: %w", len(h), kernel.ErrDegenerateGeometry)
	}

	// Shoelace.
	var twice float64
	for i := range h {
		j := (i + 1) % len(h)
		twice += h[i].X*h[j].Y - h[j].X*h[i].Y
	}
	area := math.Abs(twice) / 2

	span := math.Max(maxX-minX, maxY-minY)
	if area <= degenerateTolerance*span*span {
		return 0, fmt.Errorf("sdfx: hull area %g: %w", area, kernel.ErrDegenerateGeometry)
	}
	return area, nil
}

// Triangles converts the mesh into an sdfx triangle soup. Zero-area faces
// are dropped since they have no defined normal.
func Triangles(m *kernel.Mesh) []*sdf.Triangle3 {
	out := make([]*sdf.Triangle3, 0, m.TriangleCount())
	for i := 0; i < m.TriangleCount(); i++ {
		pa, pb, pc := m.Triangle(i)
		a, b, c := toVec(pa), toVec(pb), toVec(pc)
		if length(b.Sub(a).Cross(c.Sub(a))) == 0 {
			continue
		}
		out = append(out, &sdf.Triangle3{a, b, c})
	}
	return out
}

// SaveSTL writes the mesh to path as binary STL.
func SaveSTL(path string, m *kernel.Mesh) error {
	tris := Triangles(m)
	if len(tris) == 0 {
		return fmt.Errorf("sdfx: mesh %q has no non-degenerate triangles: %w",
			m.Name, kernel.ErrDegenerateGeometry)
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return fmt.Errorf("sdfx: save stl: %w", err)
	}
	return nil
}

// FromSDF tessellates an SDF solid with marching cubes and welds the
// resulting triangle soup into an indexed mesh.
func FromSDF(name string, s sdf.SDF3, cells int) *kernel.Mesh {
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(s, renderer)

	m := &kernel.Mesh{
		Name:     name,
		Vertices: make([]float64, 0, len(triangles)*3),
		Indices:  make([]uint32, 0, len(triangles)*3),
	}
	seen := make(map[[3]float64]uint32, len(triangles))
	for _, tri := range triangles {
		for j := 0; j < 3; j++ {
			p := fromVec(tri[j])
			idx, ok := seen[p]
			if !ok {
				idx = uint32(m.VertexCount())
				seen[p] = idx
				m.Vertices = append(m.Vertices, p[0], p[1], p[2])
			}
			m.Indices = append(m.Indices, idx)
		}
	}
	return m
}
