package export

import (
	"github.com/fogleman/simplify"

	"github.com/chazu/whitedwarf/pkg/kernel"
)

// Simplify decimates m to roughly factor of its triangle count using
// quadric error collapse. Factors outside (0,1) return m unchanged.
func Simplify(m *kernel.Mesh, factor float64) *kernel.Mesh {
	if m == nil || factor <= 0 || factor >= 1 || m.IsEmpty() {
		return m
	}

	tris := make([]*simplify.Triangle, 0, m.TriangleCount())
	for i := 0; i < m.TriangleCount(); i++ {
		a, b, c := m.Triangle(i)
		if a == b || b == c || a == c {
			continue
		}
		tris = append(tris, simplify.NewTriangle(vec(a), vec(b), vec(c)))
	}
	if len(tris) == 0 {
		return m
	}
	reduced := simplify.NewMesh(tris).Simplify(factor)

	out := &kernel.Mesh{Name: m.Name}
	seen := make(map[simplify.Vector]uint32)
	add := func(v simplify.Vector) uint32 {
		if idx, ok := seen[v]; ok {
			return idx
		}
		idx := uint32(out.VertexCount())
		seen[v] = idx
		out.Vertices = append(out.Vertices, v.X, v.Y, v.Z)
		return idx
	}
	for _, t := range reduced.Triangles {
		out.Indices = append(out.Indices, add(t.V1), add(t.V2), add(t.V3))
	}
	if out.IsEmpty() {
		return m
	}
	return out
}

func vec(p [3]float64) simplify.Vector {
	return simplify.Vector{X: p[0], Y: p[1], Z: p[2]}
}
