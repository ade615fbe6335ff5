package kernel

import "fmt"

// Mesh is an indexed triangle mesh.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z) and
// indices has 3 uint32s per triangle. Stages treat a Mesh as immutable.
type Mesh struct {
	Vertices []float64 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // container member this mesh came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Indices) == 0
}

// Vertex returns the position of vertex i.
func (m *Mesh) Vertex(i int) [3]float64 {
	j := i * 3
	return [3]float64{m.Vertices[j], m.Vertices[j+1], m.Vertices[j+2]}
}

// Face returns the three vertex indices of triangle i.
func (m *Mesh) Face(i int) [3]uint32 {
	j := i * 3
	return [3]uint32{m.Indices[j], m.Indices[j+1], m.Indices[j+2]}
}

// Triangle returns the three corner positions of triangle i.
func (m *Mesh) Triangle(i int) (a, b, c [3]float64) {
	f := m.Face(i)
	return m.Vertex(int(f[0])), m.Vertex(int(f[1])), m.Vertex(int(f[2]))
}

// Validate checks the structural invariants: flat arrays are multiples of
// three and every index addresses an existing vertex. Zero-area faces are
// allowed.
func (m *Mesh) Validate() error {
	if len(m.Vertices)%3 != 0 {
		return fmt.Errorf("mesh %q: vertex array length %d is not a multiple of 3: %w",
			m.Name, len(m.Vertices), ErrUnsupportedGeometry)
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("mesh %q: index array length %d is not a multiple of 3: %w",
			m.Name, len(m.Indices), ErrUnsupportedGeometry)
	}
	n := uint32(m.VertexCount())
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("mesh %q: index %d at position %d out of range (%d vertices): %w",
				m.Name, idx, i, n, ErrUnsupportedGeometry)
		}
	}
	return nil
}

// Bounds returns the axis-aligned bounding box of all vertices. An empty
// mesh has the zero box.
func (m *Mesh) Bounds() BoundingBox {
	if m.VertexCount() == 0 {
		return BoundingBox{}
	}
	bb := BoundingBox{Min: m.Vertex(0), Max: m.Vertex(0)}
	for i := 1; i < m.VertexCount(); i++ {
		bb = bb.Extend(m.Vertex(i))
	}
	return bb
}

// Concat merges meshes into one mesh named name, re-indexing each mesh's
// faces against the merged vertex list. Nil meshes are skipped.
func Concat(name string, meshes ...*Mesh) *Mesh {
	var nv, ni int
	for _, part := range meshes {
		if part == nil {
			continue
		}
		nv += len(part.Vertices)
		ni += len(part.Indices)
	}

	out := &Mesh{
		Vertices: make([]float64, 0, nv),
		Indices:  make([]uint32, 0, ni),
		Name:     name,
	}
	for _, part := range meshes {
		if part == nil {
			continue
		}
		offset := uint32(out.VertexCount())
		out.Vertices = append(out.Vertices, part.Vertices...)
		for _, idx := range part.Indices {
			out.Indices = append(out.Indices, idx+offset)
		}
	}
	return out
}
