// Package kerneltest builds small closed meshes for tests across the
// stage packages.
package kerneltest

import "github.com/chazu/whitedwarf/pkg/kernel"

// boxQuads lists the six faces of a box as corner quads with outward
// counter-clockwise winding. Corner i has x = i&1, y = (i>>1)&1, z = (i>>2)&1.
var boxQuads = [6][4]uint32{
	{0, 2, 3, 1}, // -z
	{4, 5, 7, 6}, // +z
	{0, 1, 5, 4}, // -y
	{2, 6, 7, 3}, // +y
	{0, 4, 6, 2}, // -x
	{1, 3, 7, 5}, // +x
}

// Box returns a closed, outward-wound box spanning min to max.
func Box(name string, min, max [3]float64) *kernel.Mesh {
	m := &kernel.Mesh{Name: name}
	for i := 0; i < 8; i++ {
		p := min
		if i&1 != 0 {
			p[0] = max[0]
		}
		if i&2 != 0 {
			p[1] = max[1]
		}
		if i&4 != 0 {
			p[2] = max[2]
		}
		m.Vertices = append(m.Vertices, p[0], p[1], p[2])
	}
	for _, q := range boxQuads {
		m.Indices = append(m.Indices, q[0], q[1], q[2], q[0], q[2], q[3])
	}
	return m
}

// UnitCube returns the unit cube centred at the origin.
func UnitCube() *kernel.Mesh {
	return Box("cube", [3]float64{-0.5, -0.5, -0.5}, [3]float64{0.5, 0.5, 0.5})
}

// TopHeavyPole returns a thin pole capped by a wide block: a mesh whose
// volume centroid sits high above a narrow base.
func TopHeavyPole() *kernel.Mesh {
	pole := Box("pole", [3]float64{-0.05, 0, -0.05}, [3]float64{0.05, 2, 0.05})
	top := Box("top", [3]float64{-0.5, 2, -0.5}, [3]float64{0.5, 3, 0.5})
	return kernel.Concat("pole", pole, top)
}

// Plane returns a flat square in the y=0 plane made of two triangles.
func Plane(size float64) *kernel.Mesh {
	h := size / 2
	return &kernel.Mesh{
		Name: "plane",
		Vertices: []float64{
			-h, 0, -h,
			h, 0, -h,
			h, 0, h,
			-h, 0, h,
		},
		Indices: []uint32{0, 2, 1, 0, 3, 2},
	}
}
