package sdfx

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/whitedwarf/pkg/kernel"
	"github.com/chazu/whitedwarf/pkg/kernel/kerneltest"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestCenterMassBox(t *testing.T) {
	k := New()
	tests := []struct {
		name     string
		min, max [3]float64
	}{
		{"unit cube at origin", [3]float64{-0.5, -0.5, -0.5}, [3]float64{0.5, 0.5, 0.5}},
		{"offset slab", [3]float64{10, 2, -3}, [3]float64{14, 3, 5}},
		{"tall column", [3]float64{0, 0, 0}, [3]float64{1, 20, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := kerneltest.Box(tt.name, tt.min, tt.max)
			com, err := k.CenterMass(m)
			if err != nil {
				t.Fatalf("CenterMass failed: %v", err)
			}
			want := m.Bounds().Center()
			for i := 0; i < 3; i++ {
				if !approx(com[i], want[i], 1e-9) {
					t.Errorf("com[%d] = %v, want %v", i, com[i], want[i])
				}
			}
		})
	}
}

func TestCenterMassTopHeavy(t *testing.T) {
	k := New()
	com, err := k.CenterMass(kerneltest.TopHeavyPole())
	if err != nil {
		t.Fatalf("CenterMass failed: %v", err)
	}
	// pole: volume 0.02 at y=1, block: volume 1 at y=2.5
	want := (0.02*1 + 1*2.5) / 1.02
	if !approx(com[1], want, 1e-9) {
		t.Errorf("com y = %v, want %v", com[1], want)
	}
	if !approx(com[0], 0, 1e-9) || !approx(com[2], 0, 1e-9) {
		t.Errorf("com x,z = %v,%v, want 0,0", com[0], com[2])
	}
}

func TestCenterMassWindingIndependent(t *testing.T) {
	k := New()
	m := kerneltest.Box("box", [3]float64{0, 0, 0}, [3]float64{2, 4, 6})
	flipped := &kernel.Mesh{Vertices: m.Vertices, Indices: make([]uint32, len(m.Indices))}
	for i := 0; i < len(m.Indices); i += 3 {
		flipped.Indices[i] = m.Indices[i]
		flipped.Indices[i+1] = m.Indices[i+2]
		flipped.Indices[i+2] = m.Indices[i+1]
	}
	com, err := k.CenterMass(flipped)
	if err != nil {
		t.Fatalf("CenterMass failed: %v", err)
	}
	if !approx(com[1], 2, 1e-9) {
		t.Errorf("com y = %v, want 2", com[1])
	}
}

func TestCenterMassFlatFallsBackToSurface(t *testing.T) {
	k := New()
	// A plane encloses no volume, so the surface centroid is used.
	m := kerneltest.Plane(2)
	com, err := k.CenterMass(m)
	if err != nil {
		t.Fatalf("CenterMass failed: %v", err)
	}
	if com != [3]float64{0, 0, 0} {
		t.Errorf("plane com = %v, want origin", com)
	}
}

func TestCenterMassVertexMeanFallback(t *testing.T) {
	k := New()
	m := &kernel.Mesh{
		Vertices: []float64{0, 0, 0, 2, 0, 0, 4, 0, 0},
		Indices:  []uint32{0, 1, 2},
	}
	com, err := k.CenterMass(m)
	if err != nil {
		t.Fatalf("CenterMass failed: %v", err)
	}
	if !approx(com[0], 2, 1e-12) {
		t.Errorf("com x = %v, want 2", com[0])
	}
}

func TestCenterMassEmpty(t *testing.T) {
	k := New()
	_, err := k.CenterMass(&kernel.Mesh{})
	if !errors.Is(err, kernel.ErrDegenerateGeometry) {
		t.Fatalf("CenterMass(empty) error = %v, want ErrDegenerateGeometry", err)
	}
}

func TestHullArea(t *testing.T) {
	k := New()
	tests := []struct {
		name    string
		points  [][2]float64
		want    float64
		wantErr bool
	}{
		{"unit square", [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}, 1, false},
		{"square with interior points", [][2]float64{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {1, 1}, {0.5, 1.5}}, 4, false},
		{"square with duplicates", [][2]float64{{0, 0}, {0, 0}, {1, 0}, {1, 1}, {1, 1}, {0, 1}}, 1, false},
		{"collinear edge points", [][2]float64{{0, 0}, {0.5, 0}, {1, 0}, {1, 1}, {0, 1}}, 1, false},
		{"triangle", [][2]float64{{0, 0}, {4, 0}, {0, 3}}, 6, false},
		{"two points", [][2]float64{{0, 0}, {1, 1}}, 0, true},
		{"collinear", [][2]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}}, 0, true},
		{"coincident", [][2]float64{{5, 5}, {5, 5}, {5, 5}}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := k.HullArea(tt.points)
			if tt.wantErr {
				if !errors.Is(err, kernel.ErrDegenerateGeometry) {
					t.Fatalf("HullArea error = %v, want ErrDegenerateGeometry", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("HullArea failed: %v", err)
			}
			if !approx(got, tt.want, 1e-12) {
				t.Errorf("HullArea = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHullAreaDoesNotReorderInput(t *testing.T) {
	k := New()
	pts := [][2]float64{{1, 1}, {0, 0}, {1, 0}, {0, 1}}
	if _, err := k.HullArea(pts); err != nil {
		t.Fatalf("HullArea failed: %v", err)
	}
	if pts[0] != [2]float64{1, 1} {
		t.Errorf("input reordered: %v", pts)
	}
}

func TestTrianglesDropsDegenerate(t *testing.T) {
	m := kerneltest.UnitCube()
	m = kernel.Concat("cube", m, &kernel.Mesh{Vertices: []float64{0, 0, 0}, Indices: []uint32{0, 0, 0}})
	tris := Triangles(m)
	if len(tris) != 12 {
		t.Fatalf("Triangles = %d, want 12", len(tris))
	}
}

func TestSaveSTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.stl")
	if err := SaveSTL(path, kerneltest.UnitCube()); err != nil {
		t.Fatalf("SaveSTL failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	// Binary STL: 80 byte header, uint32 count, 50 bytes per facet.
	if want := int64(84 + 50*12); info.Size() != want {
		t.Errorf("stl size = %d, want %d", info.Size(), want)
	}
}

func TestSaveSTLDegenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "point.stl")
	m := &kernel.Mesh{Vertices: []float64{0, 0, 0}, Indices: []uint32{0, 0, 0}}
	if err := SaveSTL(path, m); !errors.Is(err, kernel.ErrDegenerateGeometry) {
		t.Fatalf("SaveSTL error = %v, want ErrDegenerateGeometry", err)
	}
}

func TestFromSDF(t *testing.T) {
	s, err := sdf.Box3D(v3.Vec{X: 10, Y: 20, Z: 10}, 0)
	if err != nil {
		t.Fatalf("Box3D: %v", err)
	}
	m := FromSDF("box", s, 40)
	if m.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("invalid mesh: %v", err)
	}
	t.Logf("box: %d vertices, %d triangles", m.VertexCount(), m.TriangleCount())

	com, err := New().CenterMass(m)
	if err != nil {
		t.Fatalf("CenterMass failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if !approx(com[i], 0, 0.5) {
			t.Errorf("com[%d] = %v, want ~0", i, com[i])
		}
	}
}
