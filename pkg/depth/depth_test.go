package depth

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/chazu/whitedwarf/pkg/kernel"
	"github.com/chazu/whitedwarf/pkg/kernel/kerneltest"
)

// centrePoint has one referenced vertex at the origin. The two unreferenced
// corners only set the bounds.
func centrePoint() *kernel.Mesh {
	return &kernel.Mesh{
		Name: "point",
		Vertices: []float64{
			-1, -1, -1,
			1, 1, 1,
			0, 0, 0,
		},
		Indices: []uint32{2, 2, 2},
	}
}

func TestRender_SinglePoint(t *testing.T) {
	im, err := Render(centrePoint(), 512)
	require.NoError(t, err)

	require.Equal(t, 512, im.Resolution)
	require.Len(t, im.Pix, 512*512)
	assert.Equal(t, 1, im.Coverage())
	assert.Equal(t, uint8(128), im.At(256, 256))
}

func TestRender_UnitCubeCorners(t *testing.T) {
	im, err := Render(kerneltest.UnitCube(), 512)
	require.NoError(t, err)

	// Four screen corners, each with a near and a far vertex; the near
	// one (z=+0.5 maps to depth 0) wins.
	assert.Equal(t, 4, im.Coverage())
	for _, p := range [][2]int{{0, 0}, {511, 0}, {0, 511}, {511, 511}} {
		assert.Equal(t, uint8(0), im.At(p[0], p[1]), "corner %v", p)
	}
}

func TestRender_DepthOrdering(t *testing.T) {
	// Two points on the same ray: the nearer one (higher z) is darker and
	// wins regardless of face order.
	m := &kernel.Mesh{
		Vertices: []float64{
			0, 0, -1, // far
			0, 0, 1, // near
			2, 2, 0,
			-2, -2, 0,
		},
		Indices: []uint32{0, 2, 3, 1, 2, 3},
	}
	im, err := Render(m, 101)
	require.NoError(t, err)
	assert.Equal(t, uint8(64), im.At(50, 50), "round((1-(0.5+1)*0.5)*255)")
}

func TestRender_Errors(t *testing.T) {
	_, err := Render(kerneltest.UnitCube(), 0)
	assert.ErrorIs(t, err, ErrInvalidResolution)

	_, err = Render(kerneltest.UnitCube(), -3)
	assert.ErrorIs(t, err, ErrInvalidResolution)

	_, err = Render(&kernel.Mesh{}, 64)
	assert.ErrorIs(t, err, kernel.ErrUnsupportedGeometry)

	point := &kernel.Mesh{Vertices: []float64{1, 1, 1}, Indices: []uint32{0, 0, 0}}
	_, err = Render(point, 64)
	assert.ErrorIs(t, err, kernel.ErrDegenerateGeometry)

	_, err = Render(kerneltest.UnitCube(), 64, WithMode("wireframe"))
	assert.Error(t, err)
}

func TestRender_ResolutionOne(t *testing.T) {
	im, err := Render(kerneltest.UnitCube(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), im.At(0, 0))
}

func TestRender_FilledCoversFace(t *testing.T) {
	// A square facing the camera at z=0 fills the whole frame.
	m := &kernel.Mesh{
		Vertices: []float64{
			-1, -1, 0,
			1, -1, 0,
			1, 1, 0,
			-1, 1, 0,
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
	sparse, err := Render(m, 32)
	require.NoError(t, err)
	filled, err := Render(m, 32, WithMode(ModeFilled))
	require.NoError(t, err)

	assert.Equal(t, 4, sparse.Coverage())
	assert.Equal(t, 32*32, filled.Coverage())
	for _, p := range filled.Pix {
		require.Equal(t, uint8(128), p)
	}
}

func TestRender_FilledAgreesAtVertices(t *testing.T) {
	m := kerneltest.TopHeavyPole()
	sparse, err := Render(m, 128)
	require.NoError(t, err)
	filled, err := Render(m, 128, WithMode(ModeFilled))
	require.NoError(t, err)

	assert.Greater(t, filled.Coverage(), sparse.Coverage())
	for i, p := range sparse.Pix {
		if p != Background {
			assert.LessOrEqual(t, filled.Pix[i], p, "pixel %d", i)
		}
	}
}

func TestRender_SamplesInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(3, 20).Draw(t, "vertices")
		m := &kernel.Mesh{}
		for i := 0; i < n*3; i++ {
			m.Vertices = append(m.Vertices, rapid.Float64Range(-10, 10).Draw(t, "coord"))
		}
		faces := rapid.IntRange(1, 10).Draw(t, "faces")
		for i := 0; i < 3*faces; i++ {
			m.Indices = append(m.Indices, uint32(rapid.IntRange(0, n-1).Draw(t, "index")))
		}
		if m.Bounds().MaxExtent() == 0 {
			return
		}
		res := rapid.IntRange(1, 64).Draw(t, "resolution")
		mode := rapid.SampledFrom([]Mode{ModeVertices, ModeFilled}).Draw(t, "mode")

		im, err := Render(m, res, WithMode(mode))
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		if len(im.Pix) != res*res {
			t.Fatalf("got %d samples, want %d", len(im.Pix), res*res)
		}
		if m.TriangleCount() != faces {
			t.Fatalf("got %d triangles, want %d", m.TriangleCount(), faces)
		}
		if im.Coverage() == 0 {
			t.Fatalf("no samples written")
		}
	})
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeVertices, "vertices": ModeVertices, "filled": ModeFilled} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("points")
	assert.Error(t, err)
}

func TestEncodePNG(t *testing.T) {
	im, err := Render(centrePoint(), 64)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, im.EncodePNG(&buf))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 64, decoded.Bounds().Dx())
	assert.Equal(t, 64, decoded.Bounds().Dy())

	r, _, _, _ := decoded.At(32, 32).RGBA()
	assert.Equal(t, uint32(128*0x101), r)
}

func TestResample(t *testing.T) {
	im := NewImage(4)
	im.Pix[0] = 10
	im.Pix[15] = 20

	up, err := Resample(im, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, up.Resolution)
	assert.Equal(t, uint8(10), up.At(0, 0))
	assert.Equal(t, uint8(20), up.At(7, 7))
	for _, p := range up.Pix {
		assert.Contains(t, []uint8{10, 20, Background}, p)
	}

	same, err := Resample(im, 4)
	require.NoError(t, err)
	assert.Equal(t, im.Pix, same.Pix)
	same.Pix[0] = 0
	assert.Equal(t, uint8(10), im.Pix[0], "resample copies")

	_, err = Resample(im, 0)
	assert.ErrorIs(t, err, ErrInvalidResolution)
}
