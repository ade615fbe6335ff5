package depth

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/whitedwarf/pkg/kernel"
)

// DefaultResolution is the side length used when none is configured.
const DefaultResolution = 512

// ErrInvalidResolution is returned for a non-positive resolution.
var ErrInvalidResolution = errors.New("depth: resolution must be positive")

// Mode selects how triangles reach the image.
type Mode string

const (
	// ModeVertices samples only the corners of each triangle. The result
	// is a sparse point image.
	ModeVertices Mode = "vertices"
	// ModeFilled rasterizes whole triangles, interpolating depth across
	// each face.
	ModeFilled Mode = "filled"
)

// ParseMode maps a configuration string to a Mode. The empty string is
// ModeVertices.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeVertices:
		return ModeVertices, nil
	case ModeFilled:
		return ModeFilled, nil
	default:
		return "", fmt.Errorf("depth: unknown mode %q", s)
	}
}

// Option configures a render.
type Option func(*options)

type options struct {
	mode Mode
}

// WithMode selects the rasterization mode.
func WithMode(m Mode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// projection maps mesh space onto the image. The view looks down -z with
// the bounding box centre in the middle of the image and the largest axis
// span filling it.
type projection struct {
	center [3]float64
	half   float64
	scale  float64 // resolution - 1
}

// screen returns continuous pixel coordinates and depth for p.
func (pr projection) screen(p [3]float64) (x, y, d float64) {
	nx := (p[0] - pr.center[0]) / pr.half
	ny := (p[1] - pr.center[1]) / pr.half
	nz := (p[2] - pr.center[2]) / pr.half
	x = (nx + 1) * 0.5 * pr.scale
	y = (1 - (ny+1)*0.5) * pr.scale
	d = (1 - (nz+1)*0.5) * 255
	return x, y, d
}

func quantize(d float64) uint8 {
	d = math.Round(d)
	switch {
	case d < 0:
		return 0
	case d > 255:
		return 255
	default:
		return uint8(d)
	}
}

// Render draws m at resolution x resolution. The default mode samples
// triangle corners only; see WithMode.
func Render(m *kernel.Mesh, resolution int, opts ...Option) (*Image, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidResolution, resolution)
	}
	o := options{mode: ModeVertices}
	for _, opt := range opts {
		opt(&o)
	}
	if m == nil || m.IsEmpty() {
		return nil, fmt.Errorf("depth: mesh has no triangles: %w", kernel.ErrUnsupportedGeometry)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("depth: %w", err)
	}

	bb := m.Bounds()
	extent := bb.MaxExtent()
	if extent == 0 {
		return nil, fmt.Errorf("depth: mesh %q has zero extent: %w", m.Name, kernel.ErrDegenerateGeometry)
	}
	pr := projection{center: bb.Center(), half: extent / 2, scale: float64(resolution - 1)}

	im := NewImage(resolution)
	switch o.mode {
	case ModeVertices:
		drawVertices(im, m, pr)
	case ModeFilled:
		drawVertices(im, m, pr)
		fill(im, m, pr)
	default:
		return nil, fmt.Errorf("depth: unknown mode %q", o.mode)
	}
	return im, nil
}

func drawVertices(im *Image, m *kernel.Mesh, pr projection) {
	for _, idx := range m.Indices {
		x, y, d := pr.screen(m.Vertex(int(idx)))
		im.plot(int(math.Round(x)), int(math.Round(y)), quantize(d))
	}
}
