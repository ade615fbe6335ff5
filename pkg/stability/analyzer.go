package stability

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/chazu/whitedwarf/pkg/kernel"
	"github.com/chazu/whitedwarf/pkg/normalize"
)

const (
	// baseBand is the fraction of the height, measured from the bottom,
	// whose vertices count as the base.
	baseBand = 0.1
	// flatComY is reported when the mesh has no height.
	flatComY = 0.5
)

// Analyzer computes stability reports. It is safe for concurrent use.
type Analyzer struct {
	kernel kernel.Kernel
	rules  []Rule
	logger *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRules places rules ahead of the default table. The first matching
// rule wins, and the default table still catches anything they miss.
func WithRules(rules ...Rule) Option {
	return func(a *Analyzer) {
		a.rules = append(append([]Rule(nil), rules...), DefaultRules()...)
	}
}

// WithLogger sets the logger results are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// New returns an Analyzer that delegates centroid and hull computations
// to k.
func New(k kernel.Kernel, opts ...Option) *Analyzer {
	a := &Analyzer{
		kernel: k,
		rules:  DefaultRules(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(zap.String("component", "stability"))
	return a
}

// AnalyzeFile loads the mesh container at path and analyzes it.
func (a *Analyzer) AnalyzeFile(path string) (Report, error) {
	a.logger.Debug("loading mesh for analysis", zap.String("path", path))
	m, err := normalize.Load(path)
	if err != nil {
		return Report{}, err
	}
	return a.Analyze(m)
}

// Analyze measures m and classifies it. The result depends only on m.
func (a *Analyzer) Analyze(m *kernel.Mesh) (Report, error) {
	if m == nil || m.VertexCount() == 0 {
		return Report{}, fmt.Errorf("stability: mesh has no vertices: %w", kernel.ErrUnsupportedGeometry)
	}
	if err := m.Validate(); err != nil {
		return Report{}, fmt.Errorf("stability: %w", err)
	}

	bb := m.Bounds()
	ext := bb.Extents()
	minY, maxY := bb.Min[1], bb.Max[1]
	height := ext[1]
	if bb.IsDegenerate() || height == 0 {
		height = bb.MaxExtent()
	}

	com, err := a.kernel.CenterMass(m)
	if err != nil {
		return Report{}, fmt.Errorf("stability: center of mass: %w", err)
	}

	comY := flatComY
	if maxY > minY {
		comY = clamp01((com[1] - minY) / (maxY - minY))
	}

	baseArea := a.baseArea(m, minY, maxY)
	footprint := ext[0] * ext[2]
	ratio := 0.0
	if footprint > 0 {
		ratio = clamp01(baseArea / footprint)
	}

	metrics := Metrics{ComY: comY, Base: ratio}
	rule := Classify(a.rules, metrics)

	a.logger.Info("stability result",
		zap.String("mesh", m.Name),
		zap.String("verdict", rule.Verdict),
		zap.String("rule", rule.Name),
		zap.Float64("com_y", comY),
		zap.Float64("base", ratio),
		zap.Float64("height", height),
	)

	return Report{
		IsStable:         rule.Stable,
		CenterOfMassY:    comY,
		BaseSupportRatio: ratio,
		BoundingBox:      ext,
		Verdict:          rule.Verdict,
	}, nil
}

// baseArea projects the bottom band of vertices onto the x/z plane and
// returns the area they cover. Degenerate hulls fall back to the bounding
// rectangle of the projected points.
func (a *Analyzer) baseArea(m *kernel.Mesh, minY, maxY float64) float64 {
	threshold := minY + (maxY-minY)*baseBand

	var pts [][2]float64
	for i := 0; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		if v[1] <= threshold {
			pts = append(pts, [2]float64{v[0], v[2]})
		}
	}
	if len(pts) < 3 {
		return 0
	}

	area, err := a.kernel.HullArea(pts)
	if err == nil {
		return area
	}
	a.logger.Debug("hull failed, using bounding rectangle",
		zap.String("mesh", m.Name), zap.Int("points", len(pts)), zap.Error(err))

	minX, maxX := pts[0][0], pts[0][0]
	minZ, maxZ := pts[0][1], pts[0][1]
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minZ, maxZ = math.Min(minZ, p[1]), math.Max(maxZ, p[1])
	}
	return (maxX - minX) * (maxZ - minZ)
}

func clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
