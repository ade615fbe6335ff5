package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/whitedwarf/internal/atomicfile"
	"github.com/chazu/whitedwarf/pkg/kernel"
)

// Encoder writes a scene to the file at path, creating or truncating it.
type Encoder interface {
	Encode(s *Scene, path string) error
}

// EncoderFunc adapts a function to the Encoder interface.
type EncoderFunc func(s *Scene, path string) error

// Encode calls f.
func (f EncoderFunc) Encode(s *Scene, path string) error {
	return f(s, path)
}

// ReasonUSDZDisabled is reported for usdz when the codec is turned off.
const ReasonUSDZDisabled = "usdz codec disabled"

// Exporter encodes meshes into artifact files. It is safe for concurrent
// use.
type Exporter struct {
	encoders map[Format]Encoder
	simplify float64
	logger   *zap.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithEncoder registers enc for f, replacing any built-in encoder. A nil
// enc removes the format.
func WithEncoder(f Format, enc Encoder) Option {
	return func(e *Exporter) {
		if enc == nil {
			delete(e.encoders, f)
			return
		}
		e.encoders[f] = enc
	}
}

// WithUSDZ turns the usdz codec on or off.
func WithUSDZ(enabled bool) Option {
	return func(e *Exporter) {
		if enabled {
			e.encoders[FormatUSDZ] = USDZEncoder{}
			return
		}
		e.encoders[FormatUSDZ] = EncoderFunc(func(*Scene, string) error {
			return errUnavailable(ReasonUSDZDisabled)
		})
	}
}

// WithSimplify decimates meshes to factor of their triangle count before
// encoding. Zero disables decimation.
func WithSimplify(factor float64) Option {
	return func(e *Exporter) {
		e.simplify = factor
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an Exporter with the glb, usdz and stl encoders installed.
func New(opts ...Option) *Exporter {
	e := &Exporter{
		encoders: map[Format]Encoder{
			FormatGLB:  GLBEncoder{},
			FormatUSDZ: USDZEncoder{},
			FormatSTL:  STLEncoder{},
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "export"))
	return e
}

// unavailableError carries a reason that is reported verbatim.
type unavailableError string

func errUnavailable(reason string) error { return unavailableError(reason) }

func (e unavailableError) Error() string { return string(e) }

// Export writes m as dir/stem.<ext> for each format. The call itself fails
// only for unusable input; a format that cannot be produced comes back as
// an Unavailable artifact.
func (e *Exporter) Export(ctx context.Context, m *kernel.Mesh, dir, stem string, formats []Format) (Result, error) {
	if m == nil {
		return nil, fmt.Errorf("export: nil mesh: %w", kernel.ErrUnsupportedGeometry)
	}
	return e.ExportScene(ctx, NewScene(m), dir, stem, formats)
}

// ExportScene is Export for a multi-object scene. Formats that carry
// objects (glb, usdz) keep them separate.
func (e *Exporter) ExportScene(ctx context.Context, s *Scene, dir, stem string, formats []Format) (Result, error) {
	if stem == "" || strings.ContainsAny(stem, `/\`) || stem == "." || stem == ".." {
		return nil, fmt.Errorf("export: invalid artifact stem %q", stem)
	}
	if s == nil {
		return nil, fmt.Errorf("export: nil scene: %w", kernel.ErrUnsupportedGeometry)
	}
	if len(formats) == 0 {
		formats = DefaultFormats
	}

	scene := &Scene{Objects: make([]Object, len(s.Objects))}
	for i, o := range s.Objects {
		scene.Objects[i] = Object{Name: o.Name, Mesh: Simplify(o.Mesh, e.simplify)}
	}
	if err := scene.validate(); err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		result = make(Result, len(formats))
		g      errgroup.Group
	)
	for _, f := range formats {
		f := f
		g.Go(func() error {
			a := e.encode(ctx, scene, f, filepath.Join(dir, stem+f.Ext()))
			mu.Lock()
			result[f] = a
			mu.Unlock()
			return nil
		})
	}
	// Encoder failures become Unavailable artifacts and every task returns
	// nil, so Wait has no error to report.
	_ = g.Wait()
	return result, nil
}

func (e *Exporter) encode(ctx context.Context, s *Scene, f Format, dest string) Artifact {
	unavailable := func(reason string, err error) Artifact {
		e.logger.Warn("export format unavailable",
			zap.String("format", string(f)),
			zap.String("dest", dest),
			zap.String("reason", reason),
			zap.Error(err))
		return Artifact{Format: f, Unavailable: true, Reason: reason}
	}

	if err := ctx.Err(); err != nil {
		return unavailable("export canceled", err)
	}
	enc, ok := e.encoders[f]
	if !ok {
		return unavailable(fmt.Sprintf("no encoder for %s", f), nil)
	}

	err := atomicfile.WriteWith(dest, func(tmp string) error {
		return enc.Encode(s, tmp)
	})
	if err != nil {
		if u, ok := err.(unavailableError); ok {
			return unavailable(string(u), nil)
		}
		return unavailable(fmt.Sprintf("%s encoding failed", f), err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return unavailable(fmt.Sprintf("%s artifact missing after write", f), err)
	}
	e.logger.Debug("artifact written", zap.String("format", string(f)), zap.String("path", dest), zap.Int64("size", info.Size()))
	return Artifact{Format: f, Path: dest, Size: info.Size()}
}
