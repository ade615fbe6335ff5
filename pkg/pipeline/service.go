// Package pipeline runs the analysis, depth, export and generation stages
// for one request at a time, against mesh files in the outputs directory.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chazu/whitedwarf/internal/pool"
	"github.com/chazu/whitedwarf/pkg/depth"
	"github.com/chazu/whitedwarf/pkg/export"
	"github.com/chazu/whitedwarf/pkg/inference"
	"github.com/chazu/whitedwarf/pkg/kernel"
	"github.com/chazu/whitedwarf/pkg/stability"
)

// Stage names used in logs and metrics.
const (
	StagePhysics  = "physics"
	StageDepth    = "depth"
	StageTexture  = "texture"
	StageExport   = "export"
	StageGenerate = "generate"
)

// ErrInvalidInput marks a request the service cannot act on.
var ErrInvalidInput = errors.New("pipeline: invalid input")

// Recorder receives stage and artifact outcomes.
type Recorder interface {
	ObserveStage(stage string, d time.Duration, err error)
	ObserveArtifact(format string, available bool)
	SetQueued(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStage(string, time.Duration, error) {}
func (nopRecorder) ObserveArtifact(string, bool)              {}
func (nopRecorder) SetQueued(int)                             {}

// Config holds the stage settings.
type Config struct {
	OutputsDir string

	DepthResolution        int
	DepthMode              depth.Mode
	ConditioningResolution int

	Formats []export.Format

	MeshModel    string
	TextureModel string
	Poll         inference.RunOptions
}

// Service runs pipeline stages on a worker pool.
type Service struct {
	cfg      Config
	pool     *pool.Pool
	analyzer *stability.Analyzer
	exporter *export.Exporter
	provider inference.Provider
	download func(ctx context.Context, url, dest string) error
	recorder Recorder
	logger   *zap.Logger
	newJobID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithProvider sets the inference provider for texture and generate.
func WithProvider(p inference.Provider) Option {
	return func(s *Service) { s.provider = p }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDownloader replaces the result fetcher.
func WithDownloader(fn func(ctx context.Context, url, dest string) error) Option {
	return func(s *Service) { s.download = fn }
}

// WithJobIDs replaces the job id generator.
func WithJobIDs(fn func() string) Option {
	return func(s *Service) { s.newJobID = fn }
}

// New returns a Service. The outputs directory is created if missing.
func New(cfg Config, p *pool.Pool, analyzer *stability.Analyzer, exporter *export.Exporter, opts ...Option) (*Service, error) {
	if cfg.OutputsDir == "" {
		return nil, fmt.Errorf("pipeline: outputs dir is empty: %w", ErrInvalidInput)
	}
	if err := os.MkdirAll(cfg.OutputsDir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: create outputs dir: %w", err)
	}
	if cfg.DepthResolution <= 0 {
		cfg.DepthResolution = depth.DefaultResolution
	}
	if cfg.ConditioningResolution <= 0 {
		cfg.ConditioningResolution = cfg.DepthResolution
	}
	if cfg.DepthMode == "" {
		cfg.DepthMode = depth.ModeVertices
	}

	s := &Service{
		cfg:      cfg,
		pool:     p,
		analyzer: analyzer,
		exporter: exporter,
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
		newJobID: NewJobID,
	}
	s.download = func(ctx context.Context, url, dest string) error {
		return inference.Download(ctx, nil, url, dest)
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "pipeline"))
	return s, nil
}

// NewJobID returns an 8 hex character job identifier.
func NewJobID() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:8]
}

// OutputsDir returns the directory artifacts are written to.
func (s *Service) OutputsDir() string { return s.cfg.OutputsDir }

// ResolveMesh maps a mesh URL such as "/outputs/ab12cd34_mesh.obj" to its
// file in the outputs directory. Only the last path segment is used.
func (s *Service) ResolveMesh(meshURL string) (string, error) {
	name := meshURL
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("pipeline: mesh url %q names no file: %w", meshURL, ErrInvalidInput)
	}
	path := filepath.Join(s.cfg.OutputsDir, name)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("mesh not found: %s: %w", name, kernel.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("pipeline: stat %s: %w", name, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("pipeline: %s is a directory: %w", name, ErrInvalidInput)
	}
	return path, nil
}

// runStage executes fn on the pool, timing and logging the outcome.
func (s *Service) runStage(ctx context.Context, stage, input string, fn func() error) error {
	s.recorder.SetQueued(s.pool.Stats().Queued)
	start := time.Now()
	err := s.pool.Do(ctx, fn)
	d := time.Since(start)
	s.recorder.ObserveStage(stage, d, err)

	log := s.logger.With(zap.String("stage", stage), zap.String("input", input), zap.Duration("took", d))
	switch {
	case err == nil:
		log.Info("stage complete")
	case isClientError(err):
		log.Warn("stage rejected input", zap.Error(err))
	default:
		log.Error("stage failed", zap.Error(err))
	}
	return err
}

// runStageResult is runStage for a stage that produces a value. The value
// is handed over only when the task finished, so a caller that gave up on
// ctx never shares it with a worker still running.
func runStageResult[T any](ctx context.Context, s *Service, stage, input string, fn func() (T, error)) (T, error) {
	out := make(chan T, 1)
	err := s.runStage(ctx, stage, input, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out <- v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return <-out, nil
}

// timed records a stage that runs on the calling goroutine.
func (s *Service) timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.recorder.ObserveStage(stage, time.Since(start), err)
	return err
}

func isClientError(err error) bool {
	return errors.Is(err, kernel.ErrNotFound) ||
		errors.Is(err, kernel.ErrUnsupportedGeometry) ||
		errors.Is(err, kernel.ErrDegenerateGeometry) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, context.Canceled)
}

// URLFor returns the served path of a file in the outputs directory.
func URLFor(path string) string {
	return "/outputs/" + filepath.Base(path)
}
