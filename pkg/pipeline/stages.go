package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/chazu/whitedwarf/internal/atomicfile"
	"github.com/chazu/whitedwarf/pkg/depth"
	"github.com/chazu/whitedwarf/pkg/export"
	"github.com/chazu/whitedwarf/pkg/inference"
	"github.com/chazu/whitedwarf/pkg/normalize"
	"github.com/chazu/whitedwarf/pkg/stability"
)

// Physics analyzes the stability of the mesh at meshURL.
func (s *Service) Physics(ctx context.Context, meshURL string) (stability.Report, error) {
	path, err := s.ResolveMesh(meshURL)
	if err != nil {
		return stability.Report{}, err
	}
	return runStageResult(ctx, s, StagePhysics, filepath.Base(path), func() (stability.Report, error) {
		return s.analyzer.AnalyzeFile(path)
	})
}

// DepthMap renders the mesh at meshURL and writes {job}_depth.png.
func (s *Service) DepthMap(ctx context.Context, meshURL, jobID string) (*depth.Image, string, error) {
	path, err := s.ResolveMesh(meshURL)
	if err != nil {
		return nil, "", err
	}
	dest := filepath.Join(s.cfg.OutputsDir, jobID+"_depth.png")
	img, err := runStageResult(ctx, s, StageDepth, filepath.Base(path), func() (*depth.Image, error) {
		m, err := normalize.Load(path)
		if err != nil {
			return nil, err
		}
		img, err := depth.Render(m, s.cfg.DepthResolution, depth.WithMode(s.cfg.DepthMode))
		if err != nil {
			return nil, err
		}
		return img, writePNG(ctx, dest, img)
	})
	if err != nil {
		return nil, "", err
	}
	return img, dest, nil
}

func writePNG(ctx context.Context, dest string, img *depth.Image) error {
	var buf bytes.Buffer
	if err := img.EncodePNG(&buf); err != nil {
		return fmt.Errorf("pipeline: encode png: %w", err)
	}
	return atomicfile.Write(ctx, dest, &buf)
}

// TextureResult describes a texture job's outputs as served URLs.
type TextureResult struct {
	JobID            string `json:"job_id"`
	TexturedModelURL string `json:"textured_model_url"`
	TextureImageURL  string `json:"texture_image_url"`
	DepthImageURL    string `json:"depth_image_url"`
}

// Texture renders a depth map for the mesh, conditions a texture model on
// it with materialPrompt, and stores the result as {job}_texture.png. It
// fails with inference.ErrNotConfigured before rendering anything when no
// provider is set.
func (s *Service) Texture(ctx context.Context, meshURL, materialPrompt string) (TextureResult, error) {
	if strings.TrimSpace(materialPrompt) == "" {
		return TextureResult{}, fmt.Errorf("pipeline: material prompt is empty: %w", ErrInvalidInput)
	}
	if s.provider == nil {
		return TextureResult{}, fmt.Errorf("pipeline: texture: %w", inference.ErrNotConfigured)
	}
	jobID := s.newJobID()

	img, depthPath, err := s.DepthMap(ctx, meshURL, jobID)
	if err != nil {
		return TextureResult{}, err
	}
	cond, err := depth.Resample(img, s.cfg.ConditioningResolution)
	if err != nil {
		return TextureResult{}, err
	}
	var buf bytes.Buffer
	if err := cond.EncodePNG(&buf); err != nil {
		return TextureResult{}, fmt.Errorf("pipeline: encode conditioning image: %w", err)
	}

	job := inference.Job{
		Kind:          inference.JobTexture,
		Model:         s.cfg.TextureModel,
		Prompt:        inference.TexturePrompt(materialPrompt),
		DepthImageURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}
	dest := filepath.Join(s.cfg.OutputsDir, jobID+"_texture.png")
	if err := s.infer(ctx, StageTexture, job, dest); err != nil {
		return TextureResult{}, err
	}
	return TextureResult{
		JobID:            jobID,
		TexturedModelURL: meshURL,
		TextureImageURL:  URLFor(dest),
		DepthImageURL:    URLFor(depthPath),
	}, nil
}

// GenerateResult describes a generated mesh.
type GenerateResult struct {
	JobID   string `json:"job_id"`
	MeshURL string `json:"mesh_url"`
	Size    int64  `json:"size"`
}

// Reference is an optional uploaded reference image.
type Reference struct {
	Ext  string
	Data []byte
}

// Generate asks the mesh model for prompt and stores the result as
// {job}_mesh.obj. A reference image is saved as {job}_ref<ext> and passed
// to the model by its served URL.
func (s *Service) Generate(ctx context.Context, prompt string, ref *Reference) (GenerateResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return GenerateResult{}, fmt.Errorf("pipeline: prompt is empty: %w", ErrInvalidInput)
	}
	if s.provider == nil {
		return GenerateResult{}, fmt.Errorf("pipeline: generate: %w", inference.ErrNotConfigured)
	}
	jobID := s.newJobID()

	job := inference.Job{Kind: inference.JobMesh, Model: s.cfg.MeshModel, Prompt: prompt}
	if ref != nil && len(ref.Data) > 0 {
		ext := strings.ToLower(filepath.Ext("x" + ref.Ext))
		refPath := filepath.Join(s.cfg.OutputsDir, jobID+"_ref"+ext)
		if err := atomicfile.Write(ctx, refPath, bytes.NewReader(ref.Data)); err != nil {
			return GenerateResult{}, fmt.Errorf("pipeline: save reference image: %w", err)
		}
		job.ImageURL = URLFor(refPath)
		s.logger.Info("reference image saved", zap.String("job", jobID), zap.String("file", filepath.Base(refPath)))
	}

	dest := filepath.Join(s.cfg.OutputsDir, jobID+"_mesh.obj")
	if err := s.infer(ctx, StageGenerate, job, dest); err != nil {
		return GenerateResult{}, err
	}
	info, err := os.Stat(dest)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("pipeline: generated mesh: %w", err)
	}
	return GenerateResult{JobID: jobID, MeshURL: URLFor(dest), Size: info.Size()}, nil
}

// infer runs job to completion and downloads its output to dest. It waits
// on the network, so it does not occupy a pool worker.
func (s *Service) infer(ctx context.Context, stage string, job inference.Job, dest string) error {
	opts := s.cfg.Poll
	opts.Logger = s.logger
	err := s.timed(stage, func() error {
		url, err := inference.Run(ctx, s.provider, job, opts)
		if err != nil {
			return err
		}
		return s.download(ctx, url, dest)
	})
	if err != nil {
		s.logger.Error("inference stage failed", zap.String("stage", stage), zap.String("provider", s.provider.Name()), zap.Error(err))
		return err
	}
	s.logger.Info("inference stage complete", zap.String("stage", stage), zap.String("file", filepath.Base(dest)))
	return nil
}

// ExportResult lists the artifacts written for one mesh.
type ExportResult struct {
	Artifacts export.Result
}

// URL returns the served URL of format f, or "" when unavailable.
func (r ExportResult) URL(f export.Format) string {
	a, ok := r.Artifacts.Available(f)
	if !ok {
		return ""
	}
	return URLFor(a.Path)
}

// Export encodes the mesh at meshURL into formats (the configured set
// when empty). Artifacts take the mesh file's base name.
func (s *Service) Export(ctx context.Context, meshURL string, formats []export.Format) (ExportResult, error) {
	path, err := s.ResolveMesh(meshURL)
	if err != nil {
		return ExportResult{}, err
	}
	if len(formats) == 0 {
		formats = s.cfg.Formats
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	res, err := runStageResult(ctx, s, StageExport, filepath.Base(path), func() (export.Result, error) {
		c, err := normalize.Open(path)
		if err != nil {
			return nil, err
		}
		return s.exporter.ExportScene(ctx, export.FromContainer(c), s.cfg.OutputsDir, stem, formats)
	})
	if err != nil {
		return ExportResult{}, err
	}
	for f, a := range res {
		s.recorder.ObserveArtifact(string(f), !a.Unavailable)
	}
	return ExportResult{Artifacts: res}, nil
}
