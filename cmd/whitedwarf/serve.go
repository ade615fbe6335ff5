package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/chazu/whitedwarf/internal/api"
	"github.com/chazu/whitedwarf/internal/catalog"
	"github.com/chazu/whitedwarf/internal/config"
	"github.com/chazu/whitedwarf/internal/logger"
	"github.com/chazu/whitedwarf/internal/metrics"
	"github.com/chazu/whitedwarf/internal/pool"
	"github.com/chazu/whitedwarf/internal/server"
	"github.com/chazu/whitedwarf/pkg/depth"
	"github.com/chazu/whitedwarf/pkg/engine"
	"github.com/chazu/whitedwarf/pkg/export"
	"github.com/chazu/whitedwarf/pkg/inference"
	"github.com/chazu/whitedwarf/pkg/inference/replicate"
	"github.com/chazu/whitedwarf/pkg/inference/runpod"
	"github.com/chazu/whitedwarf/pkg/kernel/sdfx"
	"github.com/chazu/whitedwarf/pkg/pipeline"
	"github.com/chazu/whitedwarf/pkg/stability"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer func() { _ = log.Sync() }()

	log.Info("starting whitedwarf",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("outputs_dir", cfg.Storage.OutputsDir))

	collector := metrics.New()
	svc, workers, err := newService(cfg, collector, log)
	if err != nil {
		return err
	}
	defer workers.Close()

	router := api.NewRouter(api.RouterConfig{
		Handlers: api.NewHandlers(svc, catalog.Default(), api.Options{
			PublicURL:      cfg.Server.PublicURL,
			MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		}, log),
		OutputsDir:  cfg.Storage.OutputsDir,
		Metrics:     collector.Handler(),
		Recorder:    collector,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      log,
	})
	srvCfg := server.DefaultConfig()
	srvCfg.Addr = cfg.Server.Addr()
	srvCfg.ReadTimeout = cfg.Server.ReadTimeout
	srvCfg.WriteTimeout = cfg.Server.WriteTimeout
	srvCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	mgr := server.NewManager(router, srvCfg, log)
	if err := mgr.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := mgr.Run(ctx); err != nil {
		return err
	}
	log.Info("whitedwarf stopped")
	return nil
}

// newService wires the pipeline and its worker pool from cfg.
func newService(cfg *config.Config, rec pipeline.Recorder, log *zap.Logger) (*pipeline.Service, *pool.Pool, error) {
	analyzer, err := newAnalyzer(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	formats, err := export.ParseFormats(cfg.Export.Formats)
	if err != nil {
		return nil, nil, fmt.Errorf("config: export formats: %w", err)
	}
	mode, err := depth.ParseMode(cfg.Depth.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("config: depth mode: %w", err)
	}
	provider, err := newProvider(cfg.Inference, log)
	if err != nil {
		return nil, nil, err
	}

	workers := pool.New(cfg.Pipeline.Workers, cfg.Pipeline.QueueSize, log)
	exporter := export.New(
		export.WithUSDZ(cfg.Export.USDZEnabled),
		export.WithSimplify(cfg.Export.Simplify),
		export.WithLogger(log),
	)
	svc, err := pipeline.New(pipeline.Config{
		OutputsDir:             cfg.Storage.OutputsDir,
		DepthResolution:        cfg.Depth.Resolution,
		DepthMode:              mode,
		ConditioningResolution: cfg.Depth.ConditioningResolution,
		Formats:                formats,
		MeshModel:              cfg.Inference.MeshModel,
		TextureModel:           cfg.Inference.TextureModel,
		Poll: inference.RunOptions{
			Interval: cfg.Inference.PollInterval,
			MaxWait:  cfg.Inference.MaxWait,
			Logger:   log,
		},
	}, workers, analyzer, exporter,
		pipeline.WithProvider(provider),
		pipeline.WithRecorder(rec),
		pipeline.WithLogger(log),
	)
	if err != nil {
		workers.Close()
		return nil, nil, err
	}
	return svc, workers, nil
}

// newAnalyzer builds the stability analyzer with any scripted rules from
// cfg tried ahead of the built-in table.
func newAnalyzer(cfg *config.Config, log *zap.Logger) (*stability.Analyzer, error) {
	opts := []stability.Option{stability.WithLogger(log)}
	if len(cfg.Stability.Rules) > 0 {
		scripted, err := engine.NewEngine(0).Compile(cfg.Stability.Rules, log)
		if err != nil {
			return nil, fmt.Errorf("config: stability rules: %w", err)
		}
		opts = append(opts, stability.WithRules(scripted...))
	}
	return stability.New(sdfx.New(), opts...), nil
}

// newProvider returns the configured inference provider. A provider
// without credentials rejects jobs with inference.ErrNotConfigured.
func newProvider(cfg config.InferenceConfig, log *zap.Logger) (inference.Provider, error) {
	switch cfg.Provider {
	case "replicate":
		return replicate.New(replicate.Config{Token: cfg.ReplicateToken, Timeout: cfg.RequestTimeout}, log), nil
	case "runpod":
		return runpod.New(runpod.Config{APIKey: cfg.RunPodKey, Timeout: cfg.RequestTimeout}, log), nil
	default:
		return nil, fmt.Errorf("config: unknown inference provider %q", cfg.Provider)
	}
}
