// Package config handles service configuration loading and validation.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/chazu/whitedwarf/pkg/engine"
)

// Config holds all service settings.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Depth     DepthConfig     `yaml:"depth"`
	Export    ExportConfig    `yaml:"export"`
	Stability StabilityConfig `yaml:"stability"`
	Inference InferenceConfig `yaml:"inference"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	PublicURL       string        `yaml:"public_url"` // Base for shareable artifact links
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	MaxUploadMB     int           `yaml:"max_upload_mb"`
}

// StorageConfig holds artifact locations.
type StorageConfig struct {
	OutputsDir string `yaml:"outputs_dir"`
}

// PipelineConfig sizes the worker pool.
type PipelineConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// DepthConfig holds depth map settings.
type DepthConfig struct {
	Resolution             int    `yaml:"resolution"`
	Mode                   string `yaml:"mode"`                    // vertices or filled
	ConditioningResolution int    `yaml:"conditioning_resolution"` // Size sent to the texture model
}

// ExportConfig holds artifact export settings.
type ExportConfig struct {
	Formats     []string `yaml:"formats"`
	USDZEnabled bool     `yaml:"usdz_enabled"`
	Simplify    float64  `yaml:"simplify"` // Triangle keep ratio, 0 disables
}

// StabilityConfig holds extra scripted verdict rules, tried before the
// built-in table.
type StabilityConfig struct {
	Rules []engine.RuleScript `yaml:"rules"`
}

// InferenceConfig holds hosted model settings.
type InferenceConfig struct {
	Provider       string        `yaml:"provider"` // replicate or runpod
	ReplicateToken string        `yaml:"replicate_token"`
	RunPodKey      string        `yaml:"runpod_key"`
	MeshModel      string        `yaml:"mesh_model"`
	TextureModel   string        `yaml:"texture_model"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	MaxWait        time.Duration `yaml:"max_wait"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Model defaults match the hosted models the service was built against.
const (
	DefaultMeshModel    = "tencent/hunyuan3d-2:d5b6a060bb03613697aa4e39b983ed8f3e0de0bade54a6e1b5a5ecf10e182258"
	DefaultTextureModel = "jagilley/controlnet-depth:922c7bb67b87ec32cbc2fd11b1d5f94f0ba4f5519c4dbd02856376444127cc60"
)

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			PublicURL:       "http://localhost:8000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins: []string{
				"http://localhost:5173",
				"http://127.0.0.1:5173",
				"http://localhost:5174",
				"http://127.0.0.1:5174",
			},
			MaxUploadMB: 20,
		},
		Storage: StorageConfig{
			OutputsDir: "outputs",
		},
		Pipeline: PipelineConfig{
			Workers:   4,
			QueueSize: 64,
		},
		Depth: DepthConfig{
			Resolution:             512,
			Mode:                   "vertices",
			ConditioningResolution: 512,
		},
		Export: ExportConfig{
			Formats:     []string{"glb", "usdz"},
			USDZEnabled: true,
		},
		Inference: InferenceConfig{
			Provider:       "replicate",
			MeshModel:      DefaultMeshModel,
			TextureModel:   DefaultTextureModel,
			PollInterval:   3 * time.Second,
			MaxWait:        300 * time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
