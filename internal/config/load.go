package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < environment.
// An empty path skips the file; a missing explicit file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile looks for config in the working directory.
func findConfigFile() string {
	for _, path := range []string{"./whitedwarf.yaml", "./config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnv overrides fields from the environment. The variable names are
// the ones deployments already set.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"REPLICATE_API_TOKEN":    &cfg.Inference.ReplicateToken,
		"RUNPOD_API_KEY":         &cfg.Inference.RunPodKey,
		"MESH_MODEL_ID":          &cfg.Inference.MeshModel,
		"TEXTURE_MODEL_ID":       &cfg.Inference.TextureModel,
		"INFERENCE_PROVIDER":     &cfg.Inference.Provider,
		"HOST":                   &cfg.Server.Host,
		"PUBLIC_URL":             &cfg.Server.PublicURL,
		"WHITEDWARF_OUTPUTS_DIR": &cfg.Storage.OutputsDir,
		"WHITEDWARF_LOG_LEVEL":   &cfg.Logging.Level,
		"WHITEDWARF_LOG_FILE":    &cfg.Logging.File,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup("WHITEDWARF_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: WHITEDWARF_WORKERS %q: %w", v, err)
		}
		cfg.Pipeline.Workers = n
	}
	return nil
}

// ErrInvalid marks a configuration that cannot run.
var ErrInvalid = errors.New("invalid configuration")
