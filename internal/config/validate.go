package config

import (
	"errors"
	"fmt"

	"github.com/chazu/whitedwarf/pkg/depth"
	"github.com/chazu/whitedwarf/pkg/export"
)

// Validate reports every impossible setting at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config: %s: %w", fmt.Sprintf(format, args...), ErrInvalid))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		bad("server.port %d out of range", c.Server.Port)
	}
	if c.Storage.OutputsDir == "" {
		bad("storage.outputs_dir is empty")
	}
	if c.Pipeline.Workers < 1 {
		bad("pipeline.workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.QueueSize < 0 {
		bad("pipeline.queue_size must not be negative, got %d", c.Pipeline.QueueSize)
	}
	if c.Depth.Resolution < 1 {
		bad("depth.resolution must be at least 1, got %d", c.Depth.Resolution)
	}
	if c.Depth.ConditioningResolution < 1 {
		bad("depth.conditioning_resolution must be at least 1, got %d", c.Depth.ConditioningResolution)
	}
	if _, err := depth.ParseMode(c.Depth.Mode); err != nil {
		bad("depth.mode %q unknown", c.Depth.Mode)
	}
	if _, err := export.ParseFormats(c.Export.Formats); err != nil {
		bad("export.formats: %v", err)
	}
	if c.Export.Simplify < 0 || c.Export.Simplify > 1 {
		bad("export.simplify must be within [0,1], got %g", c.Export.Simplify)
	}
	switch c.Inference.Provider {
	case "replicate", "runpod":
	default:
		bad("inference.provider %q unknown", c.Inference.Provider)
	}
	for i, r := range c.Stability.Rules {
		if r.Predicate == "" {
			bad("stability.rules[%d] %q has no predicate", i, r.Name)
		}
	}
	return errors.Join(errs...)
}
