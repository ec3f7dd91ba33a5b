package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for:
//   - Required fields
//   - Positive layout steps and non-negative worker and interval settings
func Validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	if cfg.Story.Dir == "" {
		errs = append(errs, "story.dir is required")
	}
	if cfg.Story.ScanWorkers < 0 {
		errs = append(errs, fmt.Sprintf("story.scan_workers must not be negative, got %d", cfg.Story.ScanWorkers))
	}
	if cfg.Graph.StepX < 0 {
		errs = append(errs, fmt.Sprintf("graph.step_x must be positive, got %v", cfg.Graph.StepX))
	}
	if cfg.Graph.StepY < 0 {
		errs = append(errs, fmt.Sprintf("graph.step_y must be positive, got %v", cfg.Graph.StepY))
	}
	if cfg.Save.Path == "" {
		errs = append(errs, "save.path is required")
	}
	if cfg.Reveal.IntervalMs < 0 {
		errs = append(errs, fmt.Sprintf("reveal.interval_ms must not be negative, got %d", cfg.Reveal.IntervalMs))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
