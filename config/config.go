// Package config loads deployment configuration for hosts that embed the
// verification core: which expression runtime to use, default wait
// settings, checkpoint storage and logging.
//
// Loading sequence:
//  1. Read YAML from file
//  2. Apply default values
//  3. Apply GOEXPECT_* environment overrides
//  4. Validate
package config

import "time"

// Config is the root configuration document.
type Config struct {
	Expressions ExpressionsConfig `yaml:"expressions"`
	Wait        WaitConfig        `yaml:"wait"`
	Checkpoints CheckpointsConfig `yaml:"checkpoints"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ExpressionsConfig selects and sizes the expression runtime.
type ExpressionsConfig struct {
	// Engine is one of "expr", "cel" or "js".
	Engine        string `yaml:"engine"`
	CacheCapacity int    `yaml:"cache_capacity"`
}

// WaitConfig holds orchestrator defaults.
type WaitConfig struct {
	DefaultTimeout           time.Duration `yaml:"default_timeout"`
	CheckMessageName         bool          `yaml:"check_message_name"`
	ReorderGroups            bool          `yaml:"reorder_groups"`
	IgnoredFields            []string      `yaml:"ignored_fields"`
	StoredMessageTypes       []string      `yaml:"stored_message_types"`
	InvertStoredMessageTypes bool          `yaml:"invert_stored_message_types"`
}

// CheckpointsConfig selects the checkpoint store.
type CheckpointsConfig struct {
	// Driver is "memory" or "bolt".
	Driver      string        `yaml:"driver"`
	Path        string        `yaml:"path"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn" or "error".
	Level string `yaml:"level"`
	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// MetricsConfig configures prometheus metric names.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}
