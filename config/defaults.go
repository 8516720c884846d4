package config

import (
	"time"

	"github.com/goliatone/go-expect"
)

const (
	DefaultEngine           = "expr"
	DefaultWaitTimeout      = 10 * time.Second
	DefaultCheckpointDriver = "memory"
	DefaultCheckpointPath   = "checkpoints.db"
	DefaultOpenTimeout      = time.Second
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultMetricsNamespace = "goexpect"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero values.
func ApplyDefaults(cfg *Config) {
	if cfg.Expressions.Engine == "" {
		cfg.Expressions.Engine = DefaultEngine
	}
	if cfg.Expressions.CacheCapacity == 0 {
		cfg.Expressions.CacheCapacity = expect.DefaultCacheCapacity
	}
	if cfg.Wait.DefaultTimeout == 0 {
		cfg.Wait.DefaultTimeout = DefaultWaitTimeout
	}
	if cfg.Checkpoints.Driver == "" {
		cfg.Checkpoints.Driver = DefaultCheckpointDriver
	}
	if cfg.Checkpoints.Driver == "bolt" && cfg.Checkpoints.Path == "" {
		cfg.Checkpoints.Path = DefaultCheckpointPath
	}
	if cfg.Checkpoints.OpenTimeout == 0 {
		cfg.Checkpoints.OpenTimeout = DefaultOpenTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}
