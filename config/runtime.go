package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-expect"
	"github.com/goliatone/go-expect/compare"
	"github.com/goliatone/go-expect/pkg/checkpoint"
	"github.com/goliatone/go-expect/stream"
	"github.com/goliatone/go-expect/wait"
)

// ErrJSUnavailable is returned when the js engine is selected in a binary
// built without the js_eval tag.
var ErrJSUnavailable = errors.New("config: js engine requires the js_eval build tag")

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unsupported level %q (debug, info, warn, error)", level)
}

// NewLogger builds a slog logger writing to w.
func NewLogger(cfg LoggingConfig, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// CompareSettings returns the comparison settings for the wait section.
func (c *Config) CompareSettings() compare.Settings {
	return compare.Settings{
		CheckMessageName: c.Wait.CheckMessageName,
		IgnoredFields:    append([]string(nil), c.Wait.IgnoredFields...),
		ReorderGroups:    c.Wait.ReorderGroups,
	}
}

// TypePolicy returns the stored message type policy.
func (c *Config) TypePolicy() stream.TypePolicy {
	return stream.TypePolicy{
		Types:  append([]string(nil), c.Wait.StoredMessageTypes...),
		Invert: c.Wait.InvertStoredMessageTypes,
	}
}

// NewEngine builds the expression engine selected by the expressions
// section. A nil registry skips cache metrics.
func (c *Config) NewEngine(functions *expect.FunctionRegistry, registry prometheus.Registerer, logger *slog.Logger) (*expect.Engine, error) {
	var evaluator expect.Evaluator
	switch c.Expressions.Engine {
	case "expr", "":
		var opts []expect.ExprEvaluatorOption
		if functions != nil {
			opts = append(opts, expect.ExprWithFunctionRegistry(functions))
		}
		evaluator = expect.NewExprEvaluator(opts...)
	case "cel":
		var opts []expect.CELEvaluatorOption
		if functions != nil {
			opts = append(opts, expect.CELWithFunctionRegistry(functions))
		}
		evaluator = expect.NewCELEvaluator(opts...)
	case "js":
		var opts []expect.JSEvaluatorOption
		if functions != nil {
			opts = append(opts, expect.JSWithFunctionRegistry(functions))
		}
		evaluator = expect.NewJSEvaluator(opts...)
		if evaluator == nil {
			return nil, ErrJSUnavailable
		}
	default:
		return nil, fmt.Errorf("config: unsupported engine %q", c.Expressions.Engine)
	}

	cacheOpts := []expect.CacheOption{expect.WithCacheName(c.Expressions.Engine)}
	if registry != nil && c.Metrics.Enabled {
		cacheOpts = append(cacheOpts, expect.WithCacheMetrics(expect.NewCacheMetrics(c.Metrics.Namespace, "expressions", registry)))
	}
	opts := []expect.Option{
		expect.WithEvaluator(evaluator),
		expect.WithExpressionCache(expect.NewExpressionCache(c.Expressions.CacheCapacity, cacheOpts...)),
	}
	if logger != nil {
		opts = append(opts, expect.WithEvaluatorLogger(expect.NewSlogEvaluatorLogger(logger)))
	}
	return expect.NewEngine(opts...), nil
}

// OpenCheckpointStore opens the configured store. The returned close
// function is a no-op for the memory driver.
func (c *Config) OpenCheckpointStore(logger *slog.Logger) (checkpoint.Store, func() error, error) {
	switch c.Checkpoints.Driver {
	case "memory", "":
		return checkpoint.NewMemoryStore(), func() error { return nil }, nil
	case "bolt":
		opts := []checkpoint.BoltOption{checkpoint.WithOpenTimeout(c.Checkpoints.OpenTimeout)}
		if logger != nil {
			opts = append(opts, checkpoint.WithBoltLogger(logger))
		}
		store, err := checkpoint.OpenBoltStore(c.Checkpoints.Path, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	return nil, nil, fmt.Errorf("config: unsupported checkpoint driver %q", c.Checkpoints.Driver)
}

// WaitOptions returns orchestrator options for the wait and metrics
// sections.
func (c *Config) WaitOptions(registry prometheus.Registerer, logger *slog.Logger) []wait.Option {
	opts := []wait.Option{
		wait.WithSettings(c.CompareSettings()),
		wait.WithTypePolicy(c.TypePolicy()),
	}
	if logger != nil {
		opts = append(opts, wait.WithLogger(logger))
	}
	if registry != nil && c.Metrics.Enabled {
		opts = append(opts, wait.WithMetrics(wait.NewMetrics(c.Metrics.Namespace, registry)))
	}
	return opts
}
