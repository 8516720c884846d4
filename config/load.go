package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GOEXPECT_"

// Load reads the YAML file at path, applies defaults and environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := applyEnvOverrides(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type lookupFunc func(string) (string, bool)

// applyEnvOverrides applies GOEXPECT_SECTION_FIELD variables. Malformed
// values are reported rather than ignored.
func applyEnvOverrides(cfg *Config, lookup lookupFunc) error {
	var errs []FieldError
	str := func(name string, dst *string) {
		if val, ok := lookup(EnvPrefix + name); ok && val != "" {
			*dst = val
		}
	}
	boolean := func(name string, dst *bool) {
		val, ok := lookup(EnvPrefix + name)
		if !ok || val == "" {
			return
		}
		b, err := strconv.ParseBool(val)
		if err != nil {
			errs = append(errs, FieldError{Field: EnvPrefix + name, Message: "must be a boolean"})
			return
		}
		*dst = b
	}
	integer := func(name string, dst *int) {
		val, ok := lookup(EnvPrefix + name)
		if !ok || val == "" {
			return
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			errs = append(errs, FieldError{Field: EnvPrefix + name, Message: "must be an integer"})
			return
		}
		*dst = i
	}
	duration := func(name string, dst *time.Duration) {
		val, ok := lookup(EnvPrefix + name)
		if !ok || val == "" {
			return
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			errs = append(errs, FieldError{Field: EnvPrefix + name, Message: "must be a duration"})
			return
		}
		*dst = d
	}
	list := func(name string, dst *[]string) {
		val, ok := lookup(EnvPrefix + name)
		if !ok {
			return
		}
		*dst = splitList(val)
	}

	str("EXPRESSIONS_ENGINE", &cfg.Expressions.Engine)
	integer("EXPRESSIONS_CACHE_CAPACITY", &cfg.Expressions.CacheCapacity)

	duration("WAIT_DEFAULT_TIMEOUT", &cfg.Wait.DefaultTimeout)
	boolean("WAIT_CHECK_MESSAGE_NAME", &cfg.Wait.CheckMessageName)
	boolean("WAIT_REORDER_GROUPS", &cfg.Wait.ReorderGroups)
	list("WAIT_IGNORED_FIELDS", &cfg.Wait.IgnoredFields)
	list("WAIT_STORED_MESSAGE_TYPES", &cfg.Wait.StoredMessageTypes)
	boolean("WAIT_INVERT_STORED_MESSAGE_TYPES", &cfg.Wait.InvertStoredMessageTypes)

	str("CHECKPOINTS_DRIVER", &cfg.Checkpoints.Driver)
	str("CHECKPOINTS_PATH", &cfg.Checkpoints.Path)
	duration("CHECKPOINTS_OPEN_TIMEOUT", &cfg.Checkpoints.OpenTimeout)

	str("LOGGING_LEVEL", &cfg.Logging.Level)
	str("LOGGING_FORMAT", &cfg.Logging.Format)

	boolean("METRICS_ENABLED", &cfg.Metrics.Enabled)
	str("METRICS_NAMESPACE", &cfg.Metrics.Namespace)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	// A driver switched by the environment may still need its path default.
	ApplyDefaults(cfg)
	return nil
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
