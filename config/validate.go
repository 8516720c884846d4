package config

import (
	"fmt"
	"strings"
)

// FieldError is a validation failure for one configuration field.
type FieldError struct {
	// Field is the dotted path, e.g. "wait.default_timeout".
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every field error found.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "config: validation failed"
	case 1:
		return "config: validation failed: " + e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "config: validation failed with %d errors:", len(e.Errors))
	for _, err := range e.Errors {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Validate checks the whole configuration and reports every failure.
func Validate(cfg *Config) error {
	var errs []FieldError
	errs = append(errs, validateExpressions(&cfg.Expressions)...)
	errs = append(errs, validateWait(&cfg.Wait)...)
	errs = append(errs, validateCheckpoints(&cfg.Checkpoints)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateExpressions(cfg *ExpressionsConfig) []FieldError {
	var errs []FieldError
	switch cfg.Engine {
	case "expr", "cel", "js":
	default:
		errs = append(errs, FieldError{Field: "expressions.engine", Message: fmt.Sprintf("unsupported engine %q (expr, cel, js)", cfg.Engine)})
	}
	if cfg.CacheCapacity < 0 {
		errs = append(errs, FieldError{Field: "expressions.cache_capacity", Message: "must not be negative"})
	}
	return errs
}

func validateWait(cfg *WaitConfig) []FieldError {
	var errs []FieldError
	if cfg.DefaultTimeout < 0 {
		errs = append(errs, FieldError{Field: "wait.default_timeout", Message: "must not be negative"})
	}
	if cfg.InvertStoredMessageTypes && len(cfg.StoredMessageTypes) == 0 {
		errs = append(errs, FieldError{Field: "wait.invert_stored_message_types", Message: "requires stored_message_types"})
	}
	for i, name := range cfg.StoredMessageTypes {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("wait.stored_message_types[%d]", i), Message: "must not be empty"})
		}
	}
	return errs
}

func validateCheckpoints(cfg *CheckpointsConfig) []FieldError {
	var errs []FieldError
	switch cfg.Driver {
	case "memory":
	case "bolt":
		if cfg.Path == "" {
			errs = append(errs, FieldError{Field: "checkpoints.path", Message: "required for the bolt driver"})
		}
	default:
		errs = append(errs, FieldError{Field: "checkpoints.driver", Message: fmt.Sprintf("unsupported driver %q (memory, bolt)", cfg.Driver)})
	}
	if cfg.OpenTimeout < 0 {
		errs = append(errs, FieldError{Field: "checkpoints.open_timeout", Message: "must not be negative"})
	}
	return errs
}

func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError
	if _, err := parseLevel(cfg.Level); err != nil {
		errs = append(errs, FieldError{Field: "logging.level", Message: err.Error()})
	}
	switch cfg.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{Field: "logging.format", Message: fmt.Sprintf("unsupported format %q (json, text)", cfg.Format)})
	}
	return errs
}
