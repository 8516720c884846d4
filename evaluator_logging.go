package expect

import (
	"context"
	"log/slog"
	"time"
)

// EvaluationPhase distinguishes compile from evaluate log events.
type EvaluationPhase string

const (
	PhaseCompile  EvaluationPhase = "compile"
	PhaseEvaluate EvaluationPhase = "evaluate"
)

// EvaluatorLogEvent describes an evaluation attempt for logging.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Phase    EvaluationPhase
	Cached   bool
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

type slogEvaluatorLogger struct {
	logger *slog.Logger
}

// NewSlogEvaluatorLogger emits evaluator events through logger: debug for
// successful attempts, warn for failures. A nil logger uses slog.Default().
func NewSlogEvaluatorLogger(logger *slog.Logger) EvaluatorLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return slogEvaluatorLogger{logger: logger.With("component", "expect.engine")}
}

func (l slogEvaluatorLogger) LogEvaluation(event EvaluatorLogEvent) {
	attrs := []slog.Attr{
		slog.String("engine", event.Engine),
		slog.String("phase", string(event.Phase)),
		slog.String("expr", event.Expr),
		slog.Duration("duration", event.Duration),
	}
	if event.Phase == PhaseCompile {
		attrs = append(attrs, slog.Bool("cached", event.Cached))
	}
	if event.Err != nil {
		attrs = append(attrs, slog.String("error", event.Err.Error()))
		l.logger.LogAttrs(context.Background(), slog.LevelWarn, "expression failed", attrs...)
		return
	}
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "expression evaluated", attrs...)
}

// WithEvaluatorLogger attaches an evaluator logger to the engine.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *engineConfig) {
		if logger == nil {
			cfg.logger = noopEvaluatorLogger{}
			return
		}
		cfg.logger = logger
	}
}
