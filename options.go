package expect

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	evaluator Evaluator
	cache     *ExpressionCache
	functions *FunctionRegistry
	logger    EvaluatorLogger
}

func applyOptions(opts []Option) engineConfig {
	cfg := engineConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithEvaluator configures the expression runtime. A nil evaluator keeps
// the expr default.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *engineConfig) {
		cfg.evaluator = e
	}
}

// FilterOption configures a Filter built by the engine.
type FilterOption func(*filterConfig)

type filterConfig struct {
	position Position
}

// AtPosition records where the condition was authored.
func AtPosition(line, column int) FilterOption {
	return func(cfg *filterConfig) {
		cfg.position = Position{Line: line, Column: column}
	}
}

func applyFilterOptions(opts []FilterOption) filterConfig {
	cfg := filterConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
