package expect

import (
	"fmt"
	"maps"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-expect/count"
)

// Engine turns authored condition text into Filters. It compiles through a
// shared ExpressionCache and is safe for concurrent use.
type Engine struct {
	evaluator Evaluator
	name      string
	namespace string
	cache     *ExpressionCache
	logger    EvaluatorLogger
}

// engineSeq numbers engines so each owns its keys in a shared cache.
// Compiled rules keep the evaluator, and with it the function registry,
// that produced them.
var engineSeq atomic.Uint64

// NewEngine constructs an Engine. Without options it evaluates with expr
// and owns a private cache.
func NewEngine(opts ...Option) *Engine {
	cfg := applyOptions(opts)
	evaluator := cfg.evaluator
	if evaluator == nil {
		var exprOpts []ExprEvaluatorOption
		if cfg.functions != nil {
			exprOpts = append(exprOpts, ExprWithFunctionRegistry(cfg.functions))
		}
		evaluator = NewExprEvaluator(exprOpts...)
	}
	cache := cfg.cache
	if cache == nil {
		cache = NewExpressionCache(DefaultCacheCapacity)
	}
	logger := cfg.logger
	if logger == nil {
		logger = noopEvaluatorLogger{}
	}
	name := evaluatorEngineName(evaluator)
	return &Engine{
		evaluator: evaluator,
		name:      name,
		namespace: fmt.Sprintf("%s#%d:", name, engineSeq.Add(1)),
		cache:     cache,
		logger:    logger,
	}
}

// Name returns the runtime name: expr, cel, js or custom.
func (e *Engine) Name() string {
	return e.name
}

// Cache returns the cache the engine compiles through.
func (e *Engine) Cache() *ExpressionCache {
	return e.cache
}

// Compile returns the cached rule for text, compiling it on first use.
func (e *Engine) Compile(text string) (CompiledRule, error) {
	if text == "" {
		return nil, ErrEmptyExpression
	}
	if e.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	start := time.Now()
	rule, cached, err := e.cache.GetOrCompile(e.namespace+text, func() (CompiledRule, error) {
		return e.evaluator.Compile(text)
	})
	err = newCompileError(e.name, text, 0, 0, err)
	e.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   e.name,
		Expr:     text,
		Phase:    PhaseCompile,
		Cached:   cached,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// Evaluate executes rule against bindings.
func (e *Engine) Evaluate(rule CompiledRule, bindings Bindings) (value any, err error) {
	if rule == nil {
		return nil, ErrEmptyExpression
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = newEvalError(e.name, rule.Source(), 0, 0, fmt.Errorf("panic: %v", r))
		}
		e.logger.LogEvaluation(EvaluatorLogEvent{
			Engine:   e.name,
			Expr:     rule.Source(),
			Phase:    PhaseEvaluate,
			Duration: time.Since(start),
			Err:      err,
		})
	}()
	value, err = rule.Evaluate(bindings)
	if err != nil {
		return nil, newEvalError(e.name, rule.Source(), 0, 0, err)
	}
	return value, nil
}

// EvaluateText compiles text and evaluates it once.
func (e *Engine) EvaluateText(text string, bindings Bindings) (any, error) {
	rule, err := e.Compile(text)
	if err != nil {
		return nil, err
	}
	return e.Evaluate(rule, bindings)
}

// BuildFilter evaluates condition once and wraps the outcome: PRESENT
// becomes a NotNullFilter, MISSING a NullFilter, a known-bug expectation a
// KnownBugFilter and any other value a LiteralFilter.
func (e *Engine) BuildFilter(condition string, bindings Bindings, opts ...FilterOption) (Filter, error) {
	cfg := applyFilterOptions(opts)
	value, err := e.EvaluateText(condition, bindings)
	if err != nil {
		return nil, err
	}
	switch Classify(value) {
	case KindPresent:
		return &NotNullFilter{position: cfg.position}, nil
	case KindMissing:
		return &NullFilter{position: cfg.position}, nil
	case KindKnownBug:
		return newKnownBugFilter(value.(*KnownBug), cfg.position)
	default:
		return &LiteralFilter{value: value, position: cfg.position}, nil
	}
}

// BuildExpressionFilter produces a filter that re-evaluates condition for
// every candidate with the candidate bound to x.
func (e *Engine) BuildExpressionFilter(condition string, bindings Bindings, opts ...FilterOption) (Filter, error) {
	cfg := applyFilterOptions(opts)
	rule, err := e.Compile(condition)
	if err != nil {
		return nil, err
	}
	frozen := maps.Clone(bindings)
	return &ExpressionFilter{
		engine:     e,
		rule:       rule,
		bindings:   frozen,
		diagnostic: RenderCondition(condition, frozen),
		position:   cfg.position,
	}, nil
}

// BuildRegexFilter evaluates condition to a pattern matched against the
// string form of each candidate.
func (e *Engine) BuildRegexFilter(condition string, bindings Bindings, opts ...FilterOption) (Filter, error) {
	cfg := applyFilterOptions(opts)
	value, err := e.EvaluateText(condition, bindings)
	if err != nil {
		return nil, err
	}
	pattern, ok := value.(string)
	if !ok {
		return nil, &UnsupportedValueTypeError{Condition: condition, Value: value}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("expect: regex filter %q: %w", pattern, err)
	}
	return &RegexFilter{pattern: re, position: cfg.position}, nil
}

// BuildCountFilter produces a CountFilter or a KnownBugFilter bounding a
// quantity. Literal count text is used directly. Operator-prefixed text
// with a non-literal operand becomes a dynamic spec resolved on every
// check. Anything else is evaluated and its result must be count text or a
// known-bug expectation.
func (e *Engine) BuildCountFilter(condition string, bindings Bindings, opts ...FilterOption) (Filter, error) {
	cfg := applyFilterOptions(opts)
	if spec, err := count.Parse(condition); err == nil {
		return &CountFilter{spec: spec, position: cfg.position}, nil
	}
	if op, operand, ok := count.SplitOperator(condition); ok {
		return e.dynamicCountFilter(op, operand, bindings, cfg.position)
	}
	value, err := e.EvaluateText(condition, bindings)
	if err != nil {
		return nil, err
	}
	if spec, err := count.Parse(countText(value)); err == nil {
		return &CountFilter{spec: spec, position: cfg.position}, nil
	}
	if Classify(value) == KindKnownBug {
		return newKnownBugFilter(value.(*KnownBug), cfg.position)
	}
	return nil, &UnsupportedValueTypeError{Condition: condition, Value: value}
}

func (e *Engine) dynamicCountFilter(op count.Operator, operand string, bindings Bindings, position Position) (Filter, error) {
	rule, err := e.Compile(operand)
	if err != nil {
		return nil, err
	}
	frozen := maps.Clone(bindings)
	spec := count.Dynamic{
		Op:     op,
		Source: RenderCondition(operand, frozen),
		Resolve: func() (int, error) {
			value, err := e.Evaluate(rule, frozen)
			if err != nil {
				return 0, err
			}
			n, ok := toInt(value)
			if !ok {
				return 0, &UnsupportedValueTypeError{Condition: operand, Value: value}
			}
			return n, nil
		},
	}
	return &CountFilter{spec: spec, position: position}, nil
}

func countText(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case nil, bool, *KnownBug:
		return ""
	default:
		if n, ok := toInt(value); ok {
			return fmt.Sprint(n)
		}
		return fmt.Sprint(value)
	}
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*expect.exprEvaluator":
		return "expr"
	case "*expect.celEvaluator":
		return "cel"
	case "*expect.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
