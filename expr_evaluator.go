package expect

import (
	"errors"

	exprlang "github.com/expr-lang/expr"
	"github.com/expr-lang/expr/file"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithFunctionRegistry wires a FunctionRegistry into the expr evaluator.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// exprEvaluator executes conditions using github.com/expr-lang/expr. The
// known-bug builders, the presence sentinels and registry functions are
// available to every expression.
type exprEvaluator struct {
	registry *FunctionRegistry
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Evaluate compiles and runs expression against bindings.
func (e *exprEvaluator) Evaluate(bindings Bindings, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(bindings)
}

// Compile returns a compiled rule that evaluates expression per invocation.
func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
		exprlang.Function("Expected", func(params ...any) (any, error) {
			return Expected(params[0]), nil
		}, new(func(any) *KnownBug)),
		exprlang.Function("ExpectedEmpty", func(...any) (any, error) {
			return ExpectedEmpty(), nil
		}, new(func() *KnownBug)),
	}
	for _, name := range e.registryNames() {
		options = append(options, exprlang.Function(name, e.registryFunction(name)))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		line, column := exprErrorLocation(err)
		return nil, newCompileError("expr", expression, line, column, err)
	}
	return &exprCompiledRule{
		evaluator:  e,
		program:    program,
		expression: expression,
	}, nil
}

type exprCompiledRule struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (r *exprCompiledRule) Source() string {
	return r.expression
}

func (r *exprCompiledRule) Evaluate(bindings Bindings) (any, error) {
	result, err := exprlang.Run(r.program, r.evaluator.environment(bindings))
	if err != nil {
		line, column := exprErrorLocation(err)
		return nil, newEvalError("expr", r.expression, line, column, err)
	}
	return result, nil
}

func (e *exprEvaluator) environment(bindings Bindings) map[string]any {
	env := presenceBindings(bindings)
	if e.registry != nil {
		env["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
	}
	return env
}

func (e *exprEvaluator) registryNames() []string {
	if e == nil || e.registry == nil {
		return nil
	}
	return e.registry.Names()
}

func (e *exprEvaluator) registryFunction(name string) func(...any) (any, error) {
	return func(arguments ...any) (any, error) {
		return e.registry.Call(name, arguments...)
	}
}

func exprErrorLocation(err error) (int, int) {
	var fileErr *file.Error
	if errors.As(err, &fileErr) {
		return fileErr.Line, fileErr.Column
	}
	return 0, 0
}
