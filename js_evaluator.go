//go:build js_eval

package expect

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsWrapperPrefix precedes the expression on line 1 of the compiled source.
const jsWrapperPrefix = "(function(){ return ("

type jsEvaluator struct {
	registry *FunctionRegistry
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	cfg := applyJSEvaluatorOptions(opts)
	return &jsEvaluator{
		registry: cfg.registry,
	}
}

func (e *jsEvaluator) Evaluate(bindings Bindings, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(bindings)
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	program, err := goja.Compile("", e.wrapExpression(expression), false)
	if err != nil {
		line, column := jsErrorLocation(err)
		return nil, newCompileError("js", expression, line, column, err)
	}
	return &jsCompiledRule{
		evaluator:  e,
		expression: expression,
		program:    program,
	}, nil
}

// run executes program on a fresh runtime; goja runtimes are not safe for
// concurrent use while programs are.
func (e *jsEvaluator) run(bindings Bindings, expression string, program *goja.Program) (any, error) {
	vm := goja.New()
	if err := e.injectBindings(vm, bindings); err != nil {
		return nil, newEvalError("js", expression, 0, 0, err)
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		line, column := jsErrorLocation(err)
		return nil, newEvalError("js", expression, line, column, err)
	}
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, nil
	}
	return value.Export(), nil
}

func (e *jsEvaluator) injectBindings(vm *goja.Runtime, bindings Bindings) error {
	for key, value := range presenceBindings(bindings) {
		if err := vm.Set(key, value); err != nil {
			return err
		}
	}
	if err := vm.Set("Expected", Expected); err != nil {
		return err
	}
	if err := vm.Set("ExpectedEmpty", ExpectedEmpty); err != nil {
		return err
	}
	if e.registry == nil {
		return nil
	}
	if err := vm.Set("call", func(name string, arguments ...any) (any, error) {
		return e.registry.Call(name, arguments...)
	}); err != nil {
		return err
	}
	for _, name := range e.registry.Names() {
		fn := name
		if err := vm.Set(fn, func(arguments ...any) (any, error) {
			return e.registry.Call(fn, arguments...)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (e *jsEvaluator) wrapExpression(expression string) string {
	return fmt.Sprintf("%s%s); })()", jsWrapperPrefix, expression)
}

type jsCompiledRule struct {
	evaluator  *jsEvaluator
	expression string
	program    *goja.Program
}

func (r *jsCompiledRule) Source() string {
	return r.expression
}

func (r *jsCompiledRule) Evaluate(bindings Bindings) (any, error) {
	return r.evaluator.run(bindings, r.expression, r.program)
}

// jsErrorLocation maps a goja position back into the unwrapped expression.
func jsErrorLocation(err error) (int, int) {
	line, column := errorLocation(err)
	if line == 1 && column > len(jsWrapperPrefix) {
		column -= len(jsWrapperPrefix)
	}
	return line, column
}

func jsEvaluatorAvailable() bool {
	return true
}
