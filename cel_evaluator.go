package expect

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// Marker strings standing in for Presence inside CEL programs.
const (
	celPresentMarker = "\x00expect:present"
	celMissingMarker = "\x00expect:missing"
)

// celMaxCallArgs bounds the arity of call(name, ...) overloads.
const celMaxCallArgs = 4

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// celEvaluator runs conditions with cel-go. Programs are parsed but not
// type-checked because bindings are only known at evaluation time.
// Registry functions are reached through call(name, args...).
type celEvaluator struct {
	registry *FunctionRegistry
	env      *celgo.Env
	envErr   error
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.env, e.envErr = e.buildEnv()
	return e
}

func (e *celEvaluator) Evaluate(bindings Bindings, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(bindings)
}

func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	if e.envErr != nil {
		return nil, newCompileError("cel", expression, 0, 0, e.envErr)
	}
	ast, issues := e.env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, newCompileError("cel", expression, 0, 0, issues.Err())
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return nil, newCompileError("cel", expression, 0, 0, err)
	}
	return &celCompiledRule{
		program:    program,
		expression: expression,
	}, nil
}

func (e *celEvaluator) buildEnv() (*celgo.Env, error) {
	var opts []celgo.EnvOption
	if e.registry != nil {
		opts = append(opts, celgo.Function("call", e.callOverloads()...))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) callOverloads() []celgo.FunctionOpt {
	overloads := make([]celgo.FunctionOpt, 0, celMaxCallArgs+1)
	for arity := 0; arity <= celMaxCallArgs; arity++ {
		params := []*celgo.Type{celgo.StringType}
		for i := 0; i < arity; i++ {
			params = append(params, celgo.DynType)
		}
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("call_string_dyn%d", arity),
			params,
			celgo.DynType,
			celgo.FunctionBinding(e.callBinding),
		))
	}
	return overloads
}

func (e *celEvaluator) callBinding(values ...ref.Val) ref.Val {
	if len(values) == 0 {
		return types.NewErr("expect: call requires function name")
	}
	name, ok := values[0].Value().(string)
	if !ok {
		return types.NewErr("expect: call name must be string")
	}
	args := make([]any, 0, len(values)-1)
	for _, val := range values[1:] {
		args = append(args, val.Value())
	}
	result, err := e.registry.Call(name, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

type celCompiledRule struct {
	program    celgo.Program
	expression string
}

func (r *celCompiledRule) Source() string {
	return r.expression
}

func (r *celCompiledRule) Evaluate(bindings Bindings) (any, error) {
	out, _, err := r.program.Eval(celActivation(bindings))
	if err != nil {
		return nil, newEvalError("cel", r.expression, 0, 0, err)
	}
	return celResult(out.Value()), nil
}

func celActivation(bindings Bindings) map[string]any {
	activation := make(map[string]any, len(bindings)+2)
	activation[PresentBinding] = celPresentMarker
	activation[MissingBinding] = celMissingMarker
	for key, value := range bindings {
		activation[key] = celValue(value)
	}
	return activation
}

// celValue converts values CEL cannot adapt natively.
func celValue(value any) any {
	switch typed := value.(type) {
	case int:
		return int64(typed)
	case int32:
		return int64(typed)
	case uint:
		return uint64(typed)
	case float32:
		return float64(typed)
	case Presence:
		if typed == Missing {
			return celMissingMarker
		}
		return celPresentMarker
	default:
		return value
	}
}

func celResult(value any) any {
	switch value {
	case celPresentMarker:
		return Present
	case celMissingMarker:
		return Missing
	}
	return value
}
