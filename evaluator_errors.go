package expect

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"unicode/utf8"
)

var (
	ErrEmptyExpression = errors.New("expect: expression must not be empty")
	ErrNoEvaluator     = errors.New("expect: evaluator not configured")
)

// smartQuotes are typographic quotes that editors substitute for ' and ".
var smartQuotes = []rune{'‘', '’', '“', '”', '„', '‚'}

var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\(\s*(\d+)\s*:\s*(\d+)\s*\)`),
	regexp.MustCompile(`<input>:(\d+):(\d+)`),
	regexp.MustCompile(`[Ll]ine (\d+):(\d+)`),
}

// ExpressionCompileError reports condition text the runtime rejected.
type ExpressionCompileError struct {
	Engine     string
	Expr       string
	Line       int
	Column     int
	SmartQuote rune
	Err        error
}

func (e *ExpressionCompileError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("expect: %s compile %s%s: %v%s",
		e.Engine, describeExpression(e.Expr), describeLocation(e.Line, e.Column), e.Err, describeSmartQuote(e.SmartQuote))
}

func (e *ExpressionCompileError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExpressionEvalError reports a runtime failure while evaluating a
// compiled expression.
type ExpressionEvalError struct {
	Engine     string
	Expr       string
	Line       int
	Column     int
	SmartQuote rune
	Err        error
}

func (e *ExpressionEvalError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("expect: %s evaluate %s%s: %v%s",
		e.Engine, describeExpression(e.Expr), describeLocation(e.Line, e.Column), e.Err, describeSmartQuote(e.SmartQuote))
}

func (e *ExpressionEvalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UnsupportedValueTypeError reports a count condition whose value is
// neither a count specification nor a known bug.
type UnsupportedValueTypeError struct {
	Condition string
	Value     any
}

func (e *UnsupportedValueTypeError) Error() string {
	return fmt.Sprintf("expect: condition %q produced unsupported value %s (%T); expected a count specification or known bug",
		e.Condition, formatLiteral(e.Value), e.Value)
}

// NoValueError reports Value called on a filter without a concrete literal.
type NoValueError struct {
	Kind FilterKind
}

func (e *NoValueError) Error() string {
	return fmt.Sprintf("expect: %s filter has no value", e.Kind)
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func describeLocation(line, column int) string {
	if line <= 0 {
		return ""
	}
	return fmt.Sprintf(" at %d:%d", line, column)
}

func describeSmartQuote(r rune) string {
	if r == 0 {
		return ""
	}
	return fmt.Sprintf(" (the expression contains the typographic quote %q; use a straight ' or \" instead)", r)
}

// findSmartQuote returns the first typographic quote standing where a
// straight quote belongs. Quotes inside string literals are content.
func findSmartQuote(expr string) rune {
	for i := 0; i < len(expr); {
		r, size := utf8.DecodeRuneInString(expr[i:])
		switch {
		case r == '"' || r == '\'' || r == '`':
			i = skipQuoted(expr, i, r)
			continue
		case slices.Contains(smartQuotes, r):
			return r
		}
		i += size
	}
	return 0
}

// errorLocation recovers a line and column from runtime error text.
func errorLocation(err error) (int, int) {
	if err == nil {
		return 0, 0
	}
	message := err.Error()
	for _, pattern := range locationPatterns {
		m := pattern.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		line, lerr := strconv.Atoi(m[1])
		column, cerr := strconv.Atoi(m[2])
		if lerr == nil && cerr == nil {
			return line, column
		}
	}
	return 0, 0
}

func newCompileError(engine, expr string, line, column int, err error) error {
	if err == nil {
		return nil
	}
	var compileErr *ExpressionCompileError
	if errors.As(err, &compileErr) {
		fillErrorMetadata(&compileErr.Engine, &compileErr.Expr, engine, expr)
		return compileErr
	}
	if line <= 0 {
		line, column = errorLocation(err)
	}
	return &ExpressionCompileError{
		Engine:     engine,
		Expr:       expr,
		Line:       line,
		Column:     column,
		SmartQuote: findSmartQuote(expr),
		Err:        err,
	}
}

func newEvalError(engine, expr string, line, column int, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *ExpressionEvalError
	if errors.As(err, &evalErr) {
		fillErrorMetadata(&evalErr.Engine, &evalErr.Expr, engine, expr)
		return evalErr
	}
	if line <= 0 {
		line, column = errorLocation(err)
	}
	return &ExpressionEvalError{
		Engine:     engine,
		Expr:       expr,
		Line:       line,
		Column:     column,
		SmartQuote: findSmartQuote(expr),
		Err:        err,
	}
}

func fillErrorMetadata(engineField, exprField *string, engine, expr string) {
	if *engineField == "" {
		*engineField = engine
	}
	if *exprField == "" {
		*exprField = expr
	}
}
