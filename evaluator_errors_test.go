package expect

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewEvalErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := newEvalError("expr", "x && missing", 0, 0, base)

	var evalErr *ExpressionEvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected ExpressionEvalError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
	if evalErr.Expr != "x && missing" {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if !errors.Is(evalErr.Err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
}

func TestNewEvalErrorAugmentsExisting(t *testing.T) {
	base := errors.New("runtime failure")
	existing := &ExpressionEvalError{
		Engine: "expr",
		Err:    base,
	}

	err := newEvalError("cel", "rule", 0, 0, existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
}

func TestErrorLocationPatterns(t *testing.T) {
	cases := []struct {
		message string
		line    int
		column  int
	}{
		{"unexpected token EOF (1:7)", 1, 7},
		{"ERROR: <input>:2:14: Syntax error", 2, 14},
		{"SyntaxError: (anonymous): Line 1:30 Unexpected end of input", 1, 30},
		{"no location here", 0, 0},
	}
	for _, tc := range cases {
		line, column := errorLocation(errors.New(tc.message))
		if line != tc.line || column != tc.column {
			t.Fatalf("errorLocation(%q) = %d:%d, want %d:%d", tc.message, line, column, tc.line, tc.column)
		}
	}
}

func TestEvalErrorNamesSmartQuote(t *testing.T) {
	err := newEvalError("expr", "x == ‘A’", 1, 6, errors.New("unexpected character"))
	if !strings.Contains(err.Error(), "typographic quote") {
		t.Fatalf("expected smart quote hint, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "at 1:6") {
		t.Fatalf("expected location in message, got %q", err.Error())
	}

	plain := newEvalError("expr", "x == 'A'", 0, 0, errors.New("unexpected character"))
	if strings.Contains(plain.Error(), "typographic") {
		t.Fatalf("expected no smart quote hint, got %q", plain.Error())
	}
}

func TestSmartQuoteInsideStringLiteralIsContent(t *testing.T) {
	cases := []struct {
		expr string
		want rune
	}{
		{`x == "it’s" && missing`, 0},
		{"x == 'say “hi”'", 0},
		{"x == `‘raw’`", 0},
		{`x == "a\"‘" + y`, 0},
		{`x == "ok" || x == ‘no’`, '‘'},
		{`x == ”open`, '”'},
	}
	for _, tc := range cases {
		if got := findSmartQuote(tc.expr); got != tc.want {
			t.Fatalf("findSmartQuote(%q) = %q, want %q", tc.expr, got, tc.want)
		}
	}

	err := newEvalError("expr", `x == "it’s" && missing`, 1, 15, errors.New("unknown name missing"))
	if strings.Contains(err.Error(), "typographic") {
		t.Fatalf("expected no smart quote hint for quoted content, got %q", err.Error())
	}
}

func TestSlogEvaluatorLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	engine := NewEngine(WithEvaluatorLogger(NewSlogEvaluatorLogger(logger)))

	if _, err := engine.EvaluateText("1 + 1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.Compile("1 +"); err == nil {
		t.Fatalf("expected compile error")
	}

	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") || !strings.Contains(out, "phase=evaluate") {
		t.Fatalf("expected debug evaluate record, got %q", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "expression failed") {
		t.Fatalf("expected warn record for compile failure, got %q", out)
	}
}
