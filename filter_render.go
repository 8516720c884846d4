package expect

import (
	"fmt"
	"math"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Char is a single character value. It renders single-quoted.
type Char rune

func (c Char) String() string {
	return string(rune(c))
}

// RenderCondition substitutes every bound variable referenced by text,
// except the candidate x, with its literal value. Member names after a dot
// and string literals are left alone. Values that cannot be rendered keep
// their raw reference; rendering never fails.
//
// Function bindings render by name and are never called.
func RenderCondition(text string, bindings Bindings) string {
	if len(bindings) == 0 {
		return text
	}
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case r == '"' || r == '\'' || r == '`':
			end := skipQuoted(text, i, r)
			sb.WriteString(text[i:end])
			i = end
		case isIdentStart(r):
			end := i + size
			for end < len(text) {
				next, nextSize := utf8.DecodeRuneInString(text[end:])
				if !isIdentPart(next) {
					break
				}
				end += nextSize
			}
			ident := text[i:end]
			sb.WriteString(substitute(ident, bindings, isMemberAccess(text, i)))
			i = end
		default:
			sb.WriteString(text[i : i+size])
			i += size
		}
	}
	return sb.String()
}

func substitute(ident string, bindings Bindings, member bool) string {
	if member || ident == CandidateBinding {
		return ident
	}
	value, ok := bindings[ident]
	if !ok {
		return ident
	}
	rendered, ok := renderBinding(value)
	if !ok {
		return ident
	}
	return rendered
}

func renderBinding(value any) (out string, ok bool) {
	defer func() {
		if recover() != nil {
			out, ok = "", false
		}
	}()
	return formatLiteral(value), true
}

func skipQuoted(text string, start int, quote rune) int {
	i := start + 1
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == '\\' && quote != '`' {
			i += size
			if i < len(text) {
				_, escSize := utf8.DecodeRuneInString(text[i:])
				i += escSize
			}
			continue
		}
		i += size
		if r == quote {
			return i
		}
	}
	return len(text)
}

func isMemberAccess(text string, identStart int) bool {
	for j := identStart - 1; j >= 0; j-- {
		switch text[j] {
		case ' ', '\t':
			continue
		case '.':
			return !(j > 0 && text[j-1] == '.')
		default:
			return false
		}
	}
	return false
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

// formatLiteral renders value the way it would be written in a condition.
func formatLiteral(value any) string {
	switch typed := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(typed)
	case Char:
		return strconv.QuoteRune(rune(typed))
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		return formatFloat(typed)
	case float32:
		return formatFloat(float64(typed))
	case Presence:
		return typed.String()
	case *KnownBug:
		return typed.Condition()
	case fmt.Stringer:
		return typed.String()
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Func {
		return funcName(rv)
	}
	return fmt.Sprintf("%v", value)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// funcName renders a function as pkg.Name.
func funcName(rv reflect.Value) string {
	fn := runtime.FuncForPC(rv.Pointer())
	if fn == nil {
		return rv.Type().String()
	}
	name := fn.Name()
	if slash := strings.LastIndex(name, "/"); slash >= 0 {
		name = name[slash+1:]
	}
	return name
}
