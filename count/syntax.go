package count

import "regexp"

const (
	operatorExpr = `(?:==|=|!=|≠|>=|≥|>|<=|≤|<)`
	termExpr     = `(?:\d+(?:\.\d+)?|[A-Za-z_][\w.]*(?:\(\s*\))?)`
	arithExpr    = `\(*\s*` + termExpr + `\s*\)*(?:\s*[-+*/%]\s*\(*\s*` + termExpr + `\s*\)*)*`
	argsExpr     = `\((?:[^()]|\([^()]*\))*\)`
)

var (
	valueSyntax    = regexp.MustCompile(`^\s*` + operatorExpr + `?\s*` + arithExpr + `\s*$`)
	intervalSyntax = regexp.MustCompile(`^\s*[\[(]\s*` + arithExpr + `\s*(?:\.\.|-|,)\s*` + arithExpr + `\s*[\])]\s*$`)
	knownBugSyntax = regexp.MustCompile(`^\s*Expected\w*\s*` + argsExpr + `(?:\s*\.\s*(?:Bug\w*|Actual\w*|[vV]alidate)\s*` + argsExpr + `)*\s*$`)
)

// IsValidExpressionSyntax reports whether text has one of the surface
// forms routed to count filters: an optionally operator-prefixed number or
// arithmetic over variable references, an interval of two such values, or
// a known-bug call chain `Expected…(…)[.Bug…(…)|.Actual…(…)|.validate(…)]*`.
//
// The check is purely syntactic; nothing is evaluated.
func IsValidExpressionSyntax(text string) bool {
	return valueSyntax.MatchString(text) ||
		intervalSyntax.MatchString(text) ||
		knownBugSyntax.MatchString(text)
}
