package count

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	comparisonPattern = regexp.MustCompile(`^\s*(==|=|!=|≠|>=|≥|>|<=|≤|<)\s*(\d+)\s*$`)
	rangePattern      = regexp.MustCompile(`^\s*([\[(])\s*(\d+)\s*(?:\.\.|-)\s*(\d+)\s*([\])])\s*$`)
	exactPattern      = regexp.MustCompile(`^\s*(\d+)\s*$`)
	operatorPrefix    = regexp.MustCompile(`^\s*(==|=|!=|≠|>=|≥|>|<=|≤|<)\s*(.+?)\s*$`)
)

// Parse converts text into a Spec. Text outside the grammar returns
// ErrNotCountSpec.
func Parse(text string) (Spec, error) {
	if m := comparisonPattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, ErrNotCountSpec
		}
		return Comparison{Op: normalizeOperator(m[1]), N: n}, nil
	}
	if m := rangePattern.FindStringSubmatch(text); m != nil {
		low, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, ErrNotCountSpec
		}
		high, err := strconv.Atoi(m[3])
		if err != nil {
			return nil, ErrNotCountSpec
		}
		return Range{Low: low, High: high, Exclusive: m[1] == "(" || m[4] == ")"}, nil
	}
	if m := exactPattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, ErrNotCountSpec
		}
		return Comparison{Op: OpEqual, N: n}, nil
	}
	return nil, ErrNotCountSpec
}

// MustParse is Parse for literals known to be valid.
func MustParse(text string) Spec {
	spec, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return spec
}

// SplitOperator splits operator-prefixed text into the operator and the
// remaining operand.
func SplitOperator(text string) (Operator, string, bool) {
	m := operatorPrefix.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	return normalizeOperator(m[1]), m[2], true
}

func normalizeOperator(raw string) Operator {
	switch strings.TrimSpace(raw) {
	case "=", "==":
		return OpEqual
	case "!=", "≠":
		return OpNotEqual
	case ">=", "≥":
		return OpGreaterEqual
	case ">":
		return OpGreater
	case "<=", "≤":
		return OpLessEqual
	case "<":
		return OpLess
	}
	return Operator(raw)
}
