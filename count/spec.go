// Package count implements count specifications: the small grammar test
// authors use to bound how many messages are expected.
//
// Supported forms, tried in order:
//
//	=N  !=N  ≠N  >=N  ≥N  >N  <=N  ≤N  <N   comparison
//	[a..b]  (a..b)  [a-b]  (a-b)              inclusive range
//	N                                         exact count
//
// Both bracket styles evaluate inclusively at both ends.
package count

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrNotCountSpec reports text outside the count grammar.
var ErrNotCountSpec = errors.New("count: not a count specification")

// Spec bounds an observed quantity.
type Spec interface {
	// CheckInt reports whether actual satisfies the spec. Resolution
	// failures of dynamic specs report false.
	CheckInt(actual int) bool
	// Evaluate is CheckInt with resolution errors surfaced.
	Evaluate(actual int) (bool, error)
	// String returns the canonical form, which parses back to an
	// equivalent spec for comparisons and ranges.
	String() string
}

// Operator is a comparison operator.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
)

// Apply compares actual against n.
func (op Operator) Apply(actual, n int) (bool, error) {
	switch op {
	case OpEqual:
		return actual == n, nil
	case OpNotEqual:
		return actual != n, nil
	case OpGreater:
		return actual > n, nil
	case OpGreaterEqual:
		return actual >= n, nil
	case OpLess:
		return actual < n, nil
	case OpLessEqual:
		return actual <= n, nil
	default:
		return false, fmt.Errorf("count: unknown operator %q", string(op))
	}
}

// Comparison is `op N`.
type Comparison struct {
	Op Operator
	N  int
}

func (c Comparison) Evaluate(actual int) (bool, error) {
	return c.Op.Apply(actual, c.N)
}

func (c Comparison) CheckInt(actual int) bool {
	ok, err := c.Evaluate(actual)
	return err == nil && ok
}

func (c Comparison) String() string {
	if c.Op == OpEqual {
		return strconv.Itoa(c.N)
	}
	return string(c.Op) + strconv.Itoa(c.N)
}

// Range is `[Low..High]`. Exclusive only records that the text used
// parentheses; evaluation is inclusive either way.
type Range struct {
	Low       int
	High      int
	Exclusive bool
}

func (r Range) Evaluate(actual int) (bool, error) {
	return r.Low <= actual && actual <= r.High, nil
}

func (r Range) CheckInt(actual int) bool {
	ok, _ := r.Evaluate(actual)
	return ok
}

func (r Range) String() string {
	if r.Exclusive {
		return fmt.Sprintf("(%d..%d)", r.Low, r.High)
	}
	return fmt.Sprintf("[%d..%d]", r.Low, r.High)
}

// Resolver produces the operand of a dynamic spec.
type Resolver func() (int, error)

// Dynamic is `op <expression>` whose operand is resolved on every check.
type Dynamic struct {
	Op      Operator
	Source  string
	Resolve Resolver
}

func (d Dynamic) Evaluate(actual int) (bool, error) {
	if d.Resolve == nil {
		return false, fmt.Errorf("count: dynamic spec %q has no resolver", d.String())
	}
	n, err := d.Resolve()
	if err != nil {
		return false, fmt.Errorf("count: resolve %q: %w", d.Source, err)
	}
	if n < 0 {
		return false, fmt.Errorf("count: resolve %q: negative operand %d", d.Source, n)
	}
	return d.Op.Apply(actual, n)
}

func (d Dynamic) CheckInt(actual int) bool {
	ok, err := d.Evaluate(actual)
	return err == nil && ok
}

func (d Dynamic) String() string {
	return string(d.Op) + d.Source
}
