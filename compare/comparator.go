package compare

import (
	"errors"
	"fmt"
	"slices"

	"github.com/goliatone/go-expect"
	"github.com/goliatone/go-expect/message"
)

// Settings tune a comparison.
type Settings struct {
	// CheckMessageName makes candidates of another type not applicable.
	CheckMessageName bool
	// IgnoredFields are skipped at every nesting level.
	IgnoredFields []string
	// ReorderGroups asks callers to structurally reorder repeating groups
	// before comparing.
	ReorderGroups bool
}

func (s Settings) ignores(field string) bool {
	return slices.Contains(s.IgnoredFields, field)
}

// Comparator produces per-field verdicts between a candidate and a filter
// message. A nil Result means the candidate does not apply to the filter.
type Comparator interface {
	Compare(actual, filter message.Message, settings Settings) *Result
}

// ComparatorFunc adapts a function to Comparator.
type ComparatorFunc func(actual, filter message.Message, settings Settings) *Result

func (f ComparatorFunc) Compare(actual, filter message.Message, settings Settings) *Result {
	if f == nil {
		return nil
	}
	return f(actual, filter, settings)
}

// Default compares every filter field against the candidate. Filter values
// may be expect.Filter, *expect.KnownBug, nested messages, repeating groups
// compared position by position, or plain values compared with
// expect.ValuesEqual.
type Default struct{}

func (Default) Compare(actual, filter message.Message, settings Settings) *Result {
	if actual == nil || filter == nil {
		return nil
	}
	if settings.CheckMessageName && actual.Name() != filter.Name() {
		return nil
	}
	c := &comparison{result: NewResult(filter.Name()), settings: settings}
	c.fields("", actual, filter)
	c.result.Cause = c.cause()
	return c.result
}

type comparison struct {
	result   *Result
	settings Settings
	bugs     *expect.KnownBugCause
	errs     []error
}

func (c *comparison) fields(prefix string, actual, filter message.Message) {
	for _, name := range filter.FieldNames() {
		path := prefix + name
		if c.settings.ignores(name) {
			c.result.Add(FieldResult{Path: path, Status: NA})
			continue
		}
		expected, _ := filter.Get(name)
		value, _ := actual.Get(name)
		c.field(path, value, expected)
	}
}

func (c *comparison) field(path string, value, expected any) {
	switch typed := expected.(type) {
	case expect.Filter:
		c.record(path, typed.Condition(), value, typed.Validate(value))
	case *expect.KnownBug:
		c.record(path, typed.Condition(), value, typed.Validate(value))
	case message.Message:
		nested, ok := value.(message.Message)
		if !ok {
			c.mismatch(path, message.Format(typed), value)
			return
		}
		c.fields(path+".", nested, typed)
	case []message.Message:
		legs, ok := value.([]message.Message)
		if !ok {
			c.mismatch(path, fmt.Sprintf("%d legs", len(typed)), value)
			return
		}
		for i, leg := range typed {
			legPath := fmt.Sprintf("%s[%d]", path, i)
			if i >= len(legs) {
				c.mismatch(legPath, message.Format(leg), nil)
				continue
			}
			c.fields(legPath+".", legs[i], leg)
		}
	default:
		if expect.ValuesEqual(value, expected) {
			c.result.Add(FieldResult{Path: path, Status: Passed, Expected: fmt.Sprint(expected), Actual: value})
			return
		}
		c.mismatch(path, fmt.Sprint(expected), value)
	}
}

func (c *comparison) record(path, condition string, value any, verdict *expect.ExpressionResult) {
	c.result.Add(FieldResult{
		Path:     path,
		Status:   StatusOf(verdict),
		Expected: condition,
		Actual:   value,
		Detail:   verdict,
	})
	cause := verdict.Cause()
	if cause == nil {
		return
	}
	var bugCause *expect.KnownBugCause
	if errors.As(cause, &bugCause) {
		if c.bugs == nil {
			c.bugs = &expect.KnownBugCause{}
		}
		c.bugs.Merge(bugCause)
		return
	}
	if !verdict.Passed() {
		c.errs = append(c.errs, fmt.Errorf("%s: %w", path, cause))
	}
}

func (c *comparison) mismatch(path, expected string, value any) {
	c.result.Add(FieldResult{Path: path, Status: Failed, Expected: expected, Actual: value})
}

func (c *comparison) cause() error {
	if c.bugs != nil {
		return c.bugs
	}
	return errors.Join(c.errs...)
}
