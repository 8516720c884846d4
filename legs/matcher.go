// Package legs reorders repeating groups of a candidate message so that
// they line up with the groups of a filter message.
package legs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-expect/compare"
	"github.com/goliatone/go-expect/message"
)

// StructuralMatchError reports a repeating group for which no arrangement
// of the actual legs satisfies the filter legs.
type StructuralMatchError struct {
	Field  string
	Actual []message.Message
	Filter []message.Message
}

func (e *StructuralMatchError) Error() string {
	return fmt.Sprintf("legs: no arrangement of %d actual legs in %q satisfies %d filter legs",
		len(e.Actual), e.Field, len(e.Filter))
}

// Matcher reorders repeating groups using Comparator to decide whether an
// actual leg satisfies a filter leg.
type Matcher struct {
	Comparator compare.Comparator
	Settings   compare.Settings
	Logger     *slog.Logger
}

// Reorder returns a copy of actual whose repeating groups are permuted so
// that leg j satisfies filter leg j. Legs beyond the filter's length keep
// their relative order and are not recursed into. Reorder is a no-op
// unless Settings.ReorderGroups is set.
func (m Matcher) Reorder(ctx context.Context, actual, filter message.Message) (message.Message, error) {
	if !m.Settings.ReorderGroups || actual == nil || filter == nil {
		return actual, nil
	}
	if m.Comparator == nil {
		return nil, fmt.Errorf("legs: comparator is required")
	}
	return m.reorder(ctx, actual, filter)
}

func (m Matcher) reorder(ctx context.Context, actual, filter message.Message) (message.Message, error) {
	var out message.Message
	for _, field := range actual.FieldNames() {
		actualLegs, ok := message.Legs(actual, field)
		if !ok || len(actualLegs) == 0 {
			continue
		}
		filterLegs, ok := message.Legs(filter, field)
		if !ok || len(filterLegs) == 0 {
			continue
		}

		s := newSearch(ctx, m, actualLegs, filterLegs)
		ordered, err := s.run()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &StructuralMatchError{Field: field, Actual: actualLegs, Filter: filterLegs}
		}
		if out == nil {
			out = actual.Clone()
		}
		out.Set(field, ordered)
		m.logger().Debug("legs reordered",
			slog.String("field", field),
			slog.Int("actual", len(actualLegs)),
			slog.Int("filter", len(filterLegs)),
			slog.Int("comparisons", s.comparisons),
		)
	}
	if out == nil {
		return actual, nil
	}
	return out, nil
}

func (m Matcher) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

type cell struct {
	done      bool
	ok        bool
	reordered message.Message
}

type search struct {
	ctx         context.Context
	matcher     Matcher
	actual      []message.Message
	filter      []message.Message
	memo        [][]cell
	used        []bool
	perm        []int
	comparisons int
}

func newSearch(ctx context.Context, m Matcher, actual, filter []message.Message) *search {
	memo := make([][]cell, len(actual))
	for i := range memo {
		memo[i] = make([]cell, len(filter))
	}
	return &search{
		ctx:     ctx,
		matcher: m,
		actual:  actual,
		filter:  filter,
		memo:    memo,
		used:    make([]bool, len(actual)),
		perm:    make([]int, len(filter)),
	}
}

var errNoArrangement = errors.New("legs: no arrangement")

func (s *search) run() ([]message.Message, error) {
	if len(s.actual) < len(s.filter) {
		return nil, errNoArrangement
	}
	found, err := s.assign(0)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errNoArrangement
	}

	out := make([]message.Message, 0, len(s.actual))
	for j, i := range s.perm {
		out = append(out, s.memo[i][j].reordered)
	}
	for i, leg := range s.actual {
		if !s.used[i] {
			out = append(out, leg)
		}
	}
	return out, nil
}

// assign fixes filter position k to an unused actual leg, pruning as soon
// as a pair fails.
func (s *search) assign(k int) (bool, error) {
	if k == len(s.filter) {
		return true, nil
	}
	if err := s.ctx.Err(); err != nil {
		return false, err
	}
	for i := range s.actual {
		if s.used[i] {
			continue
		}
		ok, err := s.matches(i, k)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		s.used[i] = true
		s.perm[k] = i
		found, err := s.assign(k + 1)
		if err != nil || found {
			return found, err
		}
		s.used[i] = false
	}
	return false, nil
}

func (s *search) matches(i, j int) (bool, error) {
	c := &s.memo[i][j]
	if c.done {
		return c.ok, nil
	}
	s.comparisons++
	reordered, err := s.matcher.reorder(s.ctx, s.actual[i], s.filter[j])
	if err != nil {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		*c = cell{done: true, reordered: s.actual[i]}
		return false, nil
	}
	result := s.matcher.Comparator.Compare(reordered, s.filter[j], s.matcher.Settings)
	*c = cell{
		done:      true,
		ok:        result != nil && result.Failed() == 0,
		reordered: reordered,
	}
	return c.ok, nil
}
