package expect

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type stubRule string

func (r stubRule) Evaluate(Bindings) (any, error) { return string(r), nil }
func (r stubRule) Source() string                  { return string(r) }

func TestExpressionCacheCompilesOncePerKey(t *testing.T) {
	cache := NewExpressionCache(8)
	var compiles atomic.Int32
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			rule, _, err := cache.GetOrCompile("expr:a", func() (CompiledRule, error) {
				compiles.Add(1)
				return stubRule("a"), nil
			})
			if err != nil || rule.Source() != "a" {
				t.Errorf("unexpected result %v %v", rule, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := compiles.Load(); got != 1 {
		t.Fatalf("expected a single compile, got %d", got)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one entry, got %d", cache.Len())
	}
}

func TestExpressionCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewExpressionCache(2)
	compile := func(key string) func() (CompiledRule, error) {
		return func() (CompiledRule, error) { return stubRule(key), nil }
	}

	for _, key := range []string{"a", "b"} {
		if _, _, err := cache.GetOrCompile(key, compile(key)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, hit, _ := cache.GetOrCompile("a", compile("a")); !hit {
		t.Fatalf("expected a to be cached")
	}
	if _, _, err := cache.GetOrCompile("c", compile("c")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, hit, _ := cache.GetOrCompile("a", compile("a")); !hit {
		t.Fatalf("expected recently used a to survive eviction")
	}
	stats := cache.Stats()
	if stats.Evictions != 1 || stats.Entries != 2 {
		t.Fatalf("expected one eviction and two entries, got %+v", stats)
	}
}

func TestExpressionCacheDoesNotCacheErrors(t *testing.T) {
	cache := NewExpressionCache(0)
	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_, _, err := cache.GetOrCompile("bad", func() (CompiledRule, error) { return nil, boom })
		if !errors.Is(err, boom) {
			t.Fatalf("expected compile error, got %v", err)
		}
	}
	if cache.Len() != 0 {
		t.Fatalf("expected errors to stay out of the cache")
	}
}

func TestExpressionCacheMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewCacheMetrics("goexpect", "expressions", registry)
	cache := NewExpressionCache(1, WithCacheMetrics(metrics), WithCacheName("filters"))

	for i, key := range []string{"a", "a", "b"} {
		key := key
		if _, _, err := cache.GetOrCompile(key, func() (CompiledRule, error) { return stubRule(key), nil }); err != nil {
			t.Fatalf("unexpected error on call %d: %v", i, err)
		}
	}

	if got := testutil.ToFloat64(metrics.hitsTotal.WithLabelValues("filters")); got != 1 {
		t.Fatalf("expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.missesTotal.WithLabelValues("filters")); got != 2 {
		t.Fatalf("expected 2 misses, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.evictionsTotal.WithLabelValues("filters")); got != 1 {
		t.Fatalf("expected 1 eviction, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.entries.WithLabelValues("filters")); got != 1 {
		t.Fatalf("expected 1 entry, got %v", got)
	}
}

func TestNilExpressionCacheCompilesDirectly(t *testing.T) {
	var cache *ExpressionCache
	rule, hit, err := cache.GetOrCompile("k", func() (CompiledRule, error) { return stubRule("k"), nil })
	if err != nil || hit || rule.Source() != "k" {
		t.Fatalf("unexpected nil cache behaviour: %v %v %v", rule, hit, err)
	}
	if cache.Len() != 0 || cache.Stats() != (CacheStats{}) {
		t.Fatalf("expected empty stats for nil cache")
	}
	if cache.Name() != "" {
		t.Fatalf("expected empty name for nil cache")
	}
}
