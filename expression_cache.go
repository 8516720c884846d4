package expect

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheCapacity bounds an ExpressionCache built without a capacity.
const DefaultCacheCapacity = 10000

// CacheStats is a point-in-time view of cache counters.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
}

// ExpressionCache stores compiled rules keyed by runtime and expression
// text. It is bounded, evicts the least recently used entry, and compiles
// each missing key once even when many goroutines ask for it together.
//
// Construct one per process and share it between engines. It is safe for
// concurrent use and is never invalidated.
type ExpressionCache struct {
	name    string
	entries *lru.Cache[string, CompiledRule]
	group   singleflight.Group
	metrics *CacheMetrics

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// CacheOption configures an ExpressionCache.
type CacheOption func(*ExpressionCache)

// WithCacheName sets the label reported in metrics. Defaults to "expressions".
func WithCacheName(name string) CacheOption {
	return func(c *ExpressionCache) {
		if name != "" {
			c.name = name
		}
	}
}

// WithCacheMetrics reports cache activity to metrics.
func WithCacheMetrics(metrics *CacheMetrics) CacheOption {
	return func(c *ExpressionCache) {
		c.metrics = metrics
	}
}

// NewExpressionCache builds a cache holding at most capacity rules.
// Capacity <= 0 selects DefaultCacheCapacity.
func NewExpressionCache(capacity int, opts ...CacheOption) *ExpressionCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	c := &ExpressionCache{name: "expressions"}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	entries, err := lru.NewWithEvict[string, CompiledRule](capacity, c.onEvict)
	if err != nil {
		panic(fmt.Sprintf("expect: expression cache: %v", err))
	}
	c.entries = entries
	return c
}

// Name returns the metrics label of the cache.
func (c *ExpressionCache) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// GetOrCompile returns the rule cached under key, compiling and inserting
// it when absent. Concurrent callers for the same missing key share one
// compile. Compile errors are returned to every waiting caller and are not
// cached. The boolean reports a cache hit.
func (c *ExpressionCache) GetOrCompile(key string, compile func() (CompiledRule, error)) (CompiledRule, bool, error) {
	if c == nil {
		rule, err := compile()
		return rule, false, err
	}
	if rule, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		c.metrics.RecordHit(c.name)
		return rule, true, nil
	}
	value, err, _ := c.group.Do(key, func() (any, error) {
		if rule, ok := c.entries.Peek(key); ok {
			return rule, nil
		}
		c.misses.Add(1)
		c.metrics.RecordMiss(c.name)
		rule, err := compile()
		if err != nil {
			return nil, err
		}
		if previous, found, _ := c.entries.PeekOrAdd(key, rule); found {
			return previous, nil
		}
		c.metrics.UpdateSize(c.name, c.entries.Len())
		return rule, nil
	})
	if err != nil {
		return nil, false, err
	}
	return value.(CompiledRule), false, nil
}

// Len returns the number of cached rules.
func (c *ExpressionCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

// Stats returns the cache counters.
func (c *ExpressionCache) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   c.entries.Len(),
	}
}

func (c *ExpressionCache) onEvict(string, CompiledRule) {
	c.evictions.Add(1)
	c.metrics.RecordEviction(c.name)
}

// WithExpressionCache makes the engine compile through cache. Engines
// without one build a private cache of DefaultCacheCapacity.
func WithExpressionCache(cache *ExpressionCache) Option {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// CacheMetrics tracks expression cache activity.
//
// Metrics:
//   - <namespace>_<subsystem>_cache_hits_total{cache}
//   - <namespace>_<subsystem>_cache_misses_total{cache}
//   - <namespace>_<subsystem>_cache_entries{cache}
//   - <namespace>_<subsystem>_cache_evictions_total{cache}
type CacheMetrics struct {
	hitsTotal      *prometheus.CounterVec
	missesTotal    *prometheus.CounterVec
	entries        *prometheus.GaugeVec
	evictionsTotal *prometheus.CounterVec
}

// NewCacheMetrics creates cache metrics and registers them when registry is
// not nil.
func NewCacheMetrics(namespace, subsystem string, registry prometheus.Registerer) *CacheMetrics {
	cm := &CacheMetrics{
		hitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_hits_total",
				Help:      "Total number of expression cache hits",
			},
			[]string{"cache"},
		),
		missesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_misses_total",
				Help:      "Total number of expression cache misses",
			},
			[]string{"cache"},
		),
		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_entries",
				Help:      "Current number of compiled expressions in cache",
			},
			[]string{"cache"},
		),
		evictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_evictions_total",
				Help:      "Total number of expression cache evictions",
			},
			[]string{"cache"},
		),
	}
	if registry != nil {
		registry.MustRegister(cm.hitsTotal, cm.missesTotal, cm.entries, cm.evictionsTotal)
	}
	return cm
}

// RecordHit records a cache hit.
func (cm *CacheMetrics) RecordHit(cacheName string) {
	if cm == nil {
		return
	}
	cm.hitsTotal.WithLabelValues(cacheName).Inc()
}

// RecordMiss records a cache miss.
func (cm *CacheMetrics) RecordMiss(cacheName string) {
	if cm == nil {
		return
	}
	cm.missesTotal.WithLabelValues(cacheName).Inc()
}

// UpdateSize sets the current number of entries.
func (cm *CacheMetrics) UpdateSize(cacheName string, size int) {
	if cm == nil {
		return
	}
	cm.entries.WithLabelValues(cacheName).Set(float64(size))
}

// RecordEviction records an eviction.
func (cm *CacheMetrics) RecordEviction(cacheName string) {
	if cm == nil {
		return
	}
	cm.evictionsTotal.WithLabelValues(cacheName).Inc()
}
