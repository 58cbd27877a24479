// Package cache keeps search results in Redis, keyed by the analyzed query.
// Concurrent identical misses share one evaluation, and a circuit breaker
// stops the cache from slowing searches down while Redis is failing.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/fts/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "fts:search:"

// Backend is the subset of the Redis client the cache uses.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

type Config struct {
	TTL     time.Duration
	Breaker resilience.CircuitBreakerConfig
	// Metrics may be nil.
	Metrics *metrics.Metrics
}

type QueryCache struct {
	backend Backend
	cfg     Config
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64

	// generations count invalidations per scope prefix; allGen counts full
	// invalidations. A result computed across an invalidation is not stored.
	generations sync.Map
	allGen      atomic.Uint64
}

func New(backend Backend, cfg Config) *QueryCache {
	if m := cfg.Metrics; m != nil && cfg.Breaker.OnStateChange == nil {
		cfg.Breaker.OnStateChange = func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &QueryCache{
		backend: backend,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker("search-cache", cfg.Breaker),
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, plan *index.QueryPlan) (*executor.SearchResult, bool) {
	key := BuildKey(plan)
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.backend.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			data, err = nil, nil
		}
		return err
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if data == nil {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if m := c.cfg.Metrics; m != nil {
		m.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "kind", plan.Kind, "key", key)
	// the cached copy may have come from a differently spelled query
	result.Query = plan.RawQuery
	return &result, true
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if m := c.cfg.Metrics; m != nil {
		m.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) Set(ctx context.Context, plan *index.QueryPlan, result *executor.SearchResult) {
	key := BuildKey(plan)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.backend.Set(ctx, key, data, c.cfg.TTL)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for plan or computes, stores and
// returns it. The boolean reports a cache hit. Identical concurrent misses
// run computeFn once.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	plan *index.QueryPlan,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, plan); ok {
		return result, true, nil
	}
	key := BuildKey(plan)
	val, err, _ := c.group.Do(key, func() (any, error) {
		gen := c.generation(plan.Kind, plan.Namespace)
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.storeIfCurrent(ctx, plan, result, gen)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// storeIfCurrent caches result unless the scope was invalidated after gen
// was read. An invalidation racing the write removes the entry again.
func (c *QueryCache) storeIfCurrent(ctx context.Context, plan *index.QueryPlan, result *executor.SearchResult, gen uint64) {
	if c.generation(plan.Kind, plan.Namespace) != gen {
		c.logger.Debug("skipping cache write after invalidation", "kind", plan.Kind)
		return
	}
	c.Set(ctx, plan, result)
	if c.generation(plan.Kind, plan.Namespace) != gen {
		key := BuildKey(plan)
		_ = c.breaker.Execute(func() error {
			_, err := c.backend.DeletePrefix(ctx, key)
			return err
		})
	}
}

func (c *QueryCache) scopeCounter(prefix string) *atomic.Uint64 {
	v, _ := c.generations.LoadOrStore(prefix, new(atomic.Uint64))
	return v.(*atomic.Uint64)
}

func (c *QueryCache) generation(kind, namespace string) uint64 {
	return c.allGen.Load() + c.scopeCounter(scopePrefix(kind, namespace)).Load()
}

// InvalidateScope drops every cached result of kind in namespace.
func (c *QueryCache) InvalidateScope(ctx context.Context, kind, namespace string) (int64, error) {
	prefix := scopePrefix(kind, namespace)
	c.scopeCounter(prefix).Add(1)
	return c.deletePrefix(ctx, prefix)
}

// Invalidate drops every cached result.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	c.allGen.Add(1)
	return c.deletePrefix(ctx, keyPrefix)
}

func (c *QueryCache) deletePrefix(ctx context.Context, prefix string) (int64, error) {
	deleted, err := c.backend.DeletePrefix(ctx, prefix)
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "prefix", prefix, "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

// scopePrefix hashes the namespace so that caller-supplied names cannot
// smuggle glob characters into the SCAN pattern.
func scopePrefix(kind, namespace string) string {
	ns := sha256.Sum256([]byte(namespace))
	return fmt.Sprintf("%s%s:%x:", keyPrefix, kind, ns[:6])
}

// BuildKey derives the cache key from the analyzed plan, so queries that
// differ only in case, accents, stop words or word order share an entry.
func BuildKey(plan *index.QueryPlan) string {
	parts := make([]string, 0, len(plan.Predicates)+1)
	for _, p := range plan.Predicates {
		parts = append(parts, p.Match.String()+"="+p.Token)
	}
	parts = append(parts, fmt.Sprintf("rank=%t;limit=%d;min=%d", plan.Rank, plan.Limit, plan.MinRank))
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("%s%x", scopePrefix(plan.Kind, plan.Namespace), hash[:16])
}
