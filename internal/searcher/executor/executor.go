package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/fts/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/resilience"
	"golang.org/x/sync/errgroup"
)

const (
	PathCompiled = "compiled"
	PathGeneric  = "generic"
	PathEmpty    = "empty"
)

type SearchResult struct {
	Query     string      `json:"query"`
	Kind      string      `json:"kind"`
	Namespace string      `json:"namespace,omitempty"`
	Tokens    []string    `json:"tokens"`
	TotalHits int         `json:"total_hits"`
	Results   []index.Hit `json:"results"`
	Ranked    bool        `json:"ranked"`
}

type Config struct {
	Retry resilience.RetryConfig
	// Metrics may be nil.
	Metrics *metrics.Metrics
	// Generic disables the store's native plan evaluation.
	Generic bool
	// MaxParallel bounds concurrent posting fetches on the generic path;
	// 0 means one goroutine per token.
	MaxParallel int
}

// Executor evaluates query plans against a Store. Stores implementing
// index.PlanSearcher evaluate the whole plan themselves; others are searched
// token by token and intersected here. Both paths return the same hits.
type Executor struct {
	store    index.Store
	searcher index.PlanSearcher
	cfg      Config
	logger   *slog.Logger
}

func New(store index.Store, cfg Config) *Executor {
	if cfg.Retry.Retryable == nil {
		cfg.Retry.Retryable = apperrors.IsTransient
	}
	e := &Executor{
		store:  store,
		cfg:    cfg,
		logger: slog.Default().With("component", "query-executor"),
	}
	if ps, ok := store.(index.PlanSearcher); ok && !cfg.Generic {
		e.searcher = ps
	}
	if m := cfg.Metrics; m != nil && e.cfg.Retry.OnRetry == nil {
		e.cfg.Retry.OnRetry = func(int, error) {
			m.StorageRetriesTotal.WithLabelValues("search").Inc()
		}
	}
	return e
}

func (e *Executor) Execute(ctx context.Context, plan *index.QueryPlan) (*SearchResult, error) {
	start := time.Now()
	result := &SearchResult{
		Query:     plan.RawQuery,
		Kind:      plan.Kind,
		Namespace: plan.Namespace,
		Tokens:    parser.Tokens(plan),
		Results:   []index.Hit{},
		Ranked:    plan.Rank,
	}
	if plan.IsEmpty() {
		e.observe(plan.Kind, PathEmpty, "empty_query", start, 0)
		return result, nil
	}

	path := PathGeneric
	eval := e.evaluate
	if e.searcher != nil {
		path = PathCompiled
		eval = e.searcher.SearchPlan
	}

	var hits []index.Hit
	var total int
	err := resilience.Retry(ctx, "search "+plan.Kind, e.cfg.Retry, func() error {
		var err error
		hits, total, err = eval(ctx, plan)
		return err
	})
	if err != nil {
		e.observe(plan.Kind, path, "error", start, 0)
		return nil, fmt.Errorf("executing query %q: %w", plan.RawQuery, err)
	}

	if !plan.Rank {
		for i := range hits {
			hits[i].Rank = 0
		}
	}
	if hits != nil {
		result.Results = hits
	}
	result.TotalHits = total

	outcome := "hit"
	if total == 0 {
		outcome = "zero_result"
	}
	e.observe(plan.Kind, path, outcome, start, total)
	e.logger.Info("query executed",
		"kind", plan.Kind,
		"namespace", plan.Namespace,
		"tokens", result.Tokens,
		"path", path,
		"total_hits", total,
		"results", len(result.Results),
		"duration", time.Since(start),
	)
	return result, nil
}

func (e *Executor) observe(kind, path, outcome string, start time.Time, total int) {
	m := e.cfg.Metrics
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(kind, outcome).Inc()
	m.SearchLatency.WithLabelValues(kind, path).Observe(time.Since(start).Seconds())
	if outcome != "error" {
		m.SearchResultsCount.WithLabelValues(kind).Observe(float64(total))
	}
}

// evaluate fetches the postings of every token concurrently, keeps the
// records present for all of them and ranks those.
func (e *Executor) evaluate(ctx context.Context, plan *index.QueryPlan) ([]index.Hit, int, error) {
	lists := make([]index.PostingList, len(plan.Predicates))
	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.MaxParallel > 0 {
		g.SetLimit(e.cfg.MaxParallel)
	}
	for i, p := range plan.Predicates {
		g.Go(func() error {
			postings, err := e.store.Postings(gctx, index.PostingQuery{
				Kind:      plan.Kind,
				Namespace: plan.Namespace,
				Word:      p.Token,
				Match:     p.Match,
			})
			if err != nil {
				return fmt.Errorf("fetching postings for %q: %w", p.Token, err)
			}
			lists[i] = postings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	postingsPerToken := make(map[string]index.PostingList, len(lists))
	for i, p := range plan.Predicates {
		postingsPerToken[p.Token] = lists[i]
	}
	candidates := intersectPostings(postingsPerToken)
	hits, total := ranker.Rank(postingsPerToken, candidates, ranker.Options{
		Rank:    plan.Rank,
		Limit:   plan.Limit,
		MinRank: plan.MinRank,
	})
	return hits, total, nil
}

// intersectPostings returns the records that have at least one posting for
// every token. A token without postings empties the result.
func intersectPostings(postingsPerToken map[string]index.PostingList) map[string]struct{} {
	if len(postingsPerToken) == 0 {
		return make(map[string]struct{})
	}
	var shortestToken string
	shortestLen := int(^uint(0) >> 1)
	for token, postings := range postingsPerToken {
		if len(postings) < shortestLen {
			shortestLen = len(postings)
			shortestToken = token
		}
	}
	candidates := make(map[string]struct{})
	for _, p := range postingsPerToken[shortestToken] {
		candidates[p.Ref.ID] = struct{}{}
	}
	for token, postings := range postingsPerToken {
		if token == shortestToken || len(candidates) == 0 {
			continue
		}
		docSet := make(map[string]struct{}, len(postings))
		for _, p := range postings {
			docSet[p.Ref.ID] = struct{}{}
		}
		for id := range candidates {
			if _, exists := docSet[id]; !exists {
				delete(candidates, id)
			}
		}
	}
	return candidates
}
