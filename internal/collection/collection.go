// Package collection binds an indexing engine and a query executor for one
// record kind, and routes calls across kinds through a Registry.
package collection

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/searcher/parser"
)

// SearchOptions are the per-call knobs of Search. An empty Namespace means
// the collection's default namespace.
type SearchOptions struct {
	Rank      bool
	Namespace string
	Limit     int
	MinRank   int
}

type Collection struct {
	engine      *indexer.Engine
	executor    *executor.Executor
	namespace   string
	exactSearch bool
}

// New pairs engine with exec. Queries are analyzed by the engine's analyzer
// so they meet the tokens its records were indexed under.
func New(engine *indexer.Engine, exec *executor.Executor, namespace string, exactSearch bool) *Collection {
	return &Collection{
		engine:      engine,
		executor:    exec,
		namespace:   namespace,
		exactSearch: exactSearch,
	}
}

func (c *Collection) Kind() string {
	return c.engine.Kind()
}

func (c *Collection) Engine() *indexer.Engine {
	return c.engine
}

// UpdateIndex reindexes scope; see indexer.Engine.UpdateIndex.
func (c *Collection) UpdateIndex(ctx context.Context, scope index.Scope) (*indexer.UpdateResult, error) {
	return c.engine.UpdateIndex(ctx, scope)
}

// Plan analyzes query into the plan Search would run.
func (c *Collection) Plan(query string, opts SearchOptions) *index.QueryPlan {
	ns := opts.Namespace
	if ns == "" {
		ns = c.namespace
	}
	return parser.Parse(c.engine.Analyzer(), query, parser.Options{
		Kind:        c.engine.Kind(),
		Namespace:   ns,
		ExactSearch: c.exactSearch,
		Rank:        opts.Rank,
		Limit:       opts.Limit,
		MinRank:     opts.MinRank,
	})
}

// Search returns the records matching every token of query. An empty or
// all-stop-word query returns an empty result.
func (c *Collection) Search(ctx context.Context, query string, opts SearchOptions) (*executor.SearchResult, error) {
	return c.Execute(ctx, c.Plan(query, opts))
}

func (c *Collection) Execute(ctx context.Context, plan *index.QueryPlan) (*executor.SearchResult, error) {
	return c.executor.Execute(ctx, plan)
}
