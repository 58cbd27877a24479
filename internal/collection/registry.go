package collection

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/fts/pkg/errors"
)

// Registry maps record kinds to their Collection.
type Registry struct {
	collections map[string]*Collection
	mu          sync.RWMutex
	logger      *slog.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		collections: make(map[string]*Collection),
		logger:      slog.Default().With("component", "collection-registry"),
	}
}

// Register adds c. A kind can be registered once.
func (r *Registry) Register(c *Collection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.collections[c.Kind()]; exists {
		return fmt.Errorf("%w: collection %q registered twice", apperrors.ErrConfiguration, c.Kind())
	}
	r.collections[c.Kind()] = c
	r.logger.Info("collection registered", "kind", c.Kind())
	return nil
}

// Lookup returns the collection serving kind.
func (r *Registry) Lookup(kind string) (*Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collections[kind]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrUnknownKind, http.StatusNotFound, "no collection for kind %q", kind)
	}
	return c, nil
}

// Kinds lists the registered kinds in order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.collections))
	for k := range r.collections {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// UpdateIndex routes scope to the collection of scope.Kind.
func (r *Registry) UpdateIndex(ctx context.Context, scope index.Scope) (*indexer.UpdateResult, error) {
	c, err := r.Lookup(scope.Kind)
	if err != nil {
		return nil, err
	}
	return c.UpdateIndex(ctx, scope)
}

// Search runs query against the collection of kind.
func (r *Registry) Search(ctx context.Context, kind, query string, opts SearchOptions) (*executor.SearchResult, error) {
	c, err := r.Lookup(kind)
	if err != nil {
		return nil, err
	}
	return c.Search(ctx, query, opts)
}

// UpdateAll reindexes every registered kind in namespace, one kind at a time.
// It stops at the first failure.
func (r *Registry) UpdateAll(ctx context.Context, namespace string) ([]*indexer.UpdateResult, error) {
	results := make([]*indexer.UpdateResult, 0, len(r.Kinds()))
	for _, kind := range r.Kinds() {
		c, err := r.Lookup(kind)
		if err != nil {
			return results, err
		}
		res, err := c.UpdateIndex(ctx, c.Engine().Scope(namespace))
		if err != nil {
			return results, fmt.Errorf("reindexing %s: %w", kind, err)
		}
		results = append(results, res)
	}
	return results, nil
}
