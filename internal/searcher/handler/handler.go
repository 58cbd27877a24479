package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/collection"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/fts/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/logger"
)

// Collections resolves a record kind to its collection.
type Collections interface {
	Lookup(kind string) (*collection.Collection, error)
}

type Options struct {
	DefaultLimit int
	MaxResults   int
	DefaultRank  bool
}

type Handler struct {
	collections Collections
	cache       *cache.QueryCache
	opts        Options
	logger      *slog.Logger
}

// New builds the search handler. queryCache may be nil.
func New(collections Collections, queryCache *cache.QueryCache, opts Options) *Handler {
	return &Handler{
		collections: collections,
		cache:       queryCache,
		opts:        opts,
		logger:      slog.Default().With("component", "search-handler"),
	}
}

// Search serves GET /api/v1/search?kind=&q=&namespace=&rank=&limit=&min_rank=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	params := r.URL.Query()

	kind := params.Get("kind")
	if kind == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'kind' is required")
		return
	}
	// a blank or stop-word-only q yields an empty result, not an error
	query := params.Get("q")
	opts, err := h.searchOptions(params.Get)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	col, err := h.collections.Lookup(kind)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	plan := col.Plan(query, opts)

	var result *executor.SearchResult
	cacheHit := false
	if h.cache != nil && !plan.IsEmpty() {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, plan, func() (*executor.SearchResult, error) {
			return col.Execute(ctx, plan)
		})
	} else {
		result, err = col.Execute(ctx, plan)
	}
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("search execution failed", "kind", kind, "query", query, "error", err, "status_code", status)
		h.writeError(w, status, "search failed")
		return
	}

	log.Info("search completed",
		"kind", kind,
		"namespace", plan.Namespace,
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) searchOptions(get func(string) string) (collection.SearchOptions, error) {
	opts := collection.SearchOptions{
		Namespace: get("namespace"),
		Rank:      h.opts.DefaultRank,
		Limit:     h.opts.DefaultLimit,
	}
	if v := get("rank"); v != "" {
		rank, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("rank must be true or false")
		}
		opts.Rank = rank
	}
	if v := get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return opts, fmt.Errorf("limit must be a positive integer")
		}
		opts.Limit = limit
	}
	if h.opts.MaxResults > 0 && (opts.Limit <= 0 || opts.Limit > h.opts.MaxResults) {
		opts.Limit = h.opts.MaxResults
	}
	if v := get("min_rank"); v != "" {
		minRank, err := strconv.Atoi(v)
		if err != nil || minRank < 0 {
			return opts, fmt.Errorf("min_rank must be a non-negative integer")
		}
		opts.MinRank = minRank
	}
	return opts, nil
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

// CacheInvalidate drops cached results: those of one kind and namespace when
// kind is given, otherwise all of them.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	var deleted int64
	var err error
	if kind := r.URL.Query().Get("kind"); kind != "" {
		deleted, err = h.cache.InvalidateScope(r.Context(), kind, r.URL.Query().Get("namespace"))
	} else {
		deleted, err = h.cache.Invalidate(r.Context())
	}
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
