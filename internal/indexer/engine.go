// Package indexer turns records into postings. An Engine serves one record
// kind: it loads the records of a scope, extracts and analyzes their fields,
// resolves per-token weights and swaps the scope's postings in the store.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/records"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/fts/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/resilience"
)

type EngineConfig struct {
	Kind string
	// Namespace is used when a scope does not name one.
	Namespace string
	Fields    []records.FieldSpec
	Source    records.Source
	Store     index.Store
	Analyzer  *tokenizer.Analyzer
	Retry     resilience.RetryConfig
	// Metrics may be nil.
	Metrics *metrics.Metrics
}

type Engine struct {
	cfg    EngineConfig
	logger *slog.Logger
}

// UpdateResult summarizes one UpdateIndex call.
type UpdateResult struct {
	Scope     index.Scope   `json:"scope"`
	Documents int           `json:"documents"`
	Missing   int           `json:"missing"`
	Postings  int           `json:"postings"`
	Duration  time.Duration `json:"duration"`
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	switch {
	case cfg.Kind == "":
		return nil, fmt.Errorf("%w: engine kind is required", apperrors.ErrConfiguration)
	case cfg.Source == nil, cfg.Store == nil, cfg.Analyzer == nil:
		return nil, fmt.Errorf("%w: engine %q needs a source, a store and an analyzer", apperrors.ErrConfiguration, cfg.Kind)
	case len(cfg.Fields) == 0:
		return nil, fmt.Errorf("%w: engine %q has no fields", apperrors.ErrConfiguration, cfg.Kind)
	}
	for _, f := range cfg.Fields {
		if f.Extract == nil || f.Tier.Value() == 0 {
			return nil, fmt.Errorf("%w: engine %q: field %q needs an extractor and a weight tier", apperrors.ErrConfiguration, cfg.Kind, f.Name)
		}
	}
	if cfg.Retry.Retryable == nil {
		cfg.Retry.Retryable = apperrors.IsTransient
	}
	e := &Engine{
		cfg:    cfg,
		logger: logger.ForCollection("indexer", cfg.Kind),
	}
	if cfg.Metrics != nil && cfg.Retry.OnRetry == nil {
		e.cfg.Retry.OnRetry = func(int, error) {
			cfg.Metrics.StorageRetriesTotal.WithLabelValues("replace").Inc()
		}
	}
	return e, nil
}

func (e *Engine) Kind() string {
	return e.cfg.Kind
}

// Analyzer exposes the pipeline so searches tokenize queries the same way.
func (e *Engine) Analyzer() *tokenizer.Analyzer {
	return e.cfg.Analyzer
}

// Scope completes a requested scope with the engine's kind and default
// namespace.
func (e *Engine) Scope(namespace string, ids ...string) index.Scope {
	if namespace == "" {
		namespace = e.cfg.Namespace
	}
	return index.Scope{Kind: e.cfg.Kind, Namespace: namespace, IDs: ids}
}

// UpdateIndex reindexes scope: the listed records, or every record of the
// kind in the namespace when scope has no IDs. Listed records that no longer
// exist lose their postings. Transient storage failures are retried; the
// replace is idempotent per scope.
func (e *Engine) UpdateIndex(ctx context.Context, scope index.Scope) (*UpdateResult, error) {
	start := time.Now()
	if scope.Kind == "" {
		scope.Kind = e.cfg.Kind
	}
	if scope.Kind != e.cfg.Kind {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, 400, "engine %q cannot index kind %q", e.cfg.Kind, scope.Kind)
	}
	if scope.Namespace == "" {
		scope.Namespace = e.cfg.Namespace
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	result, err := e.update(ctx, scope)
	status := "ok"
	if err != nil {
		status = "error"
	}
	if m := e.cfg.Metrics; m != nil {
		m.IndexUpdatesTotal.WithLabelValues(e.cfg.Kind, status).Inc()
		m.IndexUpdateDuration.WithLabelValues(e.cfg.Kind).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		e.logger.Error("index update failed", "scope", scope.String(), "error", err)
		return nil, err
	}
	result.Duration = time.Since(start)
	if m := e.cfg.Metrics; m != nil {
		m.PostingsWrittenTotal.WithLabelValues(e.cfg.Kind).Add(float64(result.Postings))
	}
	e.logger.Info("index updated",
		"scope", scope.String(),
		"doc_count", result.Documents,
		"missing_count", result.Missing,
		"posting_count", result.Postings,
		"duration", result.Duration,
	)
	return result, nil
}

func (e *Engine) update(ctx context.Context, scope index.Scope) (*UpdateResult, error) {
	var recs []records.Record
	var err error
	if scope.IsAll() {
		recs, err = e.cfg.Source.All(ctx, scope.Namespace)
	} else {
		recs, err = e.cfg.Source.Fetch(ctx, scope.Namespace, scope.IDs)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s records: %w", e.cfg.Kind, err)
	}

	docs := make([]index.Document, 0, len(recs))
	postings := 0
	for _, r := range recs {
		d, err := e.Analyze(r, scope.Namespace)
		if err != nil {
			return nil, err
		}
		postings += len(d.Weights)
		docs = append(docs, d)
	}

	err = resilience.Retry(ctx, "replace "+scope.String(), e.cfg.Retry, func() error {
		return e.cfg.Store.Replace(ctx, scope, docs)
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("storing postings: %w", err)
	}
	return &UpdateResult{
		Scope:     scope,
		Documents: len(docs),
		Missing:   max(0, len(scope.IDs)-len(docs)),
		Postings:  postings,
	}, nil
}

// Analyze builds the document of one record: every field is extracted and
// analyzed, and each token keeps the best tier among the fields producing it.
func (e *Engine) Analyze(r records.Record, namespace string) (index.Document, error) {
	fields := make([]index.WeightedTokens, 0, len(e.cfg.Fields))
	for _, f := range e.cfg.Fields {
		text, err := f.Extract(r)
		if err != nil {
			return index.Document{}, fmt.Errorf("record %s/%s: %w", e.cfg.Kind, r.ID, err)
		}
		fields = append(fields, index.WeightedTokens{Tokens: e.cfg.Analyzer.IndexTokens(text), Tier: f.Tier})
	}
	return index.Document{
		Ref:     index.ContentRef{Kind: e.cfg.Kind, ID: r.ID, Namespace: namespace},
		Weights: index.ResolveWeights(fields...),
	}, nil
}
