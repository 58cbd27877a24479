package collection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/records"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/sqlite"
)

type BuildOptions struct {
	// Metrics may be nil.
	Metrics *metrics.Metrics
	// Migrate creates the index tables before returning.
	Migrate bool
	// GenericSearch evaluates queries by posting intersection even when the
	// store could run them natively.
	GenericSearch bool
}

// Runtime is everything Build wires together. Close releases the database.
type Runtime struct {
	Registry *Registry
	Store    index.Store
	// SQL is nil for the memory backend.
	SQL *store.SQLStore
	// Sources holds the in-process record sources of the memory backend,
	// keyed by kind; callers fill them before indexing.
	Sources map[string]*records.MemorySource
	db      interface {
		store.Database
		Close() error
	}
}

// Build opens the configured backend and registers one collection per
// configured kind.
func Build(ctx context.Context, cfg *config.Config, opts BuildOptions) (*Runtime, error) {
	log := slog.Default().With("component", "bootstrap")
	rt := &Runtime{Registry: NewRegistry(), Sources: make(map[string]*records.MemorySource)}

	var dialect store.Dialect
	switch cfg.Index.Backend {
	case "memory":
		rt.Store = index.NewMemoryIndex()
	case "postgres":
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		rt.db, dialect = db, store.Postgres
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLite.Path, cfg.SQLite.BusyTimeout)
		if err != nil {
			return nil, err
		}
		rt.db, dialect = db, store.SQLite
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}

	if rt.db != nil {
		s, err := store.New(rt.db, dialect, cfg.Index.TokenCacheSize)
		if err != nil {
			rt.Close()
			return nil, err
		}
		if opts.Migrate {
			if err := s.Migrate(ctx); err != nil {
				rt.Close()
				return nil, err
			}
		}
		rt.Store, rt.SQL = s, s
	}

	if err := rt.register(cfg, dialect, opts); err != nil {
		rt.Close()
		return nil, err
	}
	log.Info("collections ready", "backend", cfg.Index.Backend, "kinds", rt.Registry.Kinds())
	return rt, nil
}

func (rt *Runtime) register(cfg *config.Config, dialect store.Dialect, opts BuildOptions) error {
	stops, err := tokenizer.NewStopwordTable(cfg.Index.ExtraStopwords, cfg.Index.FallbackLanguage)
	if err != nil {
		return err
	}
	stems, err := tokenizer.NewStemmerTable(cfg.Index.Stemmer)
	if err != nil {
		return err
	}
	// languages added through extraStopwords are indexed unstemmed
	stems = tokenizer.ChainTables(stems, tokenizer.IdentityFor(stops.Knows))
	retry := resilience.RetryConfig{
		MaxAttempts:  cfg.Index.RetryAttempts,
		InitialDelay: cfg.Index.RetryDelay,
	}
	exec := executor.New(rt.Store, executor.Config{
		Retry:   retry,
		Metrics: opts.Metrics,
		Generic: opts.GenericSearch,
	})

	for _, col := range cfg.Collections {
		lang := col.Language
		if lang == "" {
			lang = cfg.Index.Language
		}
		analyzer, err := tokenizer.NewAnalyzer(stops, stems, tokenizer.Options{
			Language:       lang,
			Stem:           col.StemEnabled(),
			FullIndex:      col.FullIndex,
			MinLength:      col.MinLength,
			MaxTokenLength: cfg.Index.MaxTokenLength,
		})
		if err != nil {
			return fmt.Errorf("collection %q: %w", col.Kind, err)
		}
		fields, err := records.SpecsFromConfig(col.Fields)
		if err != nil {
			return fmt.Errorf("collection %q: %w", col.Kind, err)
		}

		var source records.Source
		if rt.db != nil {
			source, err = records.NewSQLSource(rt.db, dialect, col.Source, records.Columns(col.Fields))
			if err != nil {
				return fmt.Errorf("collection %q: %w", col.Kind, err)
			}
		} else {
			mem := records.NewMemorySource()
			rt.Sources[col.Kind] = mem
			source = mem
		}

		engine, err := indexer.NewEngine(indexer.EngineConfig{
			Kind:      col.Kind,
			Namespace: col.Namespace,
			Fields:    fields,
			Source:    source,
			Store:     rt.Store,
			Analyzer:  analyzer,
			Retry:     retry,
			Metrics:   opts.Metrics,
		})
		if err != nil {
			return err
		}
		if err := rt.Registry.Register(New(engine, exec, col.Namespace, col.ExactSearch)); err != nil {
			return err
		}
	}
	return nil
}

// PingContext checks the index database.
func (rt *Runtime) PingContext(ctx context.Context) error {
	if rt.db == nil {
		return ctx.Err()
	}
	return rt.db.PingContext(ctx)
}

func (rt *Runtime) Close() error {
	if rt.db == nil {
		return nil
	}
	return rt.db.Close()
}
