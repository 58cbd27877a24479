package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/collection"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer"
	indexhandler "github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/handler"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/fts/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "backend", cfg.Index.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	rt, err := collection.Build(ctx, cfg, collection.BuildOptions{Metrics: m, Migrate: true})
	if err != nil {
		slog.Error("failed to build collections", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cache.Config{TTL: cfg.Redis.CacheTTL, Metrics: m})
			slog.Info("search cache enabled",
				"addr", cfg.Redis.Addr,
				"ttl", cfg.Redis.CacheTTL,
			)
		}
	}

	var reindexQueue kafka.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ReindexRequests)
		defer producer.Close()
		reindexQueue = producer

		if queryCache != nil {
			invalidator := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, "searcher-cache",
				cache.HandleIndexComplete(queryCache), kafka.WithMetrics(m))
			go func() {
				if err := invalidator.Start(ctx); err != nil {
					slog.Error("cache invalidation consumer error", "error", err)
				}
			}()
			slog.Info("cache invalidation consumer started", "topic", cfg.Kafka.Topics.IndexComplete)
		}
	}

	checker := health.NewChecker()
	checker.Register("index_store", health.PingCheck(rt, true))
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(health.PingerFunc(redisClient.Ping), false))
	}

	searchH := handler.New(rt.Registry, queryCache, handler.Options{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxResults:   cfg.Search.MaxResults,
		DefaultRank:  cfg.Search.DefaultRank,
	})
	indexH := indexhandler.New(rt.Registry, reindexQueue, func(ctx context.Context, res *indexer.UpdateResult) {
		if queryCache == nil {
			return
		}
		if _, err := queryCache.InvalidateScope(ctx, res.Scope.Kind, res.Scope.Namespace); err != nil {
			logger.FromContext(ctx).Warn("cache invalidation after reindex failed", "kind", res.Scope.Kind, "error", err)
		}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", searchH.Search)
	mux.HandleFunc("POST /api/v1/index", indexH.Reindex)
	mux.HandleFunc("GET /api/v1/cache/stats", searchH.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", searchH.CacheInvalidate)
	mux.Handle("GET /metrics", metrics.Handler())
	checker.Mount(mux)

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Metrics(m),
		middleware.Timeout(cfg.Server.WriteTimeout),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr, "kinds", rt.Registry.Kinds())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
