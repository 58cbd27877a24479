package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/collection"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/resilience"
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
	slog.Info("starting indexer service", "backend", cfg.Index.Backend)
	if !cfg.Kafka.Enabled {
		slog.Error("the indexer service consumes reindex requests from kafka; enable kafka in the config")
		os.Exit(1)
	}

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

	completed := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
	defer completed.Close()

	kafkaConsumer := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.ReindexRequests,
		"",
		consumer.HandleMessage(rt.Registry, completed),
		kafka.WithMetrics(m),
		kafka.WithRetry(resilience.RetryConfig{
			MaxAttempts:  cfg.Index.RetryAttempts,
			InitialDelay: cfg.Index.RetryDelay,
		}),
	)
	indexConsumer := consumer.New(kafkaConsumer)

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.ReindexRequests,
		"group", cfg.Kafka.ConsumerGroup,
		"kinds", rt.Registry.Kinds(),
	)

	if err := indexConsumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	slog.Info("indexer service stopped")
}
