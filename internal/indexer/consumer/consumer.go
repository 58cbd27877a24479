// Package consumer reads reindex requests from Kafka, runs them against the
// matching collection and announces completed updates so search caches can
// drop stale results.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/fts/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/kafka"
)

// ReindexEvent asks for a scope to be reindexed. All must be set to reindex
// a whole collection; an event with neither IDs nor All is dropped.
type ReindexEvent struct {
	Kind        string    `json:"kind"`
	Namespace   string    `json:"namespace,omitempty"`
	IDs         []string  `json:"ids,omitempty"`
	All         bool      `json:"all,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// IndexCompleteEvent is published after a successful reindex.
type IndexCompleteEvent struct {
	Kind        string    `json:"kind"`
	Namespace   string    `json:"namespace,omitempty"`
	IDs         []string  `json:"ids,omitempty"`
	Documents   int       `json:"documents"`
	Postings    int       `json:"postings"`
	CompletedAt time.Time `json:"completed_at"`
}

// Updater routes a scope to the engine of its kind.
type Updater interface {
	UpdateIndex(ctx context.Context, scope index.Scope) (*indexer.UpdateResult, error)
}

// IndexConsumer wraps a Kafka consumer to drive reindexing.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a MessageHandler that reindexes the requested scope
// and, when completed is non-nil, publishes an IndexCompleteEvent. Only
// transient failures are returned, so the consumer retries them with backoff;
// malformed or unserviceable requests are logged and skipped.
func HandleMessage(updater Updater, completed kafka.Publisher) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ReindexEvent](value)
		if err != nil {
			logger.Error("failed to decode reindex event", "error", err, "key", string(key))
			return nil
		}
		if event.Kind == "" || (!event.All && len(event.IDs) == 0) {
			logger.Warn("dropping reindex event without a scope", "kind", event.Kind, "key", string(key))
			return nil
		}
		scope := index.Scope{Kind: event.Kind, Namespace: event.Namespace}
		if !event.All {
			scope.IDs = event.IDs
		}

		logger.Debug("processing reindex event", "kind", event.Kind, "namespace", event.Namespace, "id_count", len(event.IDs))
		res, err := updater.UpdateIndex(ctx, scope)
		if err != nil {
			if apperrors.IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("reindexing %s: %w", scope, err)
			}
			logger.Error("reindex request failed permanently", "kind", event.Kind, "error", err)
			return nil
		}

		if completed != nil {
			done := IndexCompleteEvent{
				Kind:        res.Scope.Kind,
				Namespace:   res.Scope.Namespace,
				IDs:         res.Scope.IDs,
				Documents:   res.Documents,
				Postings:    res.Postings,
				CompletedAt: time.Now().UTC(),
			}
			if err := completed.Publish(ctx, kafka.Event{Key: done.Kind, Value: done}); err != nil {
				// the index is already updated; caches expire on their own
				logger.Error("failed to publish index-complete event", "kind", done.Kind, "error", err)
			}
		}
		logger.Info("reindex request served",
			"kind", res.Scope.Kind,
			"namespace", res.Scope.Namespace,
			"doc_count", res.Documents,
			"posting_count", res.Postings,
		)
		return nil
	}
}
