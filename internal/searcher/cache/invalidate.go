package cache

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/kafka"
)

// HandleIndexComplete returns a MessageHandler that drops the cached results
// of the kind and namespace named by each index-complete event. Failures are
// logged and skipped; entries still expire after their TTL.
func HandleIndexComplete(c *QueryCache) kafka.MessageHandler {
	logger := slog.Default().With("component", "cache-invalidator")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[consumer.IndexCompleteEvent](value)
		if err != nil {
			logger.Error("failed to decode index-complete event", "error", err, "key", string(key))
			return nil
		}
		if event.Kind == "" {
			return nil
		}
		if _, err := c.InvalidateScope(ctx, event.Kind, event.Namespace); err != nil {
			logger.Error("cache invalidation failed", "kind", event.Kind, "namespace", event.Namespace, "error", err)
		}
		return nil
	}
}
