// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. Reindex requests and index-complete notifications travel
// as JSON; the consumer hands each message to a MessageHandler, retrying it
// with backoff before giving up on the message.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fts/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/resilience"
	"github.com/segmentio/kafka-go"
)

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// ConsumerOption adjusts a Consumer built by NewConsumer.
type ConsumerOption func(*Consumer)

// WithRetry sets how often a failing message is handed to the handler again
// before it is dropped. The default is a single attempt.
func WithRetry(cfg resilience.RetryConfig) ConsumerOption {
	return func(c *Consumer) { c.retry = cfg }
}

// WithFetchBackoff sets the pause between consecutive failed fetches, so a
// consumer whose broker is down does not spin.
func WithFetchBackoff(cfg resilience.RetryConfig) ConsumerOption {
	return func(c *Consumer) { c.fetchBackoff = cfg }
}

// WithMetrics counts processed and dropped messages.
func WithMetrics(m *metrics.Metrics) ConsumerOption {
	return func(c *Consumer) { c.metrics = m }
}

// messageReader is the part of kafka.Reader the consume loop uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads messages from a Kafka topic and dispatches them to a
// MessageHandler.
type Consumer struct {
	reader       messageReader
	topic        string
	logger       *slog.Logger
	handler      MessageHandler
	retry        resilience.RetryConfig
	fetchBackoff resilience.RetryConfig
	metrics      *metrics.Metrics
}

// NewConsumer creates a Consumer for the given topic and handler. A group id
// suffix lets several services follow the same topic independently.
func NewConsumer(cfg config.KafkaConfig, topic, groupSuffix string, handler MessageHandler, opts ...ConsumerOption) *Consumer {
	groupID := cfg.ConsumerGroup
	if groupSuffix != "" {
		groupID += "-" + groupSuffix
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})

	c := newConsumer(r, topic, handler, opts...)
	c.logger = c.logger.With("group", groupID)
	return c
}

func newConsumer(r messageReader, topic string, handler MessageHandler, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		reader:       r,
		topic:        topic,
		logger:       slog.Default().With("component", "kafka-consumer", "topic", topic),
		handler:      handler,
		retry:        resilience.RetryConfig{MaxAttempts: 1},
		fetchBackoff: resilience.RetryConfig{InitialDelay: 200 * time.Millisecond, MaxDelay: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start enters the consume loop, fetching and processing messages until ctx
// is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	failures := 0
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping", "reason", ctx.Err())
			return c.reader.Close()
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return c.reader.Close()
			}
			failures++
			delay := resilience.Backoff(failures, c.fetchBackoff)
			c.logger.Error("failed to fetch message", "error", err, "consecutive_failures", failures, "next_delay", delay)
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
			}
			continue
		}
		failures = 0
		c.process(ctx, msg)
	}
}

// process runs the handler under the retry policy. A message that still fails
// is logged and committed so one bad request cannot stall the partition.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	log := c.logger.With("partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))
	log.Debug("message received", "value_size", len(msg.Value))

	err := resilience.Retry(ctx, "kafka-handle:"+c.topic, c.retry, func() error {
		return c.handler(ctx, msg.Key, msg.Value)
	})
	if ctx.Err() != nil {
		// Shutting down: leave the offset for the next group member.
		return
	}
	outcome := "processed"
	if err != nil {
		outcome = "dropped"
		log.Error("dropping message after failed processing", "error", err)
	}
	if c.metrics != nil {
		c.metrics.KafkaMessagesTotal.WithLabelValues(c.topic, outcome).Inc()
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.Error("failed to commit message", "error", err)
	}
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
