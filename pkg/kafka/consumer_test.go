package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fts/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/resilience"
)

// fakeReader serves queued messages, then fails every fetch with fetchErr
// (or blocks until ctx is done when fetchErr is nil).
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	fetchErr  error
	fetches   atomic.Int32
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.fetches.Add(1)
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	if r.fetchErr != nil {
		return kafka.Message{}, r.fetchErr
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumerBacksOffWhenFetchFails(t *testing.T) {
	reader := &fakeReader{fetchErr: errors.New("broker unreachable")}
	c := newConsumer(reader, "fts.reindex", func(context.Context, []byte, []byte) error { return nil },
		WithFetchBackoff(resilience.RetryConfig{InitialDelay: 20 * time.Millisecond, MaxDelay: 40 * time.Millisecond}))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	require.NoError(t, c.Start(ctx))

	assert.GreaterOrEqual(t, reader.fetches.Load(), int32(2))
	assert.LessOrEqual(t, reader.fetches.Load(), int32(10), "failed fetches must be paced")
}

func TestConsumerRetriesThenCommits(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Offset: 1, Value: []byte("flaky")},
		{Offset: 2, Value: []byte("broken")},
	}}
	m := metrics.New(prometheus.NewRegistry())

	var flakyCalls atomic.Int32
	handler := func(_ context.Context, _ []byte, value []byte) error {
		switch string(value) {
		case "flaky":
			if flakyCalls.Add(1) < 2 {
				return errors.New("transient")
			}
			return nil
		default:
			return errors.New("still failing")
		}
	}
	c := newConsumer(reader, "fts.reindex", handler,
		WithMetrics(m),
		WithRetry(resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool {
		reader.mu.Lock()
		defer reader.mu.Unlock()
		return len(reader.committed) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{1, 2}, reader.committed)
	assert.Equal(t, int32(2), flakyCalls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.KafkaMessagesTotal.WithLabelValues("fts.reindex", "processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.KafkaMessagesTotal.WithLabelValues("fts.reindex", "dropped")))
}

func TestDecodeJSON(t *testing.T) {
	type event struct {
		Kind string `json:"kind"`
	}
	got, err := DecodeJSON[event]([]byte(`{"kind":"post"}`))
	require.NoError(t, err)
	assert.Equal(t, "post", got.Kind)

	_, err = DecodeJSON[event]([]byte(`{`))
	assert.Error(t, err)
}
