package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu     sync.Mutex
	events []Event
	sent   []int64
	failed map[int64]string
}

func (s *fakeStore) LockBatch(_ context.Context, _ string, batchSize int, _ time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := min(batchSize, len(s.events))
	out := s.events[:n]
	s.events = s.events[n:]
	return out, nil
}

func (s *fakeStore) MarkSent(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = map[int64]string{}
	}
	s.failed[id] = errMsg
	return nil
}

type fakeProducer struct {
	msgs       []kafka.Message
	failOn     string
	failOnType string
}

func (p *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		if string(m.Key) == p.failOn {
			return errors.New("broker unavailable")
		}
		if p.failOnType != "" && headerMap(m)["event_type"] == p.failOnType {
			return errors.New("message too large")
		}
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func headerMap(m kafka.Message) map[string]string {
	out := map[string]string{}
	for _, h := range m.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestRelay_Flush(t *testing.T) {
	store := &fakeStore{events: []Event{
		{ID: 1, AggregateID: "order-1", Type: "OrderPlaced", Payload: []byte(`{"orderId":"order-1"}`), Headers: map[string]string{"source": "order-service"}, Traceparent: "00-abc-def-01"},
		{ID: 2, AggregateID: "order-2", Type: "OrderPlaced", Payload: []byte(`{}`)},
		{ID: 3, AggregateID: "order-1", Type: "OrderPaid", Payload: []byte(`{}`)},
	}}
	producer := &fakeProducer{failOn: "order-2"}
	relay := NewRelay(discard(), store, NewDispatcher(discard(), producer, "order.events"), "relay-1", WithBatchSize(10))

	n, err := relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 3}, store.sent)
	assert.Contains(t, store.failed[2], "broker unavailable")

	require.Len(t, producer.msgs, 2)
	first := producer.msgs[0]
	assert.Equal(t, "order.events", first.Topic)
	assert.Equal(t, "order-1", string(first.Key))
	assert.Equal(t, map[string]string{
		"source":      "order-service",
		"event_type":  "OrderPlaced",
		"traceparent": "00-abc-def-01",
	}, headerMap(first))
	assert.Equal(t, "OrderPaid", headerMap(producer.msgs[1])["event_type"])
}

func TestRelay_FlushHoldsBackFailedAggregate(t *testing.T) {
	store := &fakeStore{events: []Event{
		{ID: 1, AggregateID: "order-1", Type: "OrderPlaced", Payload: []byte(`{}`)},
		{ID: 2, AggregateID: "order-2", Type: "OrderPaid", Payload: []byte(`{}`)},
		{ID: 3, AggregateID: "order-1", Type: "OrderPaid", Payload: []byte(`{}`)},
	}}
	producer := &fakeProducer{failOnType: "OrderPlaced"}
	relay := NewRelay(discard(), store, NewDispatcher(discard(), producer, "order.events"), "relay-1", WithBatchSize(10))

	n, err := relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{2}, store.sent)
	assert.Contains(t, store.failed, int64(1))
	assert.NotContains(t, store.failed, int64(3))

	require.Len(t, producer.msgs, 1)
	assert.Equal(t, "order-2", string(producer.msgs[0].Key))
}

func TestRelay_FlushEmpty(t *testing.T) {
	relay := NewRelay(discard(), &fakeStore{}, NewDispatcher(discard(), &fakeProducer{}, "t"), "relay-1")

	n, err := relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	store := &fakeStore{events: []Event{{ID: 7, AggregateID: "order-7", Type: "OrderPaid"}}}
	relay := NewRelay(discard(), store, NewDispatcher(discard(), &fakeProducer{}, "t"), "relay-1", WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.sent) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
