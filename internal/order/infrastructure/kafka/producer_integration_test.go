//go:build integration

package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dmehra2102/Food-Ordering-System/pkg/outbox"
	"github.com/dmehra2102/Food-Ordering-System/test/intergration"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_DispatchesOutboxEvent(t *testing.T) {
	brokers := intergration.Kafka(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	w := NewWriter(log, brokers)
	w.AllowAutoTopicCreation = true
	defer w.Close()

	d := outbox.NewDispatcher(log, w, "order.events")
	require.NoError(t, d.Dispatch(ctx, outbox.Event{
		ID:          1,
		AggregateID: "order-1",
		Type:        "OrderPaid",
		Payload:     []byte(`{"orderId":"order-1","totalAmount":2200}`),
		Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}))

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: brokers, Topic: "order.events", Partition: 0})
	defer r.Close()
	msg, err := r.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "order-1", string(msg.Key))
	assert.JSONEq(t, `{"orderId":"order-1","totalAmount":2200}`, string(msg.Value))

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "OrderPaid", headers["event_type"])
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", headers["traceparent"])
}
