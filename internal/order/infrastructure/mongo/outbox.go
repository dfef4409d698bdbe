package mongo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmehra2102/Food-Ordering-System/internal/order/domain"
	"github.com/dmehra2102/Food-Ordering-System/pkg/outbox"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	outboxCollection   = "outbox"
	countersCollection = "counters"
)

type outboxDocument struct {
	ID            int64             `bson:"_id"`
	AggregateType string            `bson:"aggregateType"`
	AggregateID   string            `bson:"aggregateId"`
	Type          string            `bson:"type"`
	Payload       []byte            `bson:"payload"`
	Headers       map[string]string `bson:"headers"`
	Traceparent   string            `bson:"traceparent"`
	Status        string            `bson:"status"`
	RelayID       string            `bson:"relayId,omitempty"`
	LeaseUntil    *time.Time        `bson:"leaseUntil,omitempty"`
	RetryCount    int               `bson:"retryCount"`
	LastError     *string           `bson:"lastError,omitempty"`
	CreatedAt     time.Time         `bson:"createdAt"`
}

func (d outboxDocument) toEvent() outbox.Event {
	return outbox.Event{
		ID:            d.ID,
		AggregateType: d.AggregateType,
		AggregateID:   d.AggregateID,
		Type:          d.Type,
		Payload:       d.Payload,
		Headers:       d.Headers,
		Traceparent:   d.Traceparent,
		CreatedAt:     d.CreatedAt,
		Status:        outbox.Status(d.Status),
		RelayID:       d.RelayID,
		RetryCount:    d.RetryCount,
		LastError:     d.LastError,
	}
}

// OutboxStore keeps events in a collection keyed by a counter sequence so the
// relay sees them in insertion order.
type OutboxStore struct {
	log      *slog.Logger
	events   *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
}

func NewOutboxStore(log *slog.Logger, db *mongo.Database) *OutboxStore {
	return &OutboxStore{
		log:      log,
		events:   db.Collection(outboxCollection),
		counters: db.Collection(countersCollection),
		now:      time.Now,
	}
}

func (s *OutboxStore) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": outboxCollection},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	return counter.Seq, err
}

func (s *OutboxStore) insert(ctx context.Context, orderID, eventType string, payload []byte, headers map[string]string, traceparent string) error {
	id, err := s.nextID(ctx)
	if err != nil {
		return err
	}
	_, err = s.events.InsertOne(ctx, outboxDocument{
		ID:            id,
		AggregateType: domain.AggregateType,
		AggregateID:   orderID,
		Type:          eventType,
		Payload:       payload,
		Headers:       headers,
		Traceparent:   traceparent,
		Status:        string(outbox.StatusPending),
		CreatedAt:     s.now().UTC(),
	})
	return err
}

// LockBatch claims events one at a time; each FindOneAndUpdate is atomic so
// concurrent relays never lease the same event.
func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	var events []outbox.Event
	for len(events) < batchSize {
		now := s.now().UTC()
		var doc outboxDocument
		err := s.events.FindOneAndUpdate(ctx,
			bson.M{"$or": bson.A{
				bson.M{"status": string(outbox.StatusPending)},
				bson.M{"status": string(outbox.StatusInProgress), "leaseUntil": bson.M{"$lt": now}},
			}},
			bson.M{"$set": bson.M{
				"status":     string(outbox.StatusInProgress),
				"relayId":    relayID,
				"leaseUntil": now.Add(lease),
			}},
			options.FindOneAndUpdate().SetSort(bson.D{{Key: "_id", Value: 1}}).SetReturnDocument(options.After),
		).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			return events, err
		}
		events = append(events, doc.toEvent())
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	res, err := s.events.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{
			"$set":   bson.M{"status": string(outbox.StatusSent)},
			"$unset": bson.M{"leaseUntil": ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("no outbox documents updated")
	}
	return nil
}

// MarkFailed returns the event to pending until it has used up outbox.MaxAttempts.
func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.events.UpdateOne(ctx, bson.M{"_id": id}, mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"retryCount": bson.M{"$add": bson.A{"$retryCount", 1}},
			"lastError":  bson.M{"$literal": errMsg},
		}}},
		{{Key: "$set", Value: bson.M{
			"status": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$retryCount", outbox.MaxAttempts}},
				string(outbox.StatusFailed),
				string(outbox.StatusPending),
			}},
		}}},
		{{Key: "$unset", Value: "leaseUntil"}},
	})
	return err
}
