package idempotency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store remembers webhook events whose effect is already persisted.
type Store struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl, prefix: "idem:stripe:"}
}

func (s *Store) Key(eventID string) string {
	return s.prefix + eventID
}

// Seen reports whether eventID was marked processed within the TTL.
func (s *Store) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.Key(eventID)).Result()
	return n > 0, err
}

// MarkProcessed records eventID. Call it only after the event's effect is committed.
func (s *Store) MarkProcessed(ctx context.Context, eventID string) error {
	return s.rdb.Set(ctx, s.Key(eventID), "1", s.ttl).Err()
}
