package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmehra2102/Food-Ordering-System/internal/order/application"
	"github.com/dmehra2102/Food-Ordering-System/internal/order/domain"
	"github.com/dmehra2102/Food-Ordering-System/pkg/outbox"
)

// Orders keeps orders and their outbox events in process memory. It serves
// local runs and tests; nothing survives a restart.
type Orders struct {
	mu          sync.Mutex
	restaurants *Restaurants
	orders      map[string]domain.Order
	users       map[string]domain.User
	events      []outbox.Event
	leases      map[int64]time.Time
	nextEventID int64
	now         func() time.Time
}

func NewOrders(restaurants *Restaurants) *Orders {
	return &Orders{
		restaurants: restaurants,
		orders:      map[string]domain.Order{},
		users:       map[string]domain.User{},
		leases:      map[int64]time.Time{},
		now:         time.Now,
	}
}

func (s *Orders) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Orders) CreateWithOutbox(_ context.Context, o domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	s.orders[o.ID] = cloneOrder(o)
	s.appendEvent(o.ID, eventType, payload, headers, traceparent)
	return nil
}

func (s *Orders) SaveWithOutbox(_ context.Context, o domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.orders[o.ID]
	if !ok {
		return false, fmt.Errorf("%w: %s", application.ErrOrderNotFound, o.ID)
	}
	if cur.Status != domain.StatusPlaced {
		return false, nil
	}
	cur.Status = o.Status
	cur.TotalAmount = o.TotalAmount
	cur.UpdatedAt = o.UpdatedAt
	s.orders[o.ID] = cur
	s.appendEvent(o.ID, eventType, payload, headers, traceparent)
	return true, nil
}

func (s *Orders) appendEvent(orderID, eventType string, payload []byte, headers map[string]string, traceparent string) {
	s.nextEventID++
	s.events = append(s.events, outbox.Event{
		ID:            s.nextEventID,
		AggregateType: domain.AggregateType,
		AggregateID:   orderID,
		Type:          eventType,
		Payload:       append([]byte(nil), payload...),
		Headers:       headers,
		Traceparent:   traceparent,
		CreatedAt:     s.now().UTC(),
		Status:        outbox.StatusPending,
	})
}

func (s *Orders) Get(_ context.Context, id string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", application.ErrOrderNotFound, id)
	}
	return cloneOrder(o), nil
}

func (s *Orders) ListByUser(ctx context.Context, userID string) ([]domain.OrderDetails, error) {
	s.mu.Lock()
	var mine []domain.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			mine = append(mine, cloneOrder(o))
		}
	}
	user, ok := s.users[userID]
	s.mu.Unlock()
	if !ok {
		user = domain.User{ID: userID}
	}

	sort.Slice(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })

	out := make([]domain.OrderDetails, 0, len(mine))
	for _, o := range mine {
		rest, err := s.restaurants.Get(ctx, o.RestaurantID)
		if err != nil {
			continue
		}
		out = append(out, domain.OrderDetails{Order: o, Restaurant: rest, User: user})
	}
	return out, nil
}

// Events returns a copy of every outbox event recorded so far.
func (s *Orders) Events() []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.Event(nil), s.events...)
}

func (s *Orders) LockBatch(_ context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var out []outbox.Event
	for i := range s.events {
		if len(out) >= batchSize {
			break
		}
		ev := &s.events[i]
		expired := ev.Status == outbox.StatusInProgress && now.After(s.leases[ev.ID])
		if ev.Status != outbox.StatusPending && !expired {
			continue
		}
		ev.Status = outbox.StatusInProgress
		ev.RelayID = relayID
		s.leases[ev.ID] = now.Add(lease)
		out = append(out, *ev)
	}
	return out, nil
}

func (s *Orders) MarkSent(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range s.events {
		if want[s.events[i].ID] {
			s.events[i].Status = outbox.StatusSent
			delete(s.leases, s.events[i].ID)
		}
	}
	return nil
}

func (s *Orders) MarkFailed(_ context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		ev := &s.events[i]
		if ev.ID != id {
			continue
		}
		msg := errMsg
		ev.RetryCount++
		ev.LastError = &msg
		ev.Status = outbox.StatusPending
		if ev.RetryCount >= outbox.MaxAttempts {
			ev.Status = outbox.StatusFailed
		}
		delete(s.leases, id)
		return nil
	}
	return fmt.Errorf("outbox event %d not found", id)
}

func cloneOrder(o domain.Order) domain.Order {
	o.CartItems = append([]domain.CartItem(nil), o.CartItems...)
	return o
}
