package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmehra2102/Food-Ordering-System/internal/order/domain"
	"github.com/google/uuid"
)

type Service struct {
	log         *slog.Logger
	orders      OrderRepository
	restaurants RestaurantRepository
	payments    PaymentGateway
	verifier    EventVerifier
	dedupe      EventDeduplicator
	newID       func() string
	now         func() time.Time
}

type Option func(*Service)

// WithDeduplicator skips webhook events whose effect is already persisted.
func WithDeduplicator(d EventDeduplicator) Option {
	return func(s *Service) { s.dedupe = d }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

func NewService(log *slog.Logger, orders OrderRepository, restaurants RestaurantRepository, payments PaymentGateway, verifier EventVerifier, opts ...Option) *Service {
	s := &Service{
		log:         log,
		orders:      orders,
		restaurants: restaurants,
		payments:    payments,
		verifier:    verifier,
		newID:       func() string { return uuid.NewString() },
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListMyOrders returns the user's orders, newest first.
func (s *Service) ListMyOrders(ctx context.Context, userID string) ([]domain.OrderDetails, error) {
	return s.orders.ListByUser(ctx, userID)
}

var outboxHeaders = map[string]string{"source": "order-service"}
