package application

import (
	"context"

	"github.com/dmehra2102/Food-Ordering-System/internal/order/domain"
	paymentdomain "github.com/dmehra2102/Food-Ordering-System/internal/payment/domain"
	restaurantdomain "github.com/dmehra2102/Food-Ordering-System/internal/restaurant/domain"
)

// OrderRepository writes each state change together with its outbox event.
type OrderRepository interface {
	CreateWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) error
	Get(ctx context.Context, id string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.OrderDetails, error)
	// SaveWithOutbox persists a placed -> paid transition. It reports false
	// when the stored order was no longer placed and nothing was written.
	SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) (bool, error)
}

type RestaurantRepository interface {
	Get(ctx context.Context, id string) (restaurantdomain.Restaurant, error)
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, req paymentdomain.SessionRequest) (paymentdomain.Session, error)
	ExpireSession(ctx context.Context, sessionID string) error
}

type EventVerifier interface {
	Verify(payload []byte, signature string) (paymentdomain.Event, error)
}

// EventDeduplicator is a shortcut over the store's own guard. An event is
// marked only after its effect is committed, so a marker never hides an
// unapplied payment.
type EventDeduplicator interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}
