package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmehra2102/Food-Ordering-System/internal/order/domain"
	paymentdomain "github.com/dmehra2102/Food-Ordering-System/internal/payment/domain"
	"github.com/dmehra2102/Food-Ordering-System/pkg/metrics"
	"github.com/dmehra2102/Food-Ordering-System/pkg/tracing"
)

type CheckoutRequest struct {
	RestaurantID    string
	DeliveryDetails domain.DeliveryDetails
	CartItems       []CartLine
}

// CreateCheckoutSession prices the cart, opens a hosted payment session and
// only then stores the placed order. It returns the session URL.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID string, req CheckoutRequest) (string, error) {
	url, err := s.createCheckoutSession(ctx, userID, req)
	metrics.CheckoutSessionsTotal.WithLabelValues(checkoutOutcome(err)).Inc()
	return url, err
}

func (s *Service) createCheckoutSession(ctx context.Context, userID string, req CheckoutRequest) (string, error) {
	rest, err := s.restaurants.Get(ctx, req.RestaurantID)
	if err != nil {
		return "", err
	}

	items, err := ParseCart(req.CartItems)
	if err != nil {
		return "", err
	}
	o := domain.NewOrder(s.newID(), userID, rest.ID, req.DeliveryDetails, items, s.now())

	lineItems, err := BuildLineItems(o.CartItems, rest)
	if err != nil {
		return "", err
	}
	for i := range lineItems {
		o.CartItems[i].Name = lineItems[i].Name
	}

	sess, err := s.payments.CreateSession(ctx, paymentdomain.SessionRequest{
		LineItems:    lineItems,
		DeliveryFee:  rest.DeliveryPrice,
		OrderID:      o.ID,
		RestaurantID: rest.ID,
	})
	if err != nil {
		s.log.Error("checkout session failed", "order_id", o.ID, "restaurant_id", rest.ID, "err", err)
		return "", err
	}

	payload, err := json.Marshal(domain.OrderPlaced{
		OrderID:      o.ID,
		UserID:       o.UserID,
		RestaurantID: o.RestaurantID,
		Items:        o.CartItems,
		CreatedAt:    o.CreatedAt,
	})
	if err != nil {
		return "", err
	}

	if err := s.orders.CreateWithOutbox(ctx, o, domain.EventOrderPlaced, payload, outboxHeaders, tracing.Traceparent(ctx)); err != nil {
		s.log.Error("order persist failed, expiring checkout session", "order_id", o.ID, "session_id", sess.ID, "err", err)
		if xerr := s.payments.ExpireSession(context.WithoutCancel(ctx), sess.ID); xerr != nil {
			s.log.Error("checkout session expiry failed", "order_id", o.ID, "session_id", sess.ID, "err", xerr)
		}
		return "", fmt.Errorf("persist order %s: %w", o.ID, err)
	}

	s.log.Info("order placed", "order_id", o.ID, "restaurant_id", rest.ID, "session_id", sess.ID)
	return sess.URL, nil
}

func checkoutOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, ErrRestaurantNotFound),
		errors.Is(err, ErrMenuItemNotFound),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrEmptyCart):
		return "rejected"
	case errors.Is(err, ErrSessionCreationFailed):
		return "session_failed"
	default:
		return "error"
	}
}
