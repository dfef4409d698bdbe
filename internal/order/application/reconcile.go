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

type Outcome string

const (
	OutcomeIgnored    Outcome = "ignored"
	OutcomeReconciled Outcome = "reconciled"
	OutcomeDuplicate  Outcome = "duplicate"
)

// WebhookDelivery carries the request body exactly as received; the
// signature covers these bytes.
type WebhookDelivery struct {
	Payload   []byte
	Signature string
}

// HandlePaymentWebhook verifies a processor notification and marks the
// referenced order paid. Nothing in the payload is trusted before Verify.
func (s *Service) HandlePaymentWebhook(ctx context.Context, d WebhookDelivery) (Outcome, error) {
	ev, err := s.verifier.Verify(d.Payload, d.Signature)
	if err != nil {
		s.log.Warn("webhook rejected", "err", err)
		metrics.WebhookEventsTotal.WithLabelValues("unverified", "rejected").Inc()
		return "", err
	}

	outcome, err := s.handleEvent(ctx, ev)
	label := string(outcome)
	if err != nil {
		label = "rejected"
	}
	metrics.WebhookEventsTotal.WithLabelValues(string(ev.Type), label).Inc()
	return outcome, err
}

func (s *Service) handleEvent(ctx context.Context, ev paymentdomain.Event) (Outcome, error) {
	if ev.Type != paymentdomain.EventCheckoutCompleted {
		s.log.Info("webhook event ignored", "event_id", ev.ID, "event_type", ev.Type)
		return OutcomeIgnored, nil
	}

	orderID := ev.OrderID()
	if orderID == "" {
		s.log.Error("webhook event has no order id", "event_id", ev.ID, "session_id", ev.SessionID)
		return "", ErrMissingOrderID
	}

	if s.dedupe != nil && ev.ID != "" {
		seen, err := s.dedupe.Seen(ctx, ev.ID)
		switch {
		case err != nil:
			s.log.Warn("idempotency lookup failed, processing anyway", "event_id", ev.ID, "err", err)
		case seen:
			s.log.Info("duplicate webhook event skipped", "event_id", ev.ID, "order_id", orderID)
			return OutcomeDuplicate, nil
		}
	}

	outcome, err := s.markPaid(ctx, orderID, ev)
	if err != nil {
		return "", err
	}
	if s.dedupe != nil && ev.ID != "" {
		if merr := s.dedupe.MarkProcessed(context.WithoutCancel(ctx), ev.ID); merr != nil {
			s.log.Warn("idempotency mark failed", "event_id", ev.ID, "err", merr)
		}
	}
	return outcome, nil
}

func (s *Service) markPaid(ctx context.Context, orderID string, ev paymentdomain.Event) (Outcome, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			s.log.Error("webhook references unknown order", "order_id", orderID, "event_id", ev.ID)
		}
		return "", err
	}

	applied, err := o.MarkPaid(ev.AmountTotal, s.now())
	if err != nil {
		return "", err
	}
	if !applied {
		if o.TotalAmount != ev.AmountTotal {
			s.log.Warn("paid order received a different amount", "order_id", o.ID, "stored", o.TotalAmount, "event", ev.AmountTotal)
		}
		return OutcomeDuplicate, nil
	}

	payload, err := json.Marshal(domain.OrderPaid{
		OrderID:      o.ID,
		RestaurantID: o.RestaurantID,
		TotalAmount:  o.TotalAmount,
		PaidAt:       o.UpdatedAt,
	})
	if err != nil {
		return "", err
	}

	saved, err := s.orders.SaveWithOutbox(ctx, o, domain.EventOrderPaid, payload, outboxHeaders, tracing.Traceparent(ctx))
	if err != nil {
		return "", fmt.Errorf("save order %s: %w", o.ID, err)
	}
	if !saved {
		return OutcomeDuplicate, nil
	}

	s.log.Info("order marked as paid", "order_id", o.ID, "total_amount", o.TotalAmount, "event_id", ev.ID)
	return OutcomeReconciled, nil
}
