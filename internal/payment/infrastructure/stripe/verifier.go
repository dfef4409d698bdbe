package stripe

import (
	"encoding/json"
	"fmt"

	"github.com/dmehra2102/Food-Ordering-System/internal/payment/domain"
	stripego "github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
)

const SignatureHeader = "Stripe-Signature"

type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Verify checks the signature over payload and decodes the event.
func (v *WebhookVerifier) Verify(payload []byte, signature string) (domain.Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	out := domain.Event{ID: ev.ID, Type: domain.EventType(ev.Type)}
	if out.Type != domain.EventCheckoutCompleted {
		return out, nil
	}
	if ev.Data == nil {
		return domain.Event{}, fmt.Errorf("%w: event %s has no data", domain.ErrMalformedEvent, ev.ID)
	}

	var sess stripego.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	out.SessionID = sess.ID
	out.Metadata = sess.Metadata
	out.AmountTotal = sess.AmountTotal
	return out, nil
}
