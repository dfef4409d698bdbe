package stripe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dmehra2102/Food-Ordering-System/internal/payment/domain"
	"github.com/shopspring/decimal"
	stripego "github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	params  *stripego.CheckoutSessionParams
	session *stripego.CheckoutSession
	err     error
	expired []string
}

func (f *fakeSessions) New(params *stripego.CheckoutSessionParams) (*stripego.CheckoutSession, error) {
	f.params = params
	return f.session, f.err
}

func (f *fakeSessions) Expire(id string, _ *stripego.CheckoutSessionExpireParams) (*stripego.CheckoutSession, error) {
	f.expired = append(f.expired, id)
	return &stripego.CheckoutSession{ID: id}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sessionRequest() domain.SessionRequest {
	return domain.SessionRequest{
		LineItems:    []domain.LineItem{{Name: "Burger", UnitAmount: 950, Quantity: 2}},
		DeliveryFee:  decimal.RequireFromString("3.0"),
		OrderID:      "order-1",
		RestaurantID: "rest-1",
	}
}

func TestGateway_CreateSession_BuildsParams(t *testing.T) {
	fake := &fakeSessions{session: &stripego.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"}}
	g := NewGateway(testLogger(), fake, "https://eats.example.com")

	sess, err := g.CreateSession(context.Background(), sessionRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.Session{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"}, sess)

	p := fake.params
	require.NotNil(t, p)
	assert.Equal(t, "payment", *p.Mode)
	require.Len(t, p.LineItems, 1)
	assert.Equal(t, int64(950), *p.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, int64(2), *p.LineItems[0].Quantity)
	assert.Equal(t, "Burger", *p.LineItems[0].PriceData.ProductData.Name)
	assert.Equal(t, "usd", *p.LineItems[0].PriceData.Currency)

	require.Len(t, p.ShippingOptions, 1)
	rate := p.ShippingOptions[0].ShippingRateData
	assert.Equal(t, "Delivery", *rate.DisplayName)
	assert.Equal(t, "fixed_amount", *rate.Type)
	assert.Equal(t, int64(300), *rate.FixedAmount.Amount)

	assert.Equal(t, "order-1", p.Metadata[domain.MetadataOrderID])
	assert.Equal(t, "rest-1", p.Metadata[domain.MetadataRestaurantID])
	assert.Equal(t, "https://eats.example.com/order-status?success=true", *p.SuccessURL)
	assert.Equal(t, "https://eats.example.com/detail/rest-1?cancelled=true", *p.CancelURL)
	assert.Equal(t, "checkout-order-1", *p.IdempotencyKey)
}

func TestGateway_CreateSession_Failures(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeSessions
	}{
		{name: "processor error", fake: &fakeSessions{err: errors.New("card_declined")}},
		{name: "no url", fake: &fakeSessions{session: &stripego.CheckoutSession{ID: "cs_2"}}},
		{name: "nil session", fake: &fakeSessions{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGateway(testLogger(), tc.fake, "https://eats.example.com")
			_, err := g.CreateSession(context.Background(), sessionRequest())
			assert.ErrorIs(t, err, domain.ErrSessionCreationFailed)
		})
	}
}

func TestGateway_ExpireSession(t *testing.T) {
	fake := &fakeSessions{}
	g := NewGateway(testLogger(), fake, "https://eats.example.com")
	require.NoError(t, g.ExpireSession(context.Background(), "cs_9"))
	assert.Equal(t, []string{"cs_9"}, fake.expired)
}

const testSecret = "whsec_test"

func signed(t *testing.T, payload string, secret string) (string, []byte) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return sp.Header, sp.Payload
}

func checkoutPayload(orderID string, amount int64) string {
	return fmt.Sprintf(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","amount_total":%d,"metadata":{"orderId":%q,"restaurantId":"rest-1"}}}}`, amount, orderID)
}

func TestWebhookVerifier_Verify(t *testing.T) {
	v := NewWebhookVerifier(testSecret)

	t.Run("checkout completed", func(t *testing.T) {
		header, body := signed(t, checkoutPayload("order-1", 2200), testSecret)
		ev, err := v.Verify(body, header)
		require.NoError(t, err)
		assert.Equal(t, domain.EventCheckoutCompleted, ev.Type)
		assert.Equal(t, "evt_1", ev.ID)
		assert.Equal(t, "cs_1", ev.SessionID)
		assert.Equal(t, int64(2200), ev.AmountTotal)
		assert.Equal(t, "order-1", ev.OrderID())
	})

	t.Run("other event type", func(t *testing.T) {
		header, body := signed(t, `{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1"}}}`, testSecret)
		ev, err := v.Verify(body, header)
		require.NoError(t, err)
		assert.Equal(t, domain.EventType("customer.created"), ev.Type)
		assert.Empty(t, ev.Metadata)
	})

	t.Run("wrong secret", func(t *testing.T) {
		header, body := signed(t, checkoutPayload("order-1", 2200), "whsec_other")
		_, err := v.Verify(body, header)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("tampered body", func(t *testing.T) {
		header, _ := signed(t, checkoutPayload("order-1", 2200), testSecret)
		_, err := v.Verify([]byte(checkoutPayload("order-1", 1)), header)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := v.Verify([]byte(checkoutPayload("order-1", 2200)), "")
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})
}
