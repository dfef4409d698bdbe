package stripe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmehra2102/Food-Ordering-System/internal/payment/domain"
	stripego "github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
)

// SessionClient is the part of the Stripe checkout session API the gateway uses.
type SessionClient interface {
	New(params *stripego.CheckoutSessionParams) (*stripego.CheckoutSession, error)
	Expire(id string, params *stripego.CheckoutSessionExpireParams) (*stripego.CheckoutSession, error)
}

// NewSessionClient builds a client bound to apiKey. The package-level
// stripe.Key is never touched.
func NewSessionClient(apiKey string, timeout time.Duration) SessionClient {
	sc := &client.API{}
	sc.Init(apiKey, stripego.NewBackends(&http.Client{Timeout: timeout}))
	return sc.CheckoutSessions
}

type Gateway struct {
	log         *slog.Logger
	sessions    SessionClient
	frontendURL string
}

func NewGateway(log *slog.Logger, sessions SessionClient, frontendURL string) *Gateway {
	return &Gateway{log: log, sessions: sessions, frontendURL: frontendURL}
}

func (g *Gateway) CreateSession(ctx context.Context, req domain.SessionRequest) (domain.Session, error) {
	params := g.sessionParams(req)
	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + req.OrderID)

	sess, err := g.sessions.New(params)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrSessionCreationFailed, err)
	}
	if sess == nil || sess.URL == "" {
		return domain.Session{}, fmt.Errorf("%w: no redirect url for order %s", domain.ErrSessionCreationFailed, req.OrderID)
	}
	g.log.Debug("checkout session created", "order_id", req.OrderID, "session_id", sess.ID)
	return domain.Session{ID: sess.ID, URL: sess.URL}, nil
}

func (g *Gateway) ExpireSession(ctx context.Context, sessionID string) error {
	params := &stripego.CheckoutSessionExpireParams{}
	params.Context = ctx
	if _, err := g.sessions.Expire(sessionID, params); err != nil {
		return fmt.Errorf("expire checkout session %s: %w", sessionID, err)
	}
	return nil
}

func (g *Gateway) sessionParams(req domain.SessionRequest) *stripego.CheckoutSessionParams {
	lineItems := make([]*stripego.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		lineItems = append(lineItems, &stripego.CheckoutSessionLineItemParams{
			PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripego.String(domain.Currency),
				UnitAmount: stripego.Int64(item.UnitAmount),
				ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripego.String(item.Name),
				},
			},
			Quantity: stripego.Int64(item.Quantity),
		})
	}

	params := &stripego.CheckoutSessionParams{
		Mode:      stripego.String(string(stripego.CheckoutSessionModePayment)),
		LineItems: lineItems,
		ShippingOptions: []*stripego.CheckoutSessionShippingOptionParams{{
			ShippingRateData: &stripego.CheckoutSessionShippingOptionShippingRateDataParams{
				DisplayName: stripego.String("Delivery"),
				Type:        stripego.String("fixed_amount"),
				FixedAmount: &stripego.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
					Amount:   stripego.Int64(domain.ToMinorUnits(req.DeliveryFee)),
					Currency: stripego.String(domain.Currency),
				},
			},
		}},
		SuccessURL: stripego.String(g.frontendURL + "/order-status?success=true"),
		CancelURL:  stripego.String(fmt.Sprintf("%s/detail/%s?cancelled=true", g.frontendURL, req.RestaurantID)),
	}
	params.AddMetadata(domain.MetadataOrderID, req.OrderID)
	params.AddMetadata(domain.MetadataRestaurantID, req.RestaurantID)
	return params
}
