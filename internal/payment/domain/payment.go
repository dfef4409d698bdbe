package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Currency is the only currency checkout sessions are priced in.
const Currency = "usd"

// Metadata keys attached to a checkout session and echoed back in its events.
const (
	MetadataOrderID      = "orderId"
	MetadataRestaurantID = "restaurantId"
)

var (
	ErrSessionCreationFailed = errors.New("checkout session creation failed")
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrMalformedEvent        = errors.New("malformed webhook event")
)

// LineItem amounts are in minor currency units.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

type SessionRequest struct {
	LineItems    []LineItem
	DeliveryFee  decimal.Decimal
	OrderID      string
	RestaurantID string
}

type Session struct {
	ID  string
	URL string
}

// ToMinorUnits converts a major-unit amount to cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
