package application

import (
	"errors"

	paymentdomain "github.com/dmehra2102/Food-Ordering-System/internal/payment/domain"
)

var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrMenuItemNotFound   = errors.New("menu item not found")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrOrderNotFound      = errors.New("order not found")
	ErrMissingOrderID     = errors.New("missing orderId in webhook metadata")

	ErrSessionCreationFailed = paymentdomain.ErrSessionCreationFailed
	ErrInvalidSignature      = paymentdomain.ErrInvalidSignature
	ErrMalformedEvent        = paymentdomain.ErrMalformedEvent
)
