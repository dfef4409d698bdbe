package domain

import (
	"errors"
	"fmt"
	"time"

	restaurant "github.com/dmehra2102/Food-Ordering-System/internal/restaurant/domain"
)

type OrderStatus string

const (
	StatusPlaced OrderStatus = "placed"
	StatusPaid   OrderStatus = "paid"
)

var (
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrInvalidAmount     = errors.New("invalid order amount")
)

type DeliveryDetails struct {
	Email        string
	Name         string
	AddressLine1 string
	City         string
}

type CartItem struct {
	MenuItemID string `json:"menuItemId"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
}

type Order struct {
	ID              string
	UserID          string
	RestaurantID    string
	DeliveryDetails DeliveryDetails
	CartItems       []CartItem
	Status          OrderStatus
	// TotalAmount is the settled amount in minor units; zero until paid.
	TotalAmount int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewOrder(id, userID, restaurantID string, delivery DeliveryDetails, items []CartItem, now time.Time) Order {
	now = now.UTC()
	return Order{
		ID:              id,
		UserID:          userID,
		RestaurantID:    restaurantID,
		DeliveryDetails: delivery,
		CartItems:       items,
		Status:          StatusPlaced,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// MarkPaid applies the processor's settled amount. It returns false without
// touching the order when it is already paid, so redelivery is harmless.
func (o *Order) MarkPaid(amount int64, now time.Time) (bool, error) {
	if amount < 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	switch o.Status {
	case StatusPaid:
		return false, nil
	case StatusPlaced:
		o.Status = StatusPaid
		o.TotalAmount = amount
		o.UpdatedAt = now.UTC()
		return true, nil
	default:
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, StatusPaid)
	}
}

type User struct {
	ID    string
	Email string
	Name  string
}

// OrderDetails is an order with its restaurant and user resolved.
type OrderDetails struct {
	Order
	Restaurant restaurant.Restaurant
	User       User
}
