package domain

import "time"

const (
	AggregateType    = "order"
	EventOrderPlaced = "OrderPlaced"
	EventOrderPaid   = "OrderPaid"
)

type OrderPlaced struct {
	OrderID      string     `json:"orderId"`
	UserID       string     `json:"userId"`
	RestaurantID string     `json:"restaurantId"`
	Items        []CartItem `json:"items"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type OrderPaid struct {
	OrderID      string    `json:"orderId"`
	RestaurantID string    `json:"restaurantId"`
	TotalAmount  int64     `json:"totalAmount"`
	PaidAt       time.Time `json:"paidAt"`
}
