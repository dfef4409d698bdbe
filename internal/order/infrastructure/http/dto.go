package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmehra2102/Food-Ordering-System/internal/order/application"
	"github.com/dmehra2102/Food-Ordering-System/internal/order/domain"
)

// quantity accepts both "2" and 2; browsers submit form values as strings.
type quantity string

func (q *quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*q = quantity(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("quantity must be a number or numeric string")
	}
	*q = quantity(n.String())
	return nil
}

type cartItemRequest struct {
	MenuItemID string   `json:"menuItemId" validate:"required"`
	Name       string   `json:"name"`
	Quantity   quantity `json:"quantity" validate:"required"`
}

type deliveryDetailsRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Name         string `json:"name" validate:"required"`
	AddressLine1 string `json:"addressLine1" validate:"required"`
	City         string `json:"city" validate:"required"`
}

type checkoutSessionRequest struct {
	CartItems       []cartItemRequest      `json:"cartItems" validate:"required,min=1,dive"`
	DeliveryDetails deliveryDetailsRequest `json:"deliveryDetails"`
	RestaurantID    string                 `json:"restaurantId" validate:"required"`
}

func (r checkoutSessionRequest) toApplication() application.CheckoutRequest {
	req := application.CheckoutRequest{
		RestaurantID: r.RestaurantID,
		DeliveryDetails: domain.DeliveryDetails{
			Email:        r.DeliveryDetails.Email,
			Name:         r.DeliveryDetails.Name,
			AddressLine1: r.DeliveryDetails.AddressLine1,
			City:         r.DeliveryDetails.City,
		},
		CartItems: make([]application.CartLine, 0, len(r.CartItems)),
	}
	for _, item := range r.CartItems {
		req.CartItems = append(req.CartItems, application.CartLine{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   string(item.Quantity),
		})
	}
	return req
}

type checkoutSessionResponse struct {
	URL string `json:"url"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type menuItemResponse struct {
	ID    string  `json:"_id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type restaurantResponse struct {
	ID                    string             `json:"_id"`
	RestaurantName        string             `json:"restaurantName"`
	City                  string             `json:"city"`
	Country               string             `json:"country"`
	DeliveryPrice         float64            `json:"deliveryPrice"`
	EstimatedDeliveryTime int                `json:"estimatedDeliveryTime"`
	Cuisines              []string           `json:"cuisines"`
	MenuItems             []menuItemResponse `json:"menuItems"`
}

type userResponse struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type cartItemResponse struct {
	MenuItemID string `json:"menuItemId"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
}

type deliveryDetailsResponse struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1"`
	City         string `json:"city"`
}

type orderResponse struct {
	ID              string                  `json:"_id"`
	Restaurant      restaurantResponse      `json:"restaurant"`
	User            userResponse            `json:"user"`
	DeliveryDetails deliveryDetailsResponse `json:"deliveryDetails"`
	CartItems       []cartItemResponse      `json:"cartItems"`
	// TotalAmount is in minor units and absent until the order is paid.
	TotalAmount *int64    `json:"totalAmount,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toOrderResponse(d domain.OrderDetails) orderResponse {
	resp := orderResponse{
		ID: d.ID,
		Restaurant: restaurantResponse{
			ID:                    d.Restaurant.ID,
			RestaurantName:        d.Restaurant.Name,
			City:                  d.Restaurant.City,
			Country:               d.Restaurant.Country,
			DeliveryPrice:         d.Restaurant.DeliveryPrice.InexactFloat64(),
			EstimatedDeliveryTime: d.Restaurant.EstimatedDeliveryMinutes,
			Cuisines:              d.Restaurant.Cuisines,
			MenuItems:             make([]menuItemResponse, 0, len(d.Restaurant.MenuItems)),
		},
		User: userResponse{ID: d.User.ID, Email: d.User.Email, Name: d.User.Name},
		DeliveryDetails: deliveryDetailsResponse{
			Email:        d.DeliveryDetails.Email,
			Name:         d.DeliveryDetails.Name,
			AddressLine1: d.DeliveryDetails.AddressLine1,
			City:         d.DeliveryDetails.City,
		},
		CartItems: make([]cartItemResponse, 0, len(d.CartItems)),
		Status:    string(d.Status),
		CreatedAt: d.CreatedAt,
	}
	for _, m := range d.Restaurant.MenuItems {
		resp.Restaurant.MenuItems = append(resp.Restaurant.MenuItems, menuItemResponse{ID: m.ID, Name: m.Name, Price: m.Price.InexactFloat64()})
	}
	for _, item := range d.CartItems {
		resp.CartItems = append(resp.CartItems, cartItemResponse{MenuItemID: item.MenuItemID, Name: item.Name, Quantity: item.Quantity})
	}
	if d.Status == domain.StatusPaid {
		total := d.TotalAmount
		resp.TotalAmount = &total
	}
	return resp
}
