package application

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmehra2102/Food-Ordering-System/internal/order/domain"
	paymentdomain "github.com/dmehra2102/Food-Ordering-System/internal/payment/domain"
	restaurantdomain "github.com/dmehra2102/Food-Ordering-System/internal/restaurant/domain"
)

// CartLine is a cart entry as the client sent it.
type CartLine struct {
	MenuItemID string
	Name       string
	Quantity   string
}

func ParseCart(lines []CartLine) ([]domain.CartItem, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	items := make([]domain.CartItem, 0, len(lines))
	for _, l := range lines {
		qty, err := strconv.Atoi(strings.TrimSpace(l.Quantity))
		if err != nil || qty <= 0 {
			return nil, fmt.Errorf("%w: %q for menu item %s", ErrInvalidQuantity, l.Quantity, l.MenuItemID)
		}
		items = append(items, domain.CartItem{MenuItemID: l.MenuItemID, Name: l.Name, Quantity: qty})
	}
	return items, nil
}

// BuildLineItems prices every cart item against the restaurant's menu. One
// unknown item fails the whole cart.
func BuildLineItems(items []domain.CartItem, rest restaurantdomain.Restaurant) ([]paymentdomain.LineItem, error) {
	out := make([]paymentdomain.LineItem, 0, len(items))
	for _, item := range items {
		m, ok := rest.MenuItem(item.MenuItemID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMenuItemNotFound, item.MenuItemID)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: %d for menu item %s", ErrInvalidQuantity, item.Quantity, item.MenuItemID)
		}
		out = append(out, paymentdomain.LineItem{
			Name:       m.Name,
			UnitAmount: paymentdomain.ToMinorUnits(m.Price),
			Quantity:   int64(item.Quantity),
		})
	}
	return out, nil
}
