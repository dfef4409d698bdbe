package domain

import "github.com/shopspring/decimal"

// MenuItem prices are in major currency units.
type MenuItem struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

type Restaurant struct {
	ID                       string
	Name                     string
	City                     string
	Country                  string
	DeliveryPrice            decimal.Decimal
	EstimatedDeliveryMinutes int
	Cuisines                 []string
	MenuItems                []MenuItem
}

func (r Restaurant) MenuItem(id string) (MenuItem, bool) {
	for _, item := range r.MenuItems {
		if item.ID == id {
			return item, true
		}
	}
	return MenuItem{}, false
}
