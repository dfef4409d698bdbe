package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/dmehra2102/Food-Ordering-System/internal/order/application"
	"github.com/dmehra2102/Food-Ordering-System/internal/restaurant/domain"
	"github.com/shopspring/decimal"
)

type Restaurants struct {
	mu   sync.RWMutex
	byID map[string]domain.Restaurant
}

func NewRestaurants(restaurants ...domain.Restaurant) *Restaurants {
	r := &Restaurants{byID: make(map[string]domain.Restaurant, len(restaurants))}
	for _, rest := range restaurants {
		r.Put(rest)
	}
	return r
}

func (r *Restaurants) Put(rest domain.Restaurant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rest.ID] = rest
}

func (r *Restaurants) Get(_ context.Context, id string) (domain.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rest, ok := r.byID[id]
	if !ok {
		return domain.Restaurant{}, fmt.Errorf("%w: %s", application.ErrRestaurantNotFound, id)
	}
	return rest, nil
}

type seedMenuItem struct {
	ID    string          `json:"_id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type seedRestaurant struct {
	ID                    string          `json:"_id"`
	RestaurantName        string          `json:"restaurantName"`
	City                  string          `json:"city"`
	Country               string          `json:"country"`
	DeliveryPrice         decimal.Decimal `json:"deliveryPrice"`
	EstimatedDeliveryTime int             `json:"estimatedDeliveryTime"`
	Cuisines              []string        `json:"cuisines"`
	MenuItems             []seedMenuItem  `json:"menuItems"`
}

// LoadSeed reads a JSON array of restaurants in the same shape the document store uses.
func LoadSeed(path string) ([]domain.Restaurant, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed []seedRestaurant
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}

	out := make([]domain.Restaurant, 0, len(seed))
	for _, s := range seed {
		rest := domain.Restaurant{
			ID:                       s.ID,
			Name:                     s.RestaurantName,
			City:                     s.City,
			Country:                  s.Country,
			DeliveryPrice:            s.DeliveryPrice,
			EstimatedDeliveryMinutes: s.EstimatedDeliveryTime,
			Cuisines:                 s.Cuisines,
		}
		for _, m := range s.MenuItems {
			rest.MenuItems = append(rest.MenuItems, domain.MenuItem{ID: m.ID, Name: m.Name, Price: m.Price})
		}
		out = append(out, rest)
	}
	return out, nil
}
