package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/Food-Ordering-System/internal/order/application"
	"github.com/dmehra2102/Food-Ordering-System/internal/restaurant/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const Collection = "restaurants"

type MenuItemDocument struct {
	ID    string  `bson:"_id"`
	Name  string  `bson:"name"`
	Price float64 `bson:"price"`
}

// RestaurantDocument is the stored shape of a restaurant. Prices are in major units.
type RestaurantDocument struct {
	ID                    string             `bson:"_id"`
	RestaurantName        string             `bson:"restaurantName"`
	City                  string             `bson:"city"`
	Country               string             `bson:"country"`
	DeliveryPrice         float64            `bson:"deliveryPrice"`
	EstimatedDeliveryTime int                `bson:"estimatedDeliveryTime"`
	Cuisines              []string           `bson:"cuisines"`
	MenuItems             []MenuItemDocument `bson:"menuItems"`
}

func (d RestaurantDocument) ToDomain() domain.Restaurant {
	r := domain.Restaurant{
		ID:                       d.ID,
		Name:                     d.RestaurantName,
		City:                     d.City,
		Country:                  d.Country,
		DeliveryPrice:            decimal.NewFromFloat(d.DeliveryPrice),
		EstimatedDeliveryMinutes: d.EstimatedDeliveryTime,
		Cuisines:                 d.Cuisines,
		MenuItems:                make([]domain.MenuItem, 0, len(d.MenuItems)),
	}
	for _, m := range d.MenuItems {
		r.MenuItems = append(r.MenuItems, domain.MenuItem{
			ID:    m.ID,
			Name:  m.Name,
			Price: decimal.NewFromFloat(m.Price),
		})
	}
	return r
}

type Repository struct {
	log  *slog.Logger
	coll *mongo.Collection
}

func NewRepository(log *slog.Logger, db *mongo.Database) *Repository {
	return &Repository{log: log, coll: db.Collection(Collection)}
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Restaurant, error) {
	var doc RestaurantDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Restaurant{}, fmt.Errorf("%w: %s", application.ErrRestaurantNotFound, id)
	}
	if err != nil {
		return domain.Restaurant{}, err
	}
	return doc.ToDomain(), nil
}
