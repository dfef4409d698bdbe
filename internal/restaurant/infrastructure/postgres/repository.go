package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/Food-Ordering-System/internal/order/application"
	"github.com/dmehra2102/Food-Ordering-System/internal/restaurant/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Restaurant, error) {
	var (
		rest  domain.Restaurant
		price string
	)
	err := r.pool.QueryRow(ctx, `SELECT id, name, city, country, delivery_price::text, estimated_delivery_minutes, cuisines
		FROM restaurants WHERE id=$1`, id).
		Scan(&rest.ID, &rest.Name, &rest.City, &rest.Country, &price, &rest.EstimatedDeliveryMinutes, &rest.Cuisines)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Restaurant{}, fmt.Errorf("%w: %s", application.ErrRestaurantNotFound, id)
	}
	if err != nil {
		return domain.Restaurant{}, err
	}
	if rest.DeliveryPrice, err = decimal.NewFromString(price); err != nil {
		return domain.Restaurant{}, fmt.Errorf("restaurant %s delivery price: %w", id, err)
	}

	menus, err := LoadMenus(ctx, r.pool, []string{id})
	if err != nil {
		return domain.Restaurant{}, err
	}
	rest.MenuItems = menus[id]
	return rest, nil
}

// LoadMenus returns menu items grouped by restaurant id.
func LoadMenus(ctx context.Context, q Querier, restaurantIDs []string) (map[string][]domain.MenuItem, error) {
	rows, err := q.Query(ctx, `SELECT restaurant_id, id, name, price::text FROM menu_items
		WHERE restaurant_id = ANY($1) ORDER BY restaurant_id, name`, restaurantIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	menus := make(map[string][]domain.MenuItem, len(restaurantIDs))
	for rows.Next() {
		var restID, price string
		var item domain.MenuItem
		if err := rows.Scan(&restID, &item.ID, &item.Name, &price); err != nil {
			return nil, err
		}
		if item.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("menu item %s price: %w", item.ID, err)
		}
		menus[restID] = append(menus[restID], item)
	}
	return menus, rows.Err()
}
