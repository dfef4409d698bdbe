package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/Food-Ordering-System/internal/order/application"
	"github.com/dmehra2102/Food-Ordering-System/internal/order/domain"
	restaurantpg "github.com/dmehra2102/Food-Ordering-System/internal/restaurant/infrastructure/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) CreateWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO orders (id, user_id, restaurant_id, status, total_amount,
			delivery_email, delivery_name, delivery_address_line1, delivery_city, created_at, updated_at)
		VALUES ($1,$2,$3,$4,NULL,$5,$6,$7,$8,$9,$10)`,
		o.ID, o.UserID, o.RestaurantID, o.Status,
		o.DeliveryDetails.Email, o.DeliveryDetails.Name, o.DeliveryDetails.AddressLine1, o.DeliveryDetails.City,
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, item := range o.CartItems {
		batch.Queue(`INSERT INTO order_items (order_id, position, menu_item_id, name, quantity) VALUES ($1,$2,$3,$4,$5)`,
			o.ID, i, item.MenuItemID, item.Name, item.Quantity)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, o.ID, eventType, payload, headers, traceparent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE orders SET status=$2, total_amount=$3, updated_at=$4
		WHERE id=$1 AND status=$5`,
		o.ID, o.Status, o.TotalAmount, o.UpdatedAt, domain.StatusPlaced)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	if err = insertOutbox(ctx, tx, o.ID, eventType, payload, headers, traceparent); err != nil {
		return false, err
	}
	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, orderID, eventType string, payload []byte, headers map[string]string, traceparent string) error {
	if headers == nil {
		headers = map[string]string{}
	}
	_, err := tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		domain.AggregateType, orderID, eventType, payload, headers, traceparent)
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var (
		o     domain.Order
		total *int64
	)
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, restaurant_id, status, total_amount,
			delivery_email, delivery_name, delivery_address_line1, delivery_city, created_at, updated_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.UserID, &o.RestaurantID, &o.Status, &total,
			&o.DeliveryDetails.Email, &o.DeliveryDetails.Name, &o.DeliveryDetails.AddressLine1, &o.DeliveryDetails.City,
			&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("%w: %s", application.ErrOrderNotFound, id)
	}
	if err != nil {
		return domain.Order{}, err
	}
	if total != nil {
		o.TotalAmount = *total
	}

	items, err := r.loadItems(ctx, []string{id})
	if err != nil {
		return domain.Order{}, err
	}
	o.CartItems = items[id]
	return o, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.OrderDetails, error) {
	rows, err := r.pool.Query(ctx, `SELECT o.id, o.user_id, o.restaurant_id, o.status, o.total_amount,
			o.delivery_email, o.delivery_name, o.delivery_address_line1, o.delivery_city, o.created_at, o.updated_at,
			rs.name, rs.city, rs.country, rs.delivery_price::text, rs.estimated_delivery_minutes, rs.cuisines,
			COALESCE(u.email, ''), COALESCE(u.name, '')
		FROM orders o
		JOIN restaurants rs ON rs.id = o.restaurant_id
		LEFT JOIN users u ON u.id = o.user_id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.OrderDetails
	for rows.Next() {
		var (
			d     domain.OrderDetails
			total *int64
			price string
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.RestaurantID, &d.Status, &total,
			&d.DeliveryDetails.Email, &d.DeliveryDetails.Name, &d.DeliveryDetails.AddressLine1, &d.DeliveryDetails.City,
			&d.CreatedAt, &d.UpdatedAt,
			&d.Restaurant.Name, &d.Restaurant.City, &d.Restaurant.Country, &price, &d.Restaurant.EstimatedDeliveryMinutes, &d.Restaurant.Cuisines,
			&d.User.Email, &d.User.Name); err != nil {
			return nil, err
		}
		if total != nil {
			d.TotalAmount = *total
		}
		if d.Restaurant.DeliveryPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("restaurant %s delivery price: %w", d.RestaurantID, err)
		}
		d.Restaurant.ID = d.RestaurantID
		d.User.ID = d.UserID
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	orderIDs := make([]string, 0, len(out))
	restIDs := make([]string, 0, len(out))
	for _, d := range out {
		orderIDs = append(orderIDs, d.ID)
		restIDs = append(restIDs, d.RestaurantID)
	}
	items, err := r.loadItems(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	menus, err := restaurantpg.LoadMenus(ctx, r.pool, restIDs)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].CartItems = items[out[i].ID]
		out[i].Restaurant.MenuItems = menus[out[i].RestaurantID]
	}
	return out, nil
}

func (r *Repository) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.CartItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT order_id, menu_item_id, name, quantity FROM order_items
		WHERE order_id = ANY($1) ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[string][]domain.CartItem, len(orderIDs))
	for rows.Next() {
		var orderID string
		var item domain.CartItem
		if err := rows.Scan(&orderID, &item.MenuItemID, &item.Name, &item.Quantity); err != nil {
			return nil, err
		}
		items[orderID] = append(items[orderID], item)
	}
	return items, rows.Err()
}
