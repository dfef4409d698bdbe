//go:build integration

package postgres

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dmehra2102/Food-Ordering-System/internal/order/application"
	"github.com/dmehra2102/Food-Ordering-System/internal/order/domain"
	restaurantpg "github.com/dmehra2102/Food-Ordering-System/internal/restaurant/infrastructure/postgres"
	"github.com/dmehra2102/Food-Ordering-System/pkg/outbox"
	"github.com/dmehra2102/Food-Ordering-System/test/intergration"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, intergration.Postgres(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	require.NoError(t, Migrate(ctx, pool), "migration is repeatable")

	_, err = pool.Exec(ctx, `
		INSERT INTO users (id, email, name) VALUES ('user-1', 'ann@example.com', 'Ann');
		INSERT INTO restaurants (id, name, city, country, delivery_price, estimated_delivery_minutes, cuisines)
			VALUES ('rest-1', 'Burger Joint', 'Leeds', 'UK', 3.00, 30, '{burgers}');
		INSERT INTO menu_items (id, restaurant_id, name, price) VALUES ('A', 'rest-1', 'Burger', 9.50), ('B', 'rest-1', 'Fries', 3.00);
	`)
	require.NoError(t, err)
	return pool
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRepository_Lifecycle(t *testing.T) {
	pool := setup(t)
	ctx := context.Background()
	repo := NewRepository(discard(), pool)
	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	o := domain.NewOrder("order-1", "user-1", "rest-1",
		domain.DeliveryDetails{Email: "ann@example.com", Name: "Ann", AddressLine1: "1 Main St", City: "Leeds"},
		[]domain.CartItem{{MenuItemID: "A", Name: "Burger", Quantity: 2}, {MenuItemID: "B", Name: "Fries", Quantity: 1}},
		created)
	require.NoError(t, repo.CreateWithOutbox(ctx, o, domain.EventOrderPlaced, []byte(`{"orderId":"order-1"}`), map[string]string{"source": "test"}, ""))

	got, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPlaced, got.Status)
	assert.Zero(t, got.TotalAmount)
	assert.Equal(t, o.CartItems, got.CartItems)
	assert.True(t, created.Equal(got.CreatedAt))

	_, err = got.MarkPaid(2200, created.Add(time.Minute))
	require.NoError(t, err)
	saved, err := repo.SaveWithOutbox(ctx, got, domain.EventOrderPaid, []byte(`{}`), nil, "")
	require.NoError(t, err)
	assert.True(t, saved)

	got.TotalAmount = 9999
	saved, err = repo.SaveWithOutbox(ctx, got, domain.EventOrderPaid, []byte(`{}`), nil, "")
	require.NoError(t, err)
	assert.False(t, saved, "second paid transition is a no-op")

	paid, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)
	assert.Equal(t, int64(2200), paid.TotalAmount)

	var events int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM outbox WHERE aggregate_id='order-1'`).Scan(&events))
	assert.Equal(t, 2, events)

	list, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Burger Joint", list[0].Restaurant.Name)
	assert.True(t, decimal.RequireFromString("3").Equal(list[0].Restaurant.DeliveryPrice))
	assert.Len(t, list[0].Restaurant.MenuItems, 2)
	assert.Equal(t, "ann@example.com", list[0].User.Email)
	assert.Len(t, list[0].CartItems, 2)
}

func TestRepository_NotFound(t *testing.T) {
	pool := setup(t)
	_, err := NewRepository(discard(), pool).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, application.ErrOrderNotFound)

	_, err = restaurantpg.NewRepository(discard(), pool).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, application.ErrRestaurantNotFound)
}

func TestRestaurantRepository_Get(t *testing.T) {
	pool := setup(t)
	rest, err := restaurantpg.NewRepository(discard(), pool).Get(context.Background(), "rest-1")
	require.NoError(t, err)
	assert.Equal(t, "Burger Joint", rest.Name)
	item, ok := rest.MenuItem("A")
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("9.5").Equal(item.Price))
}

func TestOutboxStore_LeaseAndRetry(t *testing.T) {
	pool := setup(t)
	ctx := context.Background()
	repo := NewRepository(discard(), pool)
	store := NewOutboxStore(discard(), pool)

	o := domain.NewOrder("order-1", "user-1", "rest-1", domain.DeliveryDetails{Email: "a@b.c"},
		[]domain.CartItem{{MenuItemID: "A", Name: "Burger", Quantity: 1}}, time.Now())
	require.NoError(t, repo.CreateWithOutbox(ctx, o, domain.EventOrderPlaced, []byte(`{"orderId":"order-1"}`), map[string]string{"source": "test"}, "00-trace-span-01"))

	batch, err := store.LockBatch(ctx, "relay-1", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "order-1", batch[0].AggregateID)
	assert.Equal(t, map[string]string{"source": "test"}, batch[0].Headers)
	assert.Equal(t, "00-trace-span-01", batch[0].Traceparent)

	again, err := store.LockBatch(ctx, "relay-2", 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, store.MarkFailed(ctx, batch[0].ID, "broker down"))
	batch, err = store.LockBatch(ctx, "relay-2", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, 1, batch[0].RetryCount)

	require.NoError(t, store.MarkSent(ctx, []int64{batch[0].ID}))
	var status string
	require.NoError(t, pool.QueryRow(ctx, `SELECT status FROM outbox WHERE id=$1`, batch[0].ID).Scan(&status))
	assert.Equal(t, string(outbox.StatusSent), status)
}
