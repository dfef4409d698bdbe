package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlacedOrder() Order {
	return NewOrder("o-1", "u-1", "r-1",
		DeliveryDetails{Email: "a@b.c", Name: "Ann", AddressLine1: "1 Main St", City: "Leeds"},
		[]CartItem{{MenuItemID: "A", Name: "Burger", Quantity: 2}},
		time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
}

func TestNewOrder(t *testing.T) {
	o := newPlacedOrder()
	assert.Equal(t, StatusPlaced, o.Status)
	assert.Zero(t, o.TotalAmount)
	assert.Equal(t, o.CreatedAt, o.UpdatedAt)
}

func TestMarkPaid_AppliesOnce(t *testing.T) {
	o := newPlacedOrder()
	now := time.Now()

	applied, err := o.MarkPaid(2200, now)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, StatusPaid, o.Status)
	assert.Equal(t, int64(2200), o.TotalAmount)

	applied, err = o.MarkPaid(1, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, int64(2200), o.TotalAmount)
	assert.Equal(t, StatusPaid, o.Status)
}

func TestMarkPaid_Rejects(t *testing.T) {
	o := newPlacedOrder()
	_, err := o.MarkPaid(-5, time.Now())
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, StatusPlaced, o.Status)

	o.Status = "refunded"
	_, err = o.MarkPaid(100, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
