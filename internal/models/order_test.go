package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanBeCancelled(t *testing.T) {
	assert.True(t, Order{Status: OrderStatusPending}.CanBeCancelled())
	assert.True(t, Order{Status: OrderStatusProcessing}.CanBeCancelled())
	assert.False(t, Order{Status: OrderStatusDelivered}.CanBeCancelled())
	assert.False(t, Order{Status: OrderStatusCancelled}.CanBeCancelled())
}

func TestCartTotal(t *testing.T) {
	cart := Cart{
		UserID: "u-1",
		Items: []CartItem{
			{ProductID: "p-1", Price: 12.5, Quantity: 2},
			{ProductID: "p-2", Price: 8.0, Quantity: 1},
		},
	}
	assert.InDelta(t, 33.0, cart.Total(), 0.001)

	assert.Zero(t, Cart{}.Total())
}
