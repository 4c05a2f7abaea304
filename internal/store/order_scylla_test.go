package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"libris_back_end/internal/models"
)

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	orders := []models.Order{
		{PaymentMethod: "ancienne", CreatedAt: base.Add(-48 * time.Hour)},
		{PaymentMethod: "récente", CreatedAt: base},
		{PaymentMethod: "intermédiaire", CreatedAt: base.Add(-24 * time.Hour)},
	}

	sortNewestFirst(orders)

	assert.Equal(t, "récente", orders[0].PaymentMethod)
	assert.Equal(t, "intermédiaire", orders[1].PaymentMethod)
	assert.Equal(t, "ancienne", orders[2].PaymentMethod)
}

func TestSortNewestFirstVide(t *testing.T) {
	var orders []models.Order
	sortNewestFirst(orders)
	assert.Empty(t, orders)
}
