package models

import (
	"time"

	"github.com/gocql/gocql"
)

type Product struct {
	ID            gocql.UUID `json:"id" db:"product_id"`
	Name          string     `json:"name" db:"name"`
	Description   string     `json:"description" db:"description"`
	Price         float64    `json:"price" db:"price"`
	Stock         int        `json:"stock" db:"stock"`
	ImageURL      string     `json:"image_url" db:"image_url"`
	CategoryID    gocql.UUID `json:"category_id" db:"category_id"`
	AverageRating float64    `json:"average_rating" db:"average_rating"`
	NumReviews    int        `json:"num_reviews" db:"num_reviews"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}
