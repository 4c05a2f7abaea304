package store

import (
	"context"
	"errors"

	"libris_back_end/internal/models"
)

var (
	// ErrNotFound : document absent (produit, commande...)
	ErrNotFound = errors.New("document introuvable")
	// ErrInsufficientStock : le décrément conditionnel a constaté un stock trop bas
	ErrInsufficientStock = errors.New("stock insuffisant")
)

// ProductStore expose le catalogue. DecrementStock et IncrementStock sont des
// mises à jour conditionnelles atomiques (LWT) : deux requêtes concurrentes ne
// peuvent pas vendre le même exemplaire deux fois.
type ProductStore interface {
	Get(ctx context.Context, id string) (*models.Product, error)
	Save(ctx context.Context, p *models.Product) error
	DecrementStock(ctx context.Context, id string, qty int) error
	IncrementStock(ctx context.Context, id string, qty int) error
}

// CartStore : un panier par utilisateur. GetByUser renvoie un panier vide
// (jamais ErrNotFound) si l'utilisateur n'en a pas.
type CartStore interface {
	GetByUser(ctx context.Context, userID string) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Clear(ctx context.Context, userID string) error
}

type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	Get(ctx context.Context, id string) (*models.Order, error)
	Save(ctx context.Context, o *models.Order) error
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	List(ctx context.Context, page, limit int) ([]models.Order, int, error)
}
