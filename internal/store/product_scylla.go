package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"libris_back_end/internal/database"
	"libris_back_end/internal/models"
)

// Nombre de tentatives CAS avant d'abandonner un ajustement de stock.
const stockCASRetries = 5

// ScyllaProductStore lit et écrit les livres dans le keyspace catalogue.
type ScyllaProductStore struct{}

func NewScyllaProductStore() *ScyllaProductStore {
	return &ScyllaProductStore{}
}

func (s *ScyllaProductStore) Get(ctx context.Context, id string) (*models.Product, error) {
	productUUID, err := uuid.Parse(id)
	if err != nil {
		// Une référence mal formée est traitée comme un produit absent
		return nil, ErrNotFound
	}

	session, err := database.GetProductsSession()
	if err != nil {
		return nil, fmt.Errorf("session catalogue: %w", err)
	}

	p := models.Product{ID: gocql.UUID(productUUID)}
	err = session.Query(`SELECT name, description, price, stock, image_url, category_id, average_rating, num_reviews, created_at, updated_at
	                     FROM products WHERE product_id = ?`, p.ID).
		WithContext(ctx).
		Scan(&p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &p.CategoryID,
			&p.AverageRating, &p.NumReviews, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lecture produit %s: %w", id, err)
	}

	return &p, nil
}

func (s *ScyllaProductStore) Save(ctx context.Context, p *models.Product) error {
	session, err := database.GetProductsSession()
	if err != nil {
		return fmt.Errorf("session catalogue: %w", err)
	}

	now := time.Now()
	p.UpdatedAt = &now

	query := `INSERT INTO products (product_id, name, description, price, stock, image_url, category_id, average_rating, num_reviews, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if err := session.Query(query, p.ID, p.Name, p.Description, p.Price, p.Stock, p.ImageURL,
		p.CategoryID, p.AverageRating, p.NumReviews, p.CreatedAt, p.UpdatedAt).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("sauvegarde produit %s: %w", p.ID, err)
	}

	return nil
}

// DecrementStock retire qty exemplaires si et seulement si le stock le permet.
// Lecture du stock courant puis UPDATE ... IF stock = ? : le LWT rejette la
// mise à jour si un autre client a modifié le stock entre-temps, et on rejoue.
func (s *ScyllaProductStore) DecrementStock(ctx context.Context, id string, qty int) error {
	return s.adjustStock(ctx, id, -qty)
}

// IncrementStock restitue qty exemplaires (annulation de commande).
func (s *ScyllaProductStore) IncrementStock(ctx context.Context, id string, qty int) error {
	return s.adjustStock(ctx, id, qty)
}

func (s *ScyllaProductStore) adjustStock(ctx context.Context, id string, delta int) error {
	productUUID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	session, err := database.GetProductsSession()
	if err != nil {
		return fmt.Errorf("session catalogue: %w", err)
	}

	for attempt := 0; attempt < stockCASRetries; attempt++ {
		var stock int
		err := session.Query(`SELECT stock FROM products WHERE product_id = ?`, gocql.UUID(productUUID)).
			WithContext(ctx).Scan(&stock)
		if errors.Is(err, gocql.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lecture stock %s: %w", id, err)
		}

		newStock := stock + delta
		if newStock < 0 {
			return ErrInsufficientStock
		}

		var prevStock int
		applied, err := session.Query(`UPDATE products SET stock = ?, updated_at = ? WHERE product_id = ? IF stock = ?`,
			newStock, time.Now(), gocql.UUID(productUUID), stock).
			WithContext(ctx).ScanCAS(&prevStock)
		if err != nil {
			return fmt.Errorf("mise à jour stock %s: %w", id, err)
		}
		if applied {
			return nil
		}

		// Un concurrent a modifié le stock : on relit et on retente
		log.Printf("⚠️ CAS stock perdu pour %s (stock attendu %d, lu %d), tentative %d",
			id, stock, prevStock, attempt+1)
	}

	return fmt.Errorf("ajustement stock %s: trop de conflits concurrents", id)
}
