package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"libris_back_end/internal/database"
	"libris_back_end/internal/models"
)

// Les paniers vivent dans Redis, un document JSON par utilisateur.
// Le même nom "cart:<user>" sert de clé et de canal pub/sub pour la
// synchronisation temps réel (websocket).
const cartTTL = 30 * 24 * time.Hour

type RedisCartStore struct{}

func NewRedisCartStore() *RedisCartStore {
	return &RedisCartStore{}
}

func cartKey(userID string) string {
	return "cart:" + userID
}

func (s *RedisCartStore) GetByUser(ctx context.Context, userID string) (*models.Cart, error) {
	data, err := database.Redis.Get(ctx, cartKey(userID)).Result()
	if errors.Is(err, redis.Nil) || data == "" {
		// Pas de panier = panier vide, jamais une erreur
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lecture panier %s: %w", userID, err)
	}

	var items []models.CartItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("décodage panier %s: %w", userID, err)
	}

	return &models.Cart{UserID: userID, Items: items}, nil
}

func (s *RedisCartStore) Save(ctx context.Context, cart *models.Cart) error {
	data, err := json.Marshal(cart.Items)
	if err != nil {
		return fmt.Errorf("sérialisation panier %s: %w", cart.UserID, err)
	}

	if err := database.Redis.Set(ctx, cartKey(cart.UserID), data, cartTTL).Err(); err != nil {
		return fmt.Errorf("sauvegarde panier %s: %w", cart.UserID, err)
	}

	database.Redis.Publish(ctx, cartKey(cart.UserID), "updated")
	return nil
}

func (s *RedisCartStore) Clear(ctx context.Context, userID string) error {
	// On écrit une liste vide plutôt que de supprimer la clé : le panier
	// existe toujours, il est juste vidé.
	if err := database.Redis.Set(ctx, cartKey(userID), "[]", cartTTL).Err(); err != nil {
		return fmt.Errorf("vidage panier %s: %w", userID, err)
	}

	database.Redis.Publish(ctx, cartKey(userID), "cleared")
	return nil
}
