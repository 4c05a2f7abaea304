package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"libris_back_end/internal/database"
	"libris_back_end/internal/models"
)

// ScyllaOrderStore persiste les commandes dans le keyspace orders.
// Les items, l'adresse et le résultat de paiement sont stockés en JSON
// dans des colonnes text, comme le panier Redis.
type ScyllaOrderStore struct{}

func NewScyllaOrderStore() *ScyllaOrderStore {
	return &ScyllaOrderStore{}
}

const orderColumns = `order_id, user_id, items, shipping_address, payment_method, payment_intent_id,
	total_price, status, is_paid, paid_at, payment_result, is_delivered, delivered_at, created_at, updated_at`

func (s *ScyllaOrderStore) Create(ctx context.Context, o *models.Order) error {
	return s.write(ctx, o)
}

func (s *ScyllaOrderStore) Save(ctx context.Context, o *models.Order) error {
	now := time.Now()
	o.UpdatedAt = &now
	return s.write(ctx, o)
}

func (s *ScyllaOrderStore) write(ctx context.Context, o *models.Order) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return fmt.Errorf("session orders: %w", err)
	}

	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("sérialisation items: %w", err)
	}
	addressJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("sérialisation adresse: %w", err)
	}

	var paymentResultJSON string
	if o.PaymentResult != nil {
		data, err := json.Marshal(o.PaymentResult)
		if err != nil {
			return fmt.Errorf("sérialisation payment_result: %w", err)
		}
		paymentResultJSON = string(data)
	}

	query := `INSERT INTO orders (` + orderColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if err := session.Query(query,
		o.ID, o.UserID, string(itemsJSON), string(addressJSON), o.PaymentMethod, o.PaymentIntentID,
		o.TotalPrice, o.Status, o.IsPaid, o.PaidAt, paymentResultJSON, o.IsDelivered, o.DeliveredAt,
		o.CreatedAt, o.UpdatedAt).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("écriture commande %s: %w", o.ID, err)
	}

	return nil
}

func (s *ScyllaOrderStore) Get(ctx context.Context, id string) (*models.Order, error) {
	orderUUID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, fmt.Errorf("session orders: %w", err)
	}

	var (
		o                                         models.Order
		itemsJSON, addressJSON, paymentResultJSON string
	)
	o.ID = gocql.UUID(orderUUID)

	err = session.Query(`SELECT user_id, items, shipping_address, payment_method, payment_intent_id,
		total_price, status, is_paid, paid_at, payment_result, is_delivered, delivered_at, created_at, updated_at
		FROM orders WHERE order_id = ?`, o.ID).
		WithContext(ctx).
		Scan(&o.UserID, &itemsJSON, &addressJSON, &o.PaymentMethod, &o.PaymentIntentID,
			&o.TotalPrice, &o.Status, &o.IsPaid, &o.PaidAt, &paymentResultJSON,
			&o.IsDelivered, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lecture commande %s: %w", id, err)
	}

	decodeOrderJSON(&o, itemsJSON, addressJSON, paymentResultJSON)
	return &o, nil
}

func (s *ScyllaOrderStore) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, fmt.Errorf("session orders: %w", err)
	}

	iter := session.Query(`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ALLOW FILTERING`, userID).
		WithContext(ctx).Iter()

	orders, err := scanOrders(iter)
	if err != nil {
		return nil, fmt.Errorf("liste commandes user %s: %w", userID, err)
	}
	sortNewestFirst(orders)
	return orders, nil
}

// List pagine côté client : ScyllaDB n'a pas d'OFFSET, et le volume de
// commandes reste raisonnable pour un back-office.
func (s *ScyllaOrderStore) List(ctx context.Context, page, limit int) ([]models.Order, int, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, 0, fmt.Errorf("session orders: %w", err)
	}

	iter := session.Query(`SELECT ` + orderColumns + ` FROM orders`).
		WithContext(ctx).Iter()

	all, err := scanOrders(iter)
	if err != nil {
		return nil, 0, fmt.Errorf("liste commandes: %w", err)
	}
	sortNewestFirst(all)

	total := len(all)
	start := (page - 1) * limit
	if start >= total {
		return []models.Order{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}

	return all[start:end], total, nil
}

// Les listes sortent toujours de la plus récente à la plus ancienne,
// l'ordre d'itération de Scylla ne garantissant rien.
func sortNewestFirst(orders []models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func scanOrders(iter *gocql.Iter) ([]models.Order, error) {
	var orders []models.Order

	for {
		var (
			o                                         models.Order
			itemsJSON, addressJSON, paymentResultJSON string
		)
		if !iter.Scan(&o.ID, &o.UserID, &itemsJSON, &addressJSON, &o.PaymentMethod, &o.PaymentIntentID,
			&o.TotalPrice, &o.Status, &o.IsPaid, &o.PaidAt, &paymentResultJSON,
			&o.IsDelivered, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt) {
			break
		}
		decodeOrderJSON(&o, itemsJSON, addressJSON, paymentResultJSON)
		orders = append(orders, o)
	}

	if err := iter.Close(); err != nil {
		return nil, err
	}
	return orders, nil
}

func decodeOrderJSON(o *models.Order, itemsJSON, addressJSON, paymentResultJSON string) {
	if itemsJSON != "" {
		if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
			log.Printf("⚠️ Items illisibles pour la commande %s: %v", o.ID, err)
			o.Items = []models.OrderItem{}
		}
	}
	if addressJSON != "" {
		if err := json.Unmarshal([]byte(addressJSON), &o.ShippingAddress); err != nil {
			log.Printf("⚠️ Adresse illisible pour la commande %s: %v", o.ID, err)
		}
	}
	if paymentResultJSON != "" {
		var pr models.PaymentResult
		if err := json.Unmarshal([]byte(paymentResultJSON), &pr); err == nil {
			o.PaymentResult = &pr
		}
	}
}
