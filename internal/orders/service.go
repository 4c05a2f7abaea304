package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"

	"libris_back_end/internal/models"
	"libris_back_end/internal/store"
)

// Service orchestre le cycle de vie des commandes au-dessus des trois
// stores (catalogue, paniers, commandes). C'est le seul endroit du code
// autorisé à toucher au stock.
type Service struct {
	products store.ProductStore
	carts    store.CartStore
	orders   store.OrderStore
}

func NewService(products store.ProductStore, carts store.CartStore, orders store.OrderStore) *Service {
	return &Service{
		products: products,
		carts:    carts,
		orders:   orders,
	}
}

// Requester identifie l'utilisateur résolu par le middleware JWT.
type Requester struct {
	UserID string
	Role   string
}

func (r Requester) IsAdmin() bool {
	return r.Role == "admin"
}

// LineItemRequest : ligne demandée par le client. Le prix unitaire est
// toujours relu depuis le catalogue, jamais depuis le payload.
type LineItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CreateRequest struct {
	UserID          string
	Items           []LineItemRequest
	ShippingAddress models.ShippingAddress
	PaymentMethod   string
}

// Create valide puis enregistre une commande en deux phases :
//
//  1. chaque ligne est validée contre le catalogue (existence + stock),
//     sans aucune mutation ;
//  2. les décréments de stock sont appliqués un par un en LWT ; si l'un
//     d'eux échoue (course perdue ou écriture en erreur), les décréments
//     déjà appliqués sont restitués avant de remonter l'erreur.
//
// Le panier de l'utilisateur est vidé en best-effort une fois la
// commande persistée.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, &ValidationError{Msg: "No order items"}
	}

	// Phase 1 : validation et re-pricing, aucune écriture
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, &ValidationError{Msg: fmt.Sprintf("Invalid quantity for product %s", line.ProductID)}
		}

		product, err := s.products.Get(ctx, line.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Resource: "Product", Ref: line.ProductID}
		}
		if err != nil {
			return nil, fmt.Errorf("validation ligne %s: %w", line.ProductID, err)
		}

		if product.Stock < line.Quantity {
			return nil, &InsufficientStockError{ProductName: product.Name}
		}

		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Name:      product.Name,
			Price:     product.Price, // prix du catalogue, pas celui du client
			Quantity:  line.Quantity,
			ImageURL:  product.ImageURL,
		})
	}

	// Phase 2 : décréments atomiques, avec restitution en cas d'échec
	for i, item := range items {
		err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err == nil {
			continue
		}

		s.restock(ctx, items[:i])

		if errors.Is(err, store.ErrInsufficientStock) {
			return nil, &InsufficientStockError{ProductName: item.Name}
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Resource: "Product", Ref: item.ProductID}
		}
		return nil, fmt.Errorf("décrément stock %s: %w", item.ProductID, err)
	}

	totalPrice := 0.0
	for _, item := range items {
		totalPrice += item.Price * float64(item.Quantity)
	}

	order := &models.Order{
		ID:              gocql.TimeUUID(),
		UserID:          req.UserID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		TotalPrice:      totalPrice,
		Status:          models.OrderStatusPending,
		CreatedAt:       time.Now(),
	}

	if err := s.orders.Create(ctx, order); err != nil {
		// La commande n'existe pas : on restitue le stock déjà décrémenté
		s.restock(ctx, items)
		return nil, fmt.Errorf("persistance commande: %w", err)
	}

	// Vidage du panier en best-effort : un échec ici ne remet pas la
	// commande en cause
	if err := s.carts.Clear(ctx, req.UserID); err != nil {
		log.Printf("⚠️ Panier de %s non vidé après la commande %s: %v", req.UserID, order.ID, err)
	}

	return order, nil
}

// Cancel annule une commande encore annulable et restitue le stock.
func (s *Service) Cancel(ctx context.Context, orderID string, by Requester) (*models.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Resource: "Order"}
	}
	if err != nil {
		return nil, fmt.Errorf("lecture commande %s: %w", orderID, err)
	}

	if order.UserID != by.UserID && !by.IsAdmin() {
		return nil, &AuthorizationError{Msg: "Not authorized to cancel this order"}
	}

	if !order.CanBeCancelled() {
		return nil, &InvalidStateError{Msg: "Order cannot be cancelled at this stage"}
	}

	order.Status = models.OrderStatusCancelled

	// Restock best-effort : un produit supprimé du catalogue entre-temps
	// est ignoré sans faire échouer l'annulation
	s.restock(ctx, order.Items)

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("sauvegarde annulation %s: %w", orderID, err)
	}

	return order, nil
}

func (s *Service) restock(ctx context.Context, items []models.OrderItem) {
	for _, item := range items {
		err := s.products.IncrementStock(ctx, item.ProductID, item.Quantity)
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("⚠️ Restock ignoré, produit %s introuvable", item.ProductID)
			continue
		}
		if err != nil {
			log.Printf("❌ Restock échoué pour %s (+%d): %v", item.ProductID, item.Quantity, err)
		}
	}
}

// UpdateStatus change librement le statut (back-office). "delivered"
// fige aussi la date de livraison.
func (s *Service) UpdateStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Resource: "Order"}
	}
	if err != nil {
		return nil, fmt.Errorf("lecture commande %s: %w", orderID, err)
	}

	order.Status = status
	if status == models.OrderStatusDelivered {
		order.IsDelivered = true
		now := time.Now()
		order.DeliveredAt = &now
	}

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("sauvegarde statut %s: %w", orderID, err)
	}

	return order, nil
}

// MarkPaid enregistre le paiement ; le payload du prestataire est stocké
// tel quel sur la commande.
func (s *Service) MarkPaid(ctx context.Context, orderID string, result models.PaymentResult) (*models.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Resource: "Order"}
	}
	if err != nil {
		return nil, fmt.Errorf("lecture commande %s: %w", orderID, err)
	}

	order.IsPaid = true
	now := time.Now()
	order.PaidAt = &now
	order.PaymentResult = &result

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("sauvegarde paiement %s: %w", orderID, err)
	}

	return order, nil
}

// AttachPaymentIntent accroche l'identifiant Stripe à la commande pour
// que le webhook puisse la retrouver.
func (s *Service) AttachPaymentIntent(ctx context.Context, orderID, intentID string) error {
	order, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Resource: "Order"}
	}
	if err != nil {
		return fmt.Errorf("lecture commande %s: %w", orderID, err)
	}

	order.PaymentIntentID = intentID
	if err := s.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("sauvegarde intent %s: %w", orderID, err)
	}
	return nil
}

// Get renvoie une commande si le demandeur en est propriétaire ou admin.
func (s *Service) Get(ctx context.Context, orderID string, by Requester) (*models.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Resource: "Order"}
	}
	if err != nil {
		return nil, fmt.Errorf("lecture commande %s: %w", orderID, err)
	}

	if order.UserID != by.UserID && !by.IsAdmin() {
		return nil, &AuthorizationError{Msg: "Not authorized to view this order"}
	}

	return order, nil
}

// ListByUser renvoie les commandes d'un utilisateur.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// List pagine toutes les commandes (admin).
func (s *Service) List(ctx context.Context, page, limit int) ([]models.Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return s.orders.List(ctx, page, limit)
}
