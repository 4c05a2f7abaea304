package order

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"libris_back_end/internal/models"
	"libris_back_end/internal/orders"
	"libris_back_end/internal/store"
)

var svc = orders.NewService(
	store.NewScyllaProductStore(),
	store.NewRedisCartStore(),
	store.NewScyllaOrderStore(),
)

// Service expose le service de commandes aux autres handlers (paiement,
// facture), qui partagent les mêmes stores.
func Service() *orders.Service {
	return svc
}

func requester(c *gin.Context) orders.Requester {
	return orders.Requester{
		UserID: c.GetString("user_id"),
		Role:   c.GetString("role"),
	}
}

// respondError traduit les erreurs métier en statuts HTTP.
func respondError(c *gin.Context, err error) {
	var (
		validation   *orders.ValidationError
		notFound     *orders.NotFoundError
		noStock      *orders.InsufficientStockError
		forbidden    *orders.AuthorizationError
		invalidState *orders.InvalidStateError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &noStock):
		c.JSON(http.StatusBadRequest, gin.H{"error": noStock.Error()})
	case errors.As(err, &invalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidState.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": forbidden.Error()})
	default:
		log.Printf("❌ Erreur commande: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
	}
}

// ✅ POST /api/orders — crée une commande depuis les lignes envoyées
func CreateOrder(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	var input struct {
		OrderItems      []orders.LineItemRequest `json:"orderItems"`
		ShippingAddress models.ShippingAddress   `json:"shippingAddress"`
		PaymentMethod   string                   `json:"paymentMethod"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	order, err := svc.Create(ctx, orders.CreateRequest{
		UserID:          userID,
		Items:           input.OrderItems,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("✅ Commande %s créée pour user %s (%.2f€)", order.ID, userID, order.TotalPrice)
	c.JSON(http.StatusCreated, order)
}

// ✅ GET /api/orders/myorders — les commandes de l'utilisateur connecté
func GetMyOrders(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	list, err := svc.ListByUser(ctx, userID)
	if err != nil {
		log.Println("❌ Erreur récupération commandes:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commandes"})
		return
	}

	log.Printf("✅ %d commandes trouvées pour user %s", len(list), userID)
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// ✅ GET /api/orders/:id — propriétaire ou admin uniquement
func GetOrderByID(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	order, err := svc.Get(ctx, c.Param("id"), requester(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// 🛡️ GET /api/orders — toutes les commandes, paginées (admin)
func GetOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	list, total, err := svc.List(ctx, page, limit)
	if err != nil {
		log.Println("❌ Erreur listing commandes:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commandes"})
		return
	}

	if limit < 1 || limit > 100 {
		limit = 10
	}
	pages := (total + limit - 1) / limit
	if pages == 0 {
		pages = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": list,
		"page":   page,
		"pages":  pages,
		"total":  total,
	})
}

// 🛡️ PUT /api/orders/:id/status — changement de statut (admin)
func UpdateOrderStatus(c *gin.Context) {
	var input struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Statut manquant"})
		return
	}

	switch input.Status {
	case models.OrderStatusPending, models.OrderStatusProcessing,
		models.OrderStatusDelivered, models.OrderStatusCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Statut inconnu"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	order, err := svc.UpdateStatus(ctx, c.Param("id"), input.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("✅ Commande %s passée en %s", order.ID, order.Status)
	c.JSON(http.StatusOK, order)
}

// ✅ PUT /api/orders/:id/pay — enregistre le résultat de paiement
func UpdateOrderToPaid(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	var result models.PaymentResult
	if err := c.ShouldBindJSON(&result); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	// Vérifie la propriété avant d'écrire
	if _, err := svc.Get(ctx, c.Param("id"), requester(c)); err != nil {
		respondError(c, err)
		return
	}

	order, err := svc.MarkPaid(ctx, c.Param("id"), result)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// ✅ PUT /api/orders/:id/cancel — annulation + restitution du stock
func CancelOrder(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	order, err := svc.Cancel(ctx, c.Param("id"), requester(c))
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("✅ Commande %s annulée, stock restitué", order.ID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled",
		"order":   order,
	})
}
