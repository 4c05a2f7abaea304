package user

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"libris_back_end/internal/models"
	"libris_back_end/internal/store"
)

var (
	cartStore     store.CartStore    = store.NewRedisCartStore()
	cartCatalogue store.ProductStore = store.NewScyllaProductStore()
)

// 🟢 GET /api/carts
func GetCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	cart, err := cartStore.GetByUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture panier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": cart.Items, "total": cart.Total()})
}

// 🟢 POST /api/carts/add
func AddToCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	var input struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	if input.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantité invalide"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	// 🧩 Le prix et le nom viennent toujours du catalogue, jamais du client
	product, err := cartCatalogue.Get(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Livre introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	cart, err := cartStore.GetByUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture panier"})
		return
	}

	// Ligne existante pour ce livre, le cas échéant
	idx := -1
	for i := range cart.Items {
		if cart.Items[i].ProductID == input.ProductID {
			idx = i
			break
		}
	}

	// La quantité cumulée de la ligne ne dépasse jamais le stock
	newQty := input.Quantity
	if idx >= 0 {
		newQty += cart.Items[idx].Quantity
	}
	if product.Stock < newQty {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Pas assez de stock disponible"})
		return
	}

	if idx >= 0 {
		cart.Items[idx].Quantity = newQty
	} else {
		cart.Items = append(cart.Items, models.CartItem{
			ProductID: input.ProductID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  input.Quantity,
			ImageURL:  product.ImageURL,
		})
	}

	if err := cartStore.Save(ctx, cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sauvegarde panier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Livre ajouté au panier",
		"items":   cart.Items,
		"total":   cart.Total(),
	})
}

// 🟡 PUT /api/carts/:productId
func UpdateCartItem(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	var input struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantité invalide"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	productID := c.Param("productId")

	// Une quantité positive se vérifie contre le stock du catalogue
	if input.Quantity > 0 {
		product, err := cartCatalogue.Get(ctx, productID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Livre introuvable"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
			return
		}
		if product.Stock < input.Quantity {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Pas assez de stock disponible"})
			return
		}
	}

	cart, err := cartStore.GetByUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture panier"})
		return
	}

	updated := cart.Items[:0]
	found := false
	for _, item := range cart.Items {
		if item.ProductID == productID {
			found = true
			if input.Quantity <= 0 {
				continue // quantité <= 0 = retrait
			}
			item.Quantity = input.Quantity
		}
		updated = append(updated, item)
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Livre absent du panier"})
		return
	}
	cart.Items = updated

	if err := cartStore.Save(ctx, cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sauvegarde panier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": cart.Items, "total": cart.Total()})
}

// ❌ DELETE /api/carts/:productId
func RemoveFromCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	cart, err := cartStore.GetByUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture panier"})
		return
	}

	productID := c.Param("productId")
	newItems := []models.CartItem{}
	for _, item := range cart.Items {
		if item.ProductID != productID {
			newItems = append(newItems, item)
		}
	}
	cart.Items = newItems

	if err := cartStore.Save(ctx, cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sauvegarde panier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Livre supprimé du panier",
		"items":   cart.Items,
	})
}

// 🧹 DELETE /api/carts/clear
func ClearCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := cartStore.Clear(ctx, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors du vidage du panier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Panier vidé avec succès"})
}
