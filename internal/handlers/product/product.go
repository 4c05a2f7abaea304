package product

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"libris_back_end/internal/cache"
	"libris_back_end/internal/database"
	"libris_back_end/internal/models"
	"libris_back_end/internal/services"
)

const productColumns = `product_id, name, description, price, stock, image_url, category_id, average_rating, num_reviews, created_at, updated_at`

func scanAllProducts(iter *gocql.Iter) ([]models.Product, error) {
	var products []models.Product
	var p models.Product

	for iter.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL,
		&p.CategoryID, &p.AverageRating, &p.NumReviews, &p.CreatedAt, &p.UpdatedAt) {
		products = append(products, p)
		p = models.Product{} // Reset pour la prochaine itération
	}
	return products, iter.Close()
}

// 🛡️ POST /api/products (admin)
func CreateProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if p.Name == "" || p.Price < 0 || p.Stock < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nom, prix ou stock invalide"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	// ✅ Vérifie la catégorie si fournie
	if p.CategoryID != (gocql.UUID{}) {
		var categoryName string
		if err := session.Query(`SELECT name FROM categories WHERE category_id = ?`, p.CategoryID).Scan(&categoryName); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Catégorie introuvable"})
			return
		}
	}

	p.ID = gocql.TimeUUID()
	p.CreatedAt = time.Now()
	now := time.Now()
	p.UpdatedAt = &now
	p.AverageRating = 0
	p.NumReviews = 0

	query := `INSERT INTO products (` + productColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if err := session.Query(query, p.ID, p.Name, p.Description, p.Price, p.Stock, p.ImageURL,
		p.CategoryID, p.AverageRating, p.NumReviews, p.CreatedAt, p.UpdatedAt).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création livre: " + err.Error()})
		return
	}

	// 🔄 Indexation Elasticsearch en arrière-plan
	go services.IndexProduct(p)
	cache.InvalidateProductCache(p.ID.String())

	c.JSON(http.StatusCreated, p)
}

// ✅ GET /api/products?keyword=&page=&limit= — liste paginée
func GetProducts(c *gin.Context) {
	keyword := c.Query("keyword")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "12"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 12
	}

	ctx := context.Background()
	cacheKey := "products:all"

	var products []models.Product

	// ✅ Le cache Redis ne sert que la liste complète, pas les recherches
	if keyword == "" {
		if val, err := database.Redis.Get(ctx, cacheKey).Result(); err == nil && val != "" {
			_ = json.Unmarshal([]byte(val), &products)
		}
	}

	if products == nil {
		session, err := database.GetProductsSession()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
			return
		}

		iter := session.Query(`SELECT ` + productColumns + ` FROM products`).Iter()
		products, err = scanAllProducts(iter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture livres: " + err.Error()})
			return
		}

		if keyword == "" {
			if data, err := json.Marshal(products); err == nil {
				database.Redis.Set(ctx, cacheKey, data, time.Hour)
			}
		}
	}

	if keyword != "" {
		filtered := products[:0]
		for _, p := range products {
			if containsIgnoreCase(p.Name, keyword) || containsIgnoreCase(p.Description, keyword) {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}

	// Tri stable du plus récent au plus ancien
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})

	total := len(products)
	pages := (total + limit - 1) / limit
	if pages == 0 {
		pages = 1
	}

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products[start:end],
		"page":     page,
		"pages":    pages,
		"total":    total,
	})
}

// ✅ GET /api/products/top — meilleurs livres par note moyenne
func GetTopProducts(c *gin.Context) {
	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`SELECT ` + productColumns + ` FROM products`).Iter()
	products, err := scanAllProducts(iter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture livres: " + err.Error()})
		return
	}

	sort.SliceStable(products, func(i, j int) bool {
		return products[i].AverageRating > products[j].AverageRating
	})

	limit := 3
	if len(products) > limit {
		products = products[:limit]
	}

	c.JSON(http.StatusOK, products)
}

// ✅ GET /api/products/:id
func GetProductByID(c *gin.Context) {
	productUUID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Livre introuvable"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	p := models.Product{ID: productUUID}
	if err := session.Query(`SELECT name, description, price, stock, image_url, category_id, average_rating, num_reviews, created_at, updated_at
	                         FROM products WHERE product_id = ?`, productUUID).
		Scan(&p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL,
			&p.CategoryID, &p.AverageRating, &p.NumReviews, &p.CreatedAt, &p.UpdatedAt); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Livre introuvable"})
		return
	}

	c.JSON(http.StatusOK, p)
}

// 🛡️ PUT /api/products/:id (admin)
func UpdateProduct(c *gin.Context) {
	productUUID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Livre introuvable"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	p := models.Product{ID: productUUID}
	if err := session.Query(`SELECT name, description, price, stock, image_url, category_id, average_rating, num_reviews, created_at, updated_at
	                         FROM products WHERE product_id = ?`, productUUID).
		Scan(&p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL,
			&p.CategoryID, &p.AverageRating, &p.NumReviews, &p.CreatedAt, &p.UpdatedAt); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Livre introuvable"})
		return
	}

	var input struct {
		Name        *string  `json:"name"`
		Description *string  `json:"description"`
		Price       *float64 `json:"price"`
		Stock       *int     `json:"stock"`
		ImageURL    *string  `json:"image_url"`
		CategoryID  *string  `json:"category_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	if input.Name != nil {
		p.Name = *input.Name
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.Price != nil {
		if *input.Price < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Prix invalide"})
			return
		}
		p.Price = *input.Price
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Stock invalide"})
			return
		}
		p.Stock = *input.Stock
	}
	if input.ImageURL != nil {
		p.ImageURL = *input.ImageURL
	}
	if input.CategoryID != nil {
		catUUID, err := gocql.ParseUUID(*input.CategoryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID de catégorie invalide"})
			return
		}
		p.CategoryID = catUUID
	}

	now := time.Now()
	p.UpdatedAt = &now

	if err := session.Query(`UPDATE products SET name = ?, description = ?, price = ?, stock = ?, image_url = ?, category_id = ?, updated_at = ?
	                         WHERE product_id = ?`,
		p.Name, p.Description, p.Price, p.Stock, p.ImageURL, p.CategoryID, p.UpdatedAt, p.ID).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour livre: " + err.Error()})
		return
	}

	go services.IndexProduct(p)
	cache.InvalidateProductCache(p.ID.String())

	c.JSON(http.StatusOK, p)
}

// 🛡️ DELETE /api/products/:id (admin)
func DeleteProduct(c *gin.Context) {
	productUUID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Livre introuvable"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	if err := session.Query(`DELETE FROM products WHERE product_id = ?`, productUUID).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression livre: " + err.Error()})
		return
	}

	go services.RemoveProductFromIndex(productUUID.String())
	cache.InvalidateProductCache(productUUID.String())

	c.JSON(http.StatusOK, gin.H{"message": "Livre supprimé"})
}

// ✅ GET /api/products/category/:id
func GetProductsByCategory(c *gin.Context) {
	catUUID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de catégorie invalide"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	// Note: pas de table dédiée par catégorie, on filtre côté serveur
	iter := session.Query(`SELECT `+productColumns+` FROM products WHERE category_id = ? ALLOW FILTERING`, catUUID).Iter()
	products, err := scanAllProducts(iter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture livres: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, products)
}

// Helper pour recherche insensible à la casse
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
