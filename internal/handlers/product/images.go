package product

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"libris_back_end/internal/cache"
	"libris_back_end/internal/database"
	"libris_back_end/internal/models"
	"libris_back_end/internal/services"
)

// =========================
// 🟢 UPLOAD COUVERTURE (admin)
// =========================
// POST /api/products/:id/cover — multipart "file"
func UploadCover(c *gin.Context) {
	productUUID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID livre invalide"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier manquant"})
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

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	objectName := "covers/" + productUUID.String()
	imageURL, err := services.UploadCover(ctx, objectName, header)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur upload MinIO: " + err.Error()})
		return
	}

	now := time.Now()
	p.ImageURL = imageURL
	p.UpdatedAt = &now
	if err := session.Query(`UPDATE products SET image_url = ?, updated_at = ? WHERE product_id = ?`,
		imageURL, now, productUUID).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour livre"})
		return
	}

	go services.IndexProduct(p)
	cache.InvalidateProductCache(productUUID.String())

	c.JSON(http.StatusOK, gin.H{
		"message":   "Couverture uploadée avec succès",
		"image_url": imageURL,
	})
}

// =========================
// 🔵 URL SIGNÉE DE LA COUVERTURE
// =========================
// GET /api/products/:id/cover
func GetCoverURL(c *gin.Context) {
	productUUID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID livre invalide"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var imageURL string
	if err := session.Query(`SELECT image_url FROM products WHERE product_id = ?`, productUUID).Scan(&imageURL); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Livre introuvable"})
		return
	}
	if imageURL == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pas de couverture pour ce livre"})
		return
	}

	// URL signée valide 24h
	signed, err := services.GenerateSignedURL(c.Request.Context(), "covers/"+productUUID.String(), 24*time.Hour)
	if err != nil {
		// On retombe sur l'URL publique stockée
		c.JSON(http.StatusOK, gin.H{"image_url": imageURL})
		return
	}

	c.JSON(http.StatusOK, gin.H{"image_url": signed})
}
