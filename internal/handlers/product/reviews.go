package product

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"libris_back_end/internal/cache"
	"libris_back_end/internal/database"
	"libris_back_end/internal/models"
)

// ⭐ POST /api/products/:id/reviews — un seul avis par utilisateur et par livre
func CreateReview(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	var req struct {
		Rating  int    `json:"rating" binding:"required,min=1,max=5"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

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

	// Vérifie que le livre existe
	var checkID gocql.UUID
	if err := session.Query(`SELECT product_id FROM products WHERE product_id = ?`, productUUID).Scan(&checkID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Livre introuvable"})
		return
	}

	// Déjà noté ?
	iter := session.Query(`SELECT user_id FROM reviews_by_product WHERE product_id = ?`, productUUID).Iter()
	var reviewerID string
	alreadyReviewed := false
	for iter.Scan(&reviewerID) {
		if reviewerID == userID {
			alreadyReviewed = true
		}
	}
	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture avis"})
		return
	}
	if alreadyReviewed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vous avez déjà noté ce livre"})
		return
	}

	// Nom de l'utilisateur pour l'affichage
	userName := "Utilisateur"
	if user, err := cache.GetUserFromCache(userID); err == nil && user.Name != "" {
		userName = user.Name
	}

	review := models.Review{
		ID:        gocql.TimeUUID(),
		ProductID: productUUID,
		UserID:    userID,
		UserName:  userName,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: time.Now(),
	}

	if err := session.Query(`INSERT INTO reviews_by_product (product_id, review_id, user_id, user_name, rating, comment, created_at)
	                         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		review.ProductID, review.ID, review.UserID, review.UserName, review.Rating, review.Comment, review.CreatedAt).Exec(); err != nil {
		log.Printf("❌ Erreur création avis: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création avis"})
		return
	}

	// Recalcule la moyenne et la stocke sur le livre
	refreshProductRating(session, productUUID)
	cache.InvalidateProductCache(productUUID.String())

	log.Printf("⭐ Avis créé: %s pour livre %s (note: %d/5)", review.ID, productUUID, req.Rating)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Avis créé avec succès",
		"review":  review,
	})
}

// ⭐ GET /api/products/:id/reviews
func GetProductReviews(c *gin.Context) {
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

	iter := session.Query(`SELECT review_id, user_id, user_name, rating, comment, created_at
	                       FROM reviews_by_product WHERE product_id = ?`, productUUID).Iter()

	var reviews []models.Review
	var review models.Review
	var totalRating int

	for iter.Scan(&review.ID, &review.UserID, &review.UserName, &review.Rating, &review.Comment, &review.CreatedAt) {
		review.ProductID = productUUID
		reviews = append(reviews, review)
		totalRating += review.Rating
	}
	if err := iter.Close(); err != nil {
		log.Printf("❌ Erreur lecture avis: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture avis"})
		return
	}

	var averageRating float64
	if len(reviews) > 0 {
		averageRating = float64(totalRating) / float64(len(reviews))
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews":        reviews,
		"total_reviews":  len(reviews),
		"average_rating": averageRating,
	})
}

// ⭐ PUT /api/products/:id/reviews/:reviewId — seul l'auteur peut modifier
func UpdateReview(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	productUUID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID livre invalide"})
		return
	}
	reviewUUID, err := gocql.ParseUUID(c.Param("reviewId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID avis invalide"})
		return
	}

	var req struct {
		Rating  int    `json:"rating" binding:"required,min=1,max=5"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var author string
	if err := session.Query(`SELECT user_id FROM reviews_by_product WHERE product_id = ? AND review_id = ?`,
		productUUID, reviewUUID).Scan(&author); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Avis introuvable"})
		return
	}
	if author != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Vous ne pouvez modifier que vos propres avis"})
		return
	}

	if err := session.Query(`UPDATE reviews_by_product SET rating = ?, comment = ? WHERE product_id = ? AND review_id = ?`,
		req.Rating, req.Comment, productUUID, reviewUUID).Exec(); err != nil {
		log.Printf("❌ Erreur mise à jour avis: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour avis"})
		return
	}

	refreshProductRating(session, productUUID)
	cache.InvalidateProductCache(productUUID.String())

	c.JSON(http.StatusOK, gin.H{"message": "Avis mis à jour"})
}

// ⭐ DELETE /api/products/:id/reviews/:reviewId — auteur ou admin
func DeleteReview(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	productUUID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID livre invalide"})
		return
	}
	reviewUUID, err := gocql.ParseUUID(c.Param("reviewId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID avis invalide"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var author string
	if err := session.Query(`SELECT user_id FROM reviews_by_product WHERE product_id = ? AND review_id = ?`,
		productUUID, reviewUUID).Scan(&author); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Avis introuvable"})
		return
	}
	if author != userID && c.GetString("role") != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Vous ne pouvez supprimer que vos propres avis"})
		return
	}

	if err := session.Query(`DELETE FROM reviews_by_product WHERE product_id = ? AND review_id = ?`,
		productUUID, reviewUUID).Exec(); err != nil {
		log.Printf("❌ Erreur suppression avis: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression avis"})
		return
	}

	refreshProductRating(session, productUUID)
	cache.InvalidateProductCache(productUUID.String())

	c.JSON(http.StatusOK, gin.H{"message": "Avis supprimé"})
}

// refreshProductRating recompte tous les avis du livre et met à jour
// average_rating / num_reviews sur la table products.
func refreshProductRating(session *gocql.Session, productUUID gocql.UUID) {
	iter := session.Query(`SELECT rating FROM reviews_by_product WHERE product_id = ?`, productUUID).Iter()

	var rating, total, count int
	for iter.Scan(&rating) {
		total += rating
		count++
	}
	if err := iter.Close(); err != nil {
		log.Printf("⚠️ Erreur recalcul note moyenne %s: %v", productUUID, err)
		return
	}

	var average float64
	if count > 0 {
		average = float64(total) / float64(count)
	}

	if err := session.Query(`UPDATE products SET average_rating = ?, num_reviews = ?, updated_at = ? WHERE product_id = ?`,
		average, count, time.Now(), productUUID).Exec(); err != nil {
		log.Printf("⚠️ Erreur mise à jour note moyenne %s: %v", productUUID, err)
	}
}
