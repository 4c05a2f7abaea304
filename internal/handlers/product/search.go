package product

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"libris_back_end/internal/database"
	"libris_back_end/internal/models"
	"libris_back_end/internal/services"
)

// 🔎 GET /api/products/search?q=
func SearchProducts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paramètre 'q' manquant"})
		return
	}

	// 1️⃣ Elasticsearch en priorité
	results, err := services.SearchProducts(query)
	if err == nil && len(results) > 0 {
		c.JSON(http.StatusOK, results)
		return
	}

	// 2️⃣ Fallback ScyllaDB si ES vide ou indisponible (filtre en mémoire)
	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	// Note: ScyllaDB ne supporte pas LIKE, on charge et on filtre
	iter := session.Query(`SELECT ` + productColumns + ` FROM products`).Iter()
	all, err := scanAllProducts(iter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur recherche: " + err.Error()})
		return
	}

	products := []models.Product{}
	for _, p := range all {
		if containsIgnoreCase(p.Name, query) || containsIgnoreCase(p.Description, query) {
			products = append(products, p)
		}
	}

	c.JSON(http.StatusOK, products)
}
