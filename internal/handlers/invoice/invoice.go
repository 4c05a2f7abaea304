package invoice

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"libris_back_end/internal/cache"
	"libris_back_end/internal/handlers/order"
	"libris_back_end/internal/orders"
	"libris_back_end/internal/utils"
)

// POST /api/invoice/:id/send
func SendInvoice(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	ord, err := order.Service().Get(ctx, c.Param("id"), orders.Requester{
		UserID: userID,
		Role:   c.GetString("role"),
	})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "commande introuvable"})
		return
	}

	// Email du destinataire
	userEmail := c.GetString("email")
	if userEmail == "" {
		if user, err := cache.GetUserFromCache(ord.UserID); err == nil {
			userEmail = user.Email
		}
	}
	if userEmail == "" {
		userEmail = "client@inconnu.tld"
	}

	// 1. QR SEPA pour le paiement par virement
	iban := os.Getenv("COMPANY_IBAN")
	if iban == "" {
		iban = "BE12345678901234"
	}
	bic := os.Getenv("COMPANY_BIC")
	if bic == "" {
		bic = "KREDBEBB"
	}
	companyName := os.Getenv("COMPANY_NAME")
	if companyName == "" {
		companyName = "Libris SRL"
	}
	ref := fmt.Sprintf("FACT-%s", ord.ID)

	qrBase64, err := utils.GenerateSepaQR(iban, bic, companyName, ref, ord.TotalPrice)
	if err != nil {
		log.Println("❌ erreur QR:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qr fail"})
		return
	}

	// 2. Rendu de la page facture du front → PDF
	frontURL := utils.GetFrontendInvoiceBaseURL()
	pdfBytes, err := utils.RenderInvoicePDF(frontURL, ord.ID.String(), qrBase64)
	if err != nil {
		log.Println("❌ erreur PDF:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "pdf fail"})
		return
	}

	// 3. Corps HTML + envoi avec la facture en pièce jointe
	htmlBody := utils.GenerateOrderConfirmationHTML(*ord)
	if err := utils.SendEmail(userEmail, "Votre facture Libris", htmlBody, pdfBytes); err != nil {
		log.Println("❌ erreur envoi mail:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mail fail"})
		return
	}

	log.Printf("📤 Facture %s envoyée à %s", ref, userEmail)
	c.JSON(http.StatusOK, gin.H{"message": "facture envoyée"})
}
