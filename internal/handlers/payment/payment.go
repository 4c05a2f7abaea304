package payment

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/webhook"

	"libris_back_end/internal/cache"
	"libris_back_end/internal/handlers/order"
	"libris_back_end/internal/models"
	"libris_back_end/internal/orders"
	"libris_back_end/internal/utils"
)

// ✅ POST /api/payments/create-intent — PaymentIntent pour une commande existante
func CreatePaymentIntent(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	ord, err := order.Service().Get(ctx, req.OrderID, orders.Requester{
		UserID: userID,
		Role:   c.GetString("role"),
	})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}

	if ord.IsPaid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Commande déjà payée"})
		return
	}

	email := c.GetString("email")

	// 💰 Montant pris sur la commande, jamais sur le client
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(ord.TotalPrice * 100)), // en centimes
		Currency: stripe.String("eur"),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"order_id": ord.ID.String(),
			"user_id":  userID,
			"email":    email,
		},
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		log.Printf("❌ Erreur création PaymentIntent: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Accroche l'intent à la commande pour le webhook
	if err := order.Service().AttachPaymentIntent(ctx, req.OrderID, intent.ID); err != nil {
		log.Printf("⚠️ Intent %s non accroché à la commande %s: %v", intent.ID, req.OrderID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"clientSecret": intent.ClientSecret,
	})
}

//
// 🔔 POST /api/payments/webhook — confirmation du paiement par Stripe
//
func StripeWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Lecture corps échouée"})
		return
	}

	endpointSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")

	var event stripe.Event
	if endpointSecret != "" {
		event, err = webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), endpointSecret)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
			return
		}
	} else {
		// Pas de secret configuré (environnement de test) : payload brut
		if err := json.Unmarshal(payload, &event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Payload invalide"})
			return
		}
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			log.Printf("❌ Décodage PaymentIntent échoué: %v", err)
			break
		}

		log.Printf("✅ Paiement confirmé : %s (%.2f€)", pi.ID, float64(pi.Amount)/100)
		handlePaymentSucceeded(pi)

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err == nil {
			log.Printf("⚠️ Paiement échoué : %s", pi.ID)
		}
	}

	c.Status(http.StatusOK)
}

func handlePaymentSucceeded(pi stripe.PaymentIntent) {
	orderID := pi.Metadata["order_id"]
	if orderID == "" {
		log.Printf("⚠️ PaymentIntent %s sans order_id, ignoré", pi.ID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	email := pi.Metadata["email"]
	ord, err := order.Service().MarkPaid(ctx, orderID, models.PaymentResult{
		ID:           pi.ID,
		Status:       string(pi.Status),
		UpdateTime:   time.Now().Format(time.RFC3339),
		EmailAddress: email,
	})
	if err != nil {
		log.Printf("❌ Commande %s non marquée payée: %v", orderID, err)
		return
	}

	// 📧 Email de confirmation en arrière-plan
	if email == "" {
		if user, err := cache.GetUserFromCache(ord.UserID); err == nil {
			email = user.Email
		}
	}
	if email != "" {
		go func(to string, o models.Order) {
			html := utils.GenerateOrderConfirmationHTML(o)
			if err := utils.SendEmail(to, "Confirmation de votre commande Libris", html, nil); err != nil {
				log.Printf("⚠️ Email de confirmation non envoyé à %s: %v", to, err)
			}
		}(email, *ord)
	}
}
