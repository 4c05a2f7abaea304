package user

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"libris_back_end/internal/cache"
	"libris_back_end/internal/database"
	"libris_back_end/internal/utils"
)

const resetTokenTTL = time.Hour

// ================== MOT DE PASSE OUBLIÉ ==================

// POST /api/auth/forgot-password
func ForgotPassword(c *gin.Context) {
	var input struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email obligatoire"})
		return
	}

	// Réponse générique dans tous les cas : on ne révèle pas si l'email existe
	genericResponse := gin.H{"message": "Si votre email est enregistré, vous recevrez un lien de réinitialisation"}

	var userUUID gocql.UUID
	if err := database.GetPreparedGetUserByEmail().Bind(input.Email).Scan(&userUUID); err != nil {
		c.JSON(http.StatusOK, genericResponse)
		return
	}

	token, hash, err := utils.GenerateResetToken()
	if err != nil {
		log.Printf("❌ Erreur génération token reset: %v", err)
		c.JSON(http.StatusOK, genericResponse)
		return
	}

	// Seule l'empreinte du token part en Redis, avec TTL d'une heure
	ctx := context.Background()
	if err := database.Redis.Set(ctx, "pwd_reset:"+hash, userUUID.String(), resetTokenTTL).Err(); err != nil {
		log.Printf("❌ Erreur stockage token reset: %v", err)
		c.JSON(http.StatusOK, genericResponse)
		return
	}

	frontURL := os.Getenv("FRONTEND_URL")
	if frontURL == "" {
		frontURL = "http://localhost:3000"
	}
	resetURL := fmt.Sprintf("%s/reset-password/%s", frontURL, token)

	go func() {
		if err := utils.SendEmail(input.Email, "Réinitialisation de votre mot de passe",
			utils.GeneratePasswordResetHTML(resetURL), nil); err != nil {
			log.Printf("❌ Envoi mail reset échoué pour %s: %v", input.Email, err)
		}
	}()

	c.JSON(http.StatusOK, genericResponse)
}

// PUT /api/auth/reset-password/:resetToken
func ResetPassword(c *gin.Context) {
	resetToken := c.Param("resetToken")

	var input struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || len(input.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le mot de passe doit contenir au moins 8 caractères"})
		return
	}

	ctx := context.Background()
	key := "pwd_reset:" + utils.HashResetToken(resetToken)

	userID, err := database.Redis.Get(ctx, key).Result()
	if err != nil || userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token invalide ou expiré"})
		return
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token invalide ou expiré"})
		return
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	if err := database.GetPreparedUpdatePassword().
		Bind(hashedPassword, time.Now(), gocql.UUID(uid)).Exec(); err != nil {
		log.Printf("❌ Erreur mise à jour mot de passe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	// Token à usage unique
	database.Redis.Del(ctx, key)
	cache.InvalidateUserCache(userID)

	c.JSON(http.StatusOK, gin.H{"message": "Mot de passe réinitialisé avec succès"})
}

// ================== CHANGE PASSWORD (avec ancien mot de passe) ==================

// PUT /api/users/me/password
func ChangePassword(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	var input struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(input.NewPassword) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le nouveau mot de passe doit contenir au moins 8 caractères"})
		return
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID utilisateur invalide"})
		return
	}

	var email, password, name, role, provider, providerID string
	if err := database.GetPreparedGetUserByID().Bind(gocql.UUID(uid)).
		Scan(&email, &password, &name, &role, &provider, &providerID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}

	if provider != "local" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Compte géré par un fournisseur externe"})
		return
	}

	if !utils.CheckPassword(password, input.OldPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Ancien mot de passe incorrect"})
		return
	}

	hashedPassword, err := utils.HashPassword(input.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	if err := database.GetPreparedUpdatePassword().
		Bind(hashedPassword, time.Now(), gocql.UUID(uid)).Exec(); err != nil {
		log.Printf("❌ Erreur changement mot de passe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	cache.InvalidateUserCache(userID)
	c.JSON(http.StatusOK, gin.H{"message": "Mot de passe modifié avec succès"})
}
