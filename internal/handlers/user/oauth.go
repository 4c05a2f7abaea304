package user

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"

	"libris_back_end/internal/database"
	"libris_back_end/internal/models"
	"libris_back_end/internal/utils"
)

// ================== AUTH OAUTH (Google / Facebook) ==================

// GET /api/auth/:provider
func BeginOAuth(c *gin.Context) {
	// gothic attend le provider dans la query
	q := c.Request.URL.Query()
	q.Set("provider", c.Param("provider"))
	c.Request.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// GET /api/auth/:provider/callback
func OAuthCallback(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Set("provider", c.Param("provider"))
	c.Request.URL.RawQuery = q.Encode()

	gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		log.Printf("❌ Callback OAuth échoué: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentification échouée"})
		return
	}

	user, err := findOrCreateOAuthUser(gothUser)
	if err != nil {
		log.Printf("❌ Erreur création utilisateur OAuth: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création utilisateur"})
		return
	}

	token, err := utils.GenerateJWT(*user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération token"})
		return
	}

	frontURL := os.Getenv("FRONTEND_URL")
	if frontURL == "" {
		frontURL = "http://localhost:3000"
	}

	// Redirige vers le front avec le token en query
	redirect := fmt.Sprintf("%s/oauth-callback?token=%s", frontURL, url.QueryEscape(token))
	c.Redirect(http.StatusTemporaryRedirect, redirect)
}

func findOrCreateOAuthUser(gothUser goth.User) (*models.User, error) {
	// Compte existant pour cet email ?
	var userUUID gocql.UUID
	err := database.GetPreparedGetUserByEmail().Bind(gothUser.Email).Scan(&userUUID)
	if err == nil {
		var user models.User
		user.ID = userUUID.String()
		if err := database.GetPreparedGetUserByID().Bind(userUUID).
			Scan(&user.Email, &user.Password, &user.Name, &user.Role, &user.Provider, &user.ProviderID); err != nil {
			return nil, err
		}
		return &user, nil
	}

	// Sinon on crée le compte
	user := models.User{
		ID:         uuid.NewString(),
		Name:       gothUser.Name,
		Email:      gothUser.Email,
		Role:       "customer",
		Provider:   gothUser.Provider,
		ProviderID: gothUser.UserID,
	}

	uid, _ := uuid.Parse(user.ID)
	now := time.Now()
	if err := database.GetPreparedInsertUser().
		Bind(gocql.UUID(uid), user.Email, "", user.Name, user.Role, user.Provider, user.ProviderID, now, now).
		Exec(); err != nil {
		return nil, err
	}
	if err := database.GetPreparedInsertUserByEmail().Bind(user.Email, gocql.UUID(uid)).Exec(); err != nil {
		log.Printf("⚠️ Erreur indexation users_by_email: %v", err)
	}

	log.Printf("✅ Compte %s créé via %s", user.Email, user.Provider)
	return &user, nil
}
