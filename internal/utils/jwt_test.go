package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libris_back_end/internal/models"
)

func TestGenerateJWT(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret_de_test")

	user := models.User{
		ID:    "u-42",
		Email: "lecteur@example.com",
		Role:  "customer",
	}

	signed, err := GenerateJWT(user)
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret_de_test"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "u-42", claims["user_id"])
	assert.Equal(t, "lecteur@example.com", claims["email"])
	assert.Equal(t, "customer", claims["role"])
	assert.NotEmpty(t, claims["exp"])
}
