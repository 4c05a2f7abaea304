package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hashed, err := HashPassword("motdepasse123")
	require.NoError(t, err)
	assert.NotEqual(t, "motdepasse123", hashed)

	assert.True(t, CheckPassword(hashed, "motdepasse123"))
	assert.False(t, CheckPassword(hashed, "mauvais"))
}

func TestGenerateResetToken(t *testing.T) {
	token, hash, err := GenerateResetToken()
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// Le hash stocké doit se recalculer depuis le token envoyé par mail
	assert.Equal(t, hash, HashResetToken(token))

	// Deux tokens successifs ne se ressemblent pas
	token2, hash2, err := GenerateResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, token2)
	assert.NotEqual(t, hash, hash2)
}
