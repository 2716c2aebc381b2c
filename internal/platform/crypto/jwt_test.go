package crypto

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-chars-long!!"

func TestGenerateAndParseToken(t *testing.T) {
	token, jti, err := GenerateToken(testSecret, "user-123", "USER", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, jti)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Sub)
	assert.Equal(t, "USER", claims.Role)
	assert.Equal(t, jti, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _, err := GenerateToken(testSecret, "user-123", "USER", time.Minute)
	require.NoError(t, err)

	_, err = ParseToken("a-completely-different-secret", token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestParseToken_Expired(t *testing.T) {
	token, _, err := GenerateToken(testSecret, "user-123", "USER", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(testSecret, token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseToken_Malformed(t *testing.T) {
	_, err := ParseToken(testSecret, "not.a.token")
	assert.Error(t, err)
}

func TestGenerateToken_UniqueJTI(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		_, jti, err := GenerateToken(testSecret, "user-123", "USER", time.Minute)
		require.NoError(t, err)
		assert.False(t, seen[jti], "jti %q issued twice", jti)
		seen[jti] = true
	}
}
