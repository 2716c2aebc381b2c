package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("Password1")
	require.NoError(t, err)
	assert.NotEqual(t, "Password1", hash)
	assert.True(t, strings.HasPrefix(hash, "$2"))

	// Same input hashes to different strings thanks to the salt.
	other, err := HashPassword("Password1")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other)
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Password1")
	require.NoError(t, err)

	assert.True(t, VerifyPassword(hash, "Password1"))
	assert.False(t, VerifyPassword(hash, "password1"))
	assert.False(t, VerifyPassword(hash, ""))
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "Password1"))
}
