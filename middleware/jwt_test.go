package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret-32bytes-padded!!"

func TestGenerateToken_Valid(t *testing.T) {
	tok, err := GenerateToken("ops", "", testSecret, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
}

func TestParseToken_Valid(t *testing.T) {
	tok, err := GenerateToken("ops", "vault", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Observer)
	assert.Equal(t, "vault", claims.Level)
	assert.Equal(t, "ops", claims.Subject)
}

func TestParseToken_WrongSecret(t *testing.T) {
	tok, err := GenerateToken("ops", "", testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tok, "wrong-secret")
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	tok, err := GenerateToken("ops", "", testSecret, -time.Second)
	require.NoError(t, err)

	_, err = ParseToken(tok, testSecret)
	assert.Error(t, err)
}

func TestParseToken_Malformed(t *testing.T) {
	_, err := ParseToken("not.a.jwt", testSecret)
	assert.Error(t, err)
}

func TestParseToken_Empty(t *testing.T) {
	_, err := ParseToken("", testSecret)
	assert.Error(t, err)
}

func TestClaims_CanWatch(t *testing.T) {
	all := &Claims{Observer: "ops"}
	assert.True(t, all.CanWatch("vault"))
	assert.True(t, all.CanWatch("corridor"))

	one := &Claims{Observer: "ops", Level: "vault"}
	assert.True(t, one.CanWatch("vault"))
	assert.False(t, one.CanWatch("corridor"))
}
