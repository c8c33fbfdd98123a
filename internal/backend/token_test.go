package backend

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestUserIDFromToken(t *testing.T) {
	token := signToken(t, Claims{
		Email:            "learner@example.com",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-42"},
	})

	id, err := UserIDFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", id)
}

func TestUserIDFromTokenMissingSubject(t *testing.T) {
	_, err := UserIDFromToken(signToken(t, Claims{Role: "anon"}))
	assert.Error(t, err)
}

func TestUserIDFromTokenMalformed(t *testing.T) {
	_, err := UserIDFromToken("not-a-jwt")
	assert.Error(t, err)
}

func TestCheckToken(t *testing.T) {
	now := time.Now()
	token := signToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}})

	assert.NoError(t, CheckToken(token, now))
	assert.ErrorIs(t, CheckToken(token, now.Add(2*time.Hour)), ErrTokenExpired)
}
