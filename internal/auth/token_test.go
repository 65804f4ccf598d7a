package auth_test

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/auth"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	claims["exp"] = time.Now().Add(time.Hour).Unix()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestSenderIDFromToken_ClaimPrecedence(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"customer_id": "c1", "user_id": "u1", "sub": "s1"})
	assert.Equal(t, "c1", auth.SenderIDFromToken(token))

	token = signedToken(t, jwt.MapClaims{"user_id": "u1", "sub": "s1"})
	assert.Equal(t, "u1", auth.SenderIDFromToken(token))

	token = signedToken(t, jwt.MapClaims{"sub": "s1"})
	assert.Equal(t, "s1", auth.SenderIDFromToken(token))
}

func TestSenderIDFromToken_Malformed(t *testing.T) {
	assert.Equal(t, "", auth.SenderIDFromToken(""))
	assert.Equal(t, "", auth.SenderIDFromToken("not.a.jwt"))
	assert.Equal(t, "", auth.SenderIDFromToken(signedToken(t, jwt.MapClaims{"name": "no id here"})))
}

func TestMemoryTokenStore(t *testing.T) {
	store := auth.NewMemoryTokenStore("first")
	assert.Equal(t, "first", store.Token())

	store.SetToken("second")
	assert.Equal(t, "second", store.Token())

	store.SetToken("")
	assert.Equal(t, "", store.Token())
}
