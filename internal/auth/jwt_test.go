package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 1)

	tok, err := svc.Generate(9, "ada@example.com", "user")
	require.NoError(t, err)

	claims, err := svc.Validate(tok)
	require.NoError(t, err)
	require.Equal(t, uint(9), claims.UserID)
	require.Equal(t, "ada@example.com", claims.Email)
	require.Equal(t, "user", claims.Role)
	require.Equal(t, "9", claims.Subject)
}

func TestJWT_RejectsWrongSecret(t *testing.T) {
	tok, err := NewJWTService("one", 1).Generate(9, "ada@example.com", "user")
	require.NoError(t, err)

	_, err = NewJWTService("two", 1).Validate(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_RejectsExpired(t *testing.T) {
	svc := NewJWTService("secret", 1)
	claims := Claims{
		UserID: 9,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.Validate(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_RejectsNonHMAC(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 9}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTService("secret", 1).Validate(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}
