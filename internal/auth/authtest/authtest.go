// Package authtest signs tokens the way the account service does, for tests.
package authtest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/auth"
)

// Secret is long enough to pass config validation.
const Secret = "authtest-secret-key-at-least-32-bytes-long"

// Token returns an HS256 token for userID valid for ttl. A negative ttl
// yields an already expired token.
func Token(t testing.TB, secret string, userID uuid.UUID, name string, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "kanbana-test",
		},
		UserID: userID.String(),
		Name:   name,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("authtest.Token: %v", err)
	}
	return signed
}
