package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
)

// Claims holds the JWT payload issued by the account service. Only HS256
// tokens carrying a user id are accepted.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Name   string `json:"name,omitempty"`
}

// ErrInvalidToken is returned when a JWT cannot be parsed or has expired.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// ValidateToken parses and validates a JWT token string. Returns the embedded claims.
func ValidateToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	if !token.Valid {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, fmt.Errorf("auth.ValidateToken: uid: %w", ErrInvalidToken)
	}

	return claims, nil
}

// Identity is the authenticated caller of an HTTP request or socket.
type Identity struct {
	UserID uuid.UUID
	Name   string
}

// Verifier turns a bearer credential into an Identity. The user must still
// exist; the stored display name wins over the token's.
type Verifier struct {
	secret string
	users  domain.UserRepository
}

func NewVerifier(secret string, users domain.UserRepository) *Verifier {
	return &Verifier{secret: secret, users: users}
}

// Verify fails with domain.ErrUnauthorized for any bad or unknown credential.
func (v *Verifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, fmt.Errorf("auth.Verify: missing token: %w", domain.ErrUnauthorized)
	}

	claims, err := ValidateToken(v.secret, token)
	if err != nil {
		return Identity{}, fmt.Errorf("auth.Verify: %w: %w", domain.ErrUnauthorized, err)
	}
	userID := uuid.MustParse(claims.UserID)

	u, err := v.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return Identity{}, fmt.Errorf("auth.Verify: unknown user: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return Identity{}, fmt.Errorf("auth.Verify: %w", err)
	}

	name := u.Name
	if name == "" {
		name = claims.Name
	}
	return Identity{UserID: u.ID, Name: name}, nil
}
