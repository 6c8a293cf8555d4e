package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/auth"
)

type contextKey string

const (
	ContextKeyUserID   contextKey = "user_id"
	ContextKeyUserName contextKey = "user_name"

	// ContextKeyQueryToken holds a token RedactToken removed from the URL.
	ContextKeyQueryToken contextKey = "query_token"
)

// WithIdentity stores an authenticated caller on ctx.
func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUserID, id.UserID)
	return context.WithValue(ctx, ContextKeyUserName, id.Name)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	return v, ok
}

// IdentityFromContext returns the caller stored by Auth.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	userID, ok := UserIDFromContext(ctx)
	if !ok || userID == uuid.Nil {
		return auth.Identity{}, false
	}
	name, _ := ctx.Value(ContextKeyUserName).(string)
	return auth.Identity{UserID: userID, Name: name}, true
}
