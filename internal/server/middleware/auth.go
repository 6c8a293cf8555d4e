package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/AbhinayAmbati/kanbana/internal/auth"
	"github.com/AbhinayAmbati/kanbana/internal/domain"
)

// TokenParam is the query parameter a WebSocket upgrade may carry its token
// in, since browsers cannot set headers on the handshake.
const TokenParam = "token"

// TokenVerifier resolves a bearer credential to a caller.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (auth.Identity, error)
}

// Auth rejects requests without a valid Authorization header.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return authenticate(verifier, extractBearer)
}

// WebSocketAuth is Auth for WebSocket upgrades: the token may also come
// from the query string, either as captured by RedactToken or still in the
// URL when RedactToken is not installed.
func WebSocketAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return authenticate(verifier, func(r *http.Request) string {
		if tok := extractBearer(r); tok != "" {
			return tok
		}
		if tok, ok := r.Context().Value(ContextKeyQueryToken).(string); ok {
			return tok
		}
		return r.URL.Query().Get(TokenParam)
	})
}

// RedactToken removes the token query parameter from the request URL so
// access logs never record it. The value stays on the request context for
// WebSocketAuth.
func RedactToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		tok := q.Get(TokenParam)
		if !q.Has(TokenParam) {
			next.ServeHTTP(w, r)
			return
		}
		q.Del(TokenParam)

		r = r.WithContext(context.WithValue(r.Context(), ContextKeyQueryToken, tok))
		u := *r.URL
		u.RawQuery = q.Encode()
		r.URL = &u
		r.RequestURI = u.RequestURI()
		next.ServeHTTP(w, r)
	})
}

func authenticate(verifier TokenVerifier, extract func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := verifier.Verify(r.Context(), extract(r))
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`, http.StatusUnauthorized)
					return
				}
				log.Error().Err(err).Msg("auth: verify credential")
				http.Error(w, `{"title":"Service Unavailable","status":503,"detail":"cannot verify credentials"}`, http.StatusServiceUnavailable)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func extractBearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return auth[7:]
	}
	return ""
}
