package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/26haroon26/chatapp-server/internal/auth"
)

// TokenCookie is the session cookie name the browser client expects.
const TokenCookie = "Token"

type contextKey string

const identityKey contextKey = "identity"

// Gate is the single token check shared by the request path and the
// websocket handshake: extract cookie, verify signature, reject expiry.
type Gate struct {
	tokens *auth.TokenService
}

// NewGate creates a new session gate
func NewGate(tokens *auth.TokenService) *Gate {
	return &Gate{tokens: tokens}
}

// Authenticate verifies a raw token string and re-checks expiry itself,
// because TokenService.Verify does not.
func (g *Gate) Authenticate(tokenString string) (*auth.SessionClaims, error) {
	if tokenString == "" {
		return nil, auth.ErrMissingToken
	}
	claims, err := g.tokens.Verify(tokenString)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Before(time.Now()) {
		return nil, auth.ErrExpiredToken
	}
	return claims, nil
}

// FromRequest authenticates the session cookie on an inbound request or
// connection handshake.
func (g *Gate) FromRequest(r *http.Request) (*auth.SessionClaims, error) {
	cookie, err := r.Cookie(TokenCookie)
	if err != nil {
		return nil, auth.ErrMissingToken
	}
	return g.Authenticate(cookie.Value)
}

// Middleware guards request/response routes. On an expired token it also
// clears the cookie so the client stops resending it.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.FromRequest(r)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				ClearSessionCookie(w)
			}
			respondWithError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Identity returns the claims attached to the request context by Middleware
func Identity(ctx context.Context) (*auth.SessionClaims, bool) {
	claims, ok := ctx.Value(identityKey).(*auth.SessionClaims)
	return claims, ok
}

// SetSessionCookie attaches the session token as a secure cross-site cookie
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// ClearSessionCookie expires the session cookie immediately
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
