package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/26haroon26/chatapp-server/internal/auth"
)

const testSecret = "test-secret"

func signExpired(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims := &auth.SessionClaims{
		UserID: userID,
		Email:  "john@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-48 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func gateFixture(t *testing.T) (*Gate, http.Handler, *uuid.UUID) {
	t.Helper()
	gate := NewGate(auth.NewTokenService(testSecret))
	var seen uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := Identity(r.Context())
		require.True(t, ok, "identity must be on the context downstream")
		seen = claims.UserID
		w.WriteHeader(http.StatusOK)
	})
	return gate, gate.Middleware(next), &seen
}

func TestGateMissingToken(t *testing.T) {
	_, handler, _ := gateFixture(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies(), "missing token should not touch the cookie")
}

func TestGateInvalidSignature(t *testing.T) {
	_, handler, _ := gateFixture(t)

	token, err := auth.NewTokenService("other-secret").Sign(uuid.New(), "john@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestGateExpiredTokenClearsCookie(t *testing.T) {
	_, handler, _ := gateFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: signExpired(t, uuid.New())})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1, "expired token should clear the session cookie")
	assert.Equal(t, TokenCookie, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestGateValidToken(t *testing.T) {
	_, handler, seen := gateFixture(t)

	userID := uuid.New()
	token, err := auth.NewTokenService(testSecret).Sign(userID, "john@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, *seen)
}

func TestAuthenticateStateOrder(t *testing.T) {
	gate := NewGate(auth.NewTokenService(testSecret))

	_, err := gate.Authenticate("")
	assert.ErrorIs(t, err, auth.ErrMissingToken)

	_, err = gate.Authenticate("garbage")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = gate.Authenticate(signExpired(t, uuid.New()))
	assert.ErrorIs(t, err, auth.ErrExpiredToken)

	token, err2 := auth.NewTokenService(testSecret).Sign(uuid.New(), "john@example.com")
	require.NoError(t, err2)
	claims, err := gate.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "john@example.com", claims.Email)
}

func TestSetSessionCookieContract(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "sometoken")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, TokenCookie, c.Name)
	assert.Equal(t, "sometoken", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite)
	assert.Equal(t, 86400, c.MaxAge)
}
