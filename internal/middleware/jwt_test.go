package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func runJWT(t *testing.T, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := JWTMiddleware(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	require.NoError(t, handler(c))
	return rec, c
}

func TestJWTMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	t.Run("valid token populates context", func(t *testing.T) {
		token := signToken(t, "test-secret", jwt.MapClaims{
			"user_id": "user-1",
			"role":    "freelancer",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		rec, c := runJWT(t, "Bearer "+token)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", c.Get("user_id"))
		assert.Equal(t, "freelancer", c.Get("role"))
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		rec, _ := runJWT(t, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-bearer header is rejected", func(t *testing.T) {
		rec, _ := runJWT(t, "Basic abc")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token := signToken(t, "test-secret", jwt.MapClaims{
			"user_id": "user-1",
			"exp":     time.Now().Add(-time.Hour).Unix(),
		})
		rec, _ := runJWT(t, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		token := signToken(t, "other-secret", jwt.MapClaims{
			"user_id": "user-1",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		rec, _ := runJWT(t, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token without user_id is rejected", func(t *testing.T) {
		token := signToken(t, "test-secret", jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		rec, _ := runJWT(t, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRoles(t *testing.T) {
	run := func(role string, allowed ...string) int {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set("role", role)

		handler := RequireRoles(allowed...)(func(c echo.Context) error {
			return c.String(http.StatusOK, "ok")
		})
		_ = handler(c)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, run("client", "client"))
	assert.Equal(t, http.StatusOK, run("freelancer", "client", "freelancer"))
	assert.Equal(t, http.StatusForbidden, run("client", "freelancer"))
	assert.Equal(t, http.StatusForbidden, run("", "client"))
}
