package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("unit-test-signing-key")

func signToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func staffClaims() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "dr-a",
			Issuer:    "https://auth.example.org",
			Audience:  jwt.ClaimStrings{"clinimetric"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name:  "Dr A",
		Roles: []string{"clinician"},
	}
}

func runJWT(t *testing.T, token string) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	mw := JWTMiddleware(JWTConfig{
		Issuer:     "https://auth.example.org",
		Audience:   "clinimetric",
		SigningKey: testKey,
	})
	err := mw(func(c echo.Context) error { return nil })(c)
	return c, err
}

func TestJWTMiddlewareAcceptsValidToken(t *testing.T) {
	c, err := runJWT(t, signToken(t, staffClaims(), testKey))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := c.Request().Context()
	if got := UserIDFromContext(ctx); got != "dr-a" {
		t.Errorf("expected subject on context, got %q", got)
	}
	if roles := RolesFromContext(ctx); len(roles) != 1 || roles[0] != "clinician" {
		t.Errorf("expected roles on context, got %v", roles)
	}
}

func TestJWTMiddlewareRejections(t *testing.T) {
	expectUnauthorized := func(t *testing.T, err error) {
		t.Helper()
		var httpErr *echo.HTTPError
		if !errors.As(err, &httpErr) || httpErr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %v", err)
		}
	}

	t.Run("missing header", func(t *testing.T) {
		_, err := runJWT(t, "")
		expectUnauthorized(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		_, err := runJWT(t, signToken(t, staffClaims(), []byte("other-key")))
		expectUnauthorized(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		claims := staffClaims()
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		_, err := runJWT(t, signToken(t, claims, testKey))
		expectUnauthorized(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := staffClaims()
		claims.Issuer = "https://elsewhere.example.org"
		_, err := runJWT(t, signToken(t, claims, testKey))
		expectUnauthorized(t, err)
	})
}

func TestRequireRole(t *testing.T) {
	run := func(t *testing.T, userRoles []string, required ...string) error {
		t.Helper()
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		c := e.NewContext(req, httptest.NewRecorder())

		claims := staffClaims()
		claims.Roles = userRoles
		c.Request().Header.Set("Authorization", "Bearer "+signToken(t, claims, testKey))

		mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
		handler := mw(RequireRole(required...)(func(c echo.Context) error { return nil }))
		return handler(c)
	}

	if err := run(t, []string{"clinician"}, "clinician", "assistant"); err != nil {
		t.Errorf("expected clinician to pass, got %v", err)
	}
	if err := run(t, []string{"admin"}, "clinician"); err != nil {
		t.Errorf("expected admin to always pass, got %v", err)
	}

	err := run(t, []string{"assistant"}, "admin")
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}
}
