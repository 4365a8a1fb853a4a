package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	priv, pub := newKeyPair(t)
	issuer, err := NewIssuer(priv, "", time.Hour)
	require.NoError(t, err)
	verifier, err := NewVerifier(pub, "")
	require.NoError(t, err)

	token, err := issuer.Sign("owner-1")
	require.NoError(t, err)

	e := echo.New()
	e.Use(Middleware(verifier))
	e.GET("/me", func(c echo.Context) error {
		if user := GetUser(c); user != nil {
			return c.String(http.StatusOK, user.ID)
		}
		return c.String(http.StatusOK, "anonymous")
	})
	e.GET("/private", func(c echo.Context) error {
		return c.String(http.StatusOK, GetUser(c).ID)
	}, RequireUser())

	tests := []struct {
		name   string
		path   string
		setup  func(r *http.Request)
		status int
		body   string
	}{
		{
			name:   "bearer token",
			path:   "/me",
			setup:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) },
			status: http.StatusOK,
			body:   "owner-1",
		},
		{
			name:   "session cookie",
			path:   "/me",
			setup:  func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token}) },
			status: http.StatusOK,
			body:   "owner-1",
		},
		{
			name:   "invalid token stays anonymous",
			path:   "/me",
			setup:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
			status: http.StatusOK,
			body:   "anonymous",
		},
		{
			name:   "non-bearer scheme is ignored",
			path:   "/me",
			setup:  func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") },
			status: http.StatusOK,
			body:   "anonymous",
		},
		{
			name:   "protected route with token",
			path:   "/private",
			setup:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) },
			status: http.StatusOK,
			body:   "owner-1",
		},
		{
			name:   "protected route without token",
			path:   "/private",
			setup:  func(r *http.Request) {},
			status: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestMiddlewareWithoutVerifier(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Middleware(nil)(func(c echo.Context) error {
		assert.Nil(t, GetUser(c))
		return c.NoContent(http.StatusNoContent)
	})
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
