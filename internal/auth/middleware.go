package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	userContextKey = "user"
	// SessionCookie carries the token for browser requests
	SessionCookie = "session"
)

// User is an authenticated caller
type User struct {
	ID string
}

// Middleware reads a bearer token (or the session cookie) and adds the user
// to the context when it verifies. Requests without a valid token continue
// anonymously; a nil verifier treats every request as anonymous.
func Middleware(v *Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if v == nil {
				return next(c)
			}
			token := bearerToken(c.Request())
			if token == "" {
				return next(c)
			}

			user, err := v.Verify(token)
			if err != nil {
				c.Logger().Debugf("Ignoring invalid token: %v", err)
				return next(c)
			}
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// RequireUser rejects requests that Middleware did not authenticate
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if GetUser(c) == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "Authentication required",
				})
			}
			return next(c)
		}
	}
}

// GetUser retrieves the authenticated user from the Echo context
// Returns nil if no user is authenticated
func GetUser(c echo.Context) *User {
	user, ok := c.Get(userContextKey).(*User)
	if !ok {
		return nil
	}
	return user
}

// SetUser attaches user to the context
func SetUser(c echo.Context, user *User) {
	c.Set(userContextKey, user)
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get(echo.HeaderAuthorization); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}
