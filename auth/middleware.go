package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"ticketing/entity"
)

const userContextKey = "current-user"

// Middleware extracts the caller's identity from the Authorization header or
// the session cookie. A missing or invalid token is not an error here: public
// routes stay reachable, and command handlers gate themselves with CurrentUser.
func Middleware(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				if cookie, err := c.Cookie("session"); err == nil {
					token = cookie.Value
				}
			}

			if token != "" {
				if user, err := verifier.Verify(token); err == nil {
					c.Set(userContextKey, user)
				}
			}

			return next(c)
		}
	}
}

// CurrentUser returns the verified identity or ErrUnauthorized when the
// request carried none.
func CurrentUser(c echo.Context) (entity.User, error) {
	user, ok := c.Get(userContextKey).(entity.User)
	if !ok {
		return entity.User{}, entity.ErrUnauthorized
	}
	return user, nil
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
