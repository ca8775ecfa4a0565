package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sitewave/sitewave/internal/auth"
	"github.com/sitewave/sitewave/internal/server/http/common"
)

const principalContextKey = "principal"

// ResolvesPrincipalByToken extracts and verifies the bearer token, if any.
// Missing or invalid tokens leave the principal unset; the guards below
// decide whether that is an error.
func ResolvesPrincipalByToken(tokens *auth.TokenManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)

			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found || raw == "" {
				return next(c)
			}

			p, err := tokens.Parse(raw)
			if err != nil {
				return next(c)
			}

			c.Set(principalContextKey, p)

			return next(c)
		}
	}
}

// ResolvePrincipal returns the principal set by ResolvesPrincipalByToken,
// or the zero principal if the request is anonymous.
func ResolvePrincipal(c echo.Context) auth.Principal {
	p, ok := c.Get(principalContextKey).(auth.Principal)
	if !ok {
		return auth.Principal{}
	}
	return p
}

// GuardsUsers rejects anonymous requests.
func GuardsUsers() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ResolvePrincipal(c).IsZero() {
				return c.JSON(http.StatusUnauthorized, &common.ErrorResponse{
					Message: "Authentication required",
					Status:  "unauthorized",
				})
			}

			return next(c)
		}
	}
}
