package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sitewave/sitewave/internal/server/http/common"
)

// GuardsAdmins ensures the user is an admin
func GuardsAdmins() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := ResolvePrincipal(c)
			if p.IsZero() {
				return c.JSON(http.StatusUnauthorized, &common.ErrorResponse{
					Message: "Authentication required",
					Status:  "unauthorized",
				})
			}

			if !p.IsAdmin() {
				return c.JSON(http.StatusForbidden, &common.ErrorResponse{
					Message: "Admin access required",
					Status:  "forbidden",
				})
			}

			return next(c)
		}
	}
}
