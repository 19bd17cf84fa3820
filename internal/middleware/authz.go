package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/velodepot/bikeshop/internal/auth"
)

// UserID returns the authenticated user's ID from context, or false
// when JWTAuth has not run (or rejected the request).
func UserID(c echo.Context) (uint64, bool) {
	v, ok := c.Get("user_id").(uint64)
	return v, ok
}

// RequireAnyRole allows the request when the user holds at least one
// of the given roles (OR semantics).  A cache loader failure denies
// the request; authorization fails closed.
func RequireAnyRole(cache *auth.RoleCache, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := UserID(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			grants, err := cache.Resolve(c.Request().Context(), id)
			if err != nil {
				c.Logger().Errorf("authz: resolve grants for user %d: %v", id, err)
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			if !grants.HasAnyRole(roles...) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireAllPermissions allows the request only when the user holds
// every one of the given permissions (AND semantics).  Fails closed on
// loader errors.
func RequireAllPermissions(cache *auth.RoleCache, perms ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := UserID(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			grants, err := cache.Resolve(c.Request().Context(), id)
			if err != nil {
				c.Logger().Errorf("authz: resolve grants for user %d: %v", id, err)
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			if !grants.HasAllPermissions(perms...) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
