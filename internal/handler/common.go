// Package handler contains the HTTP handlers.  Handlers bind and
// validate the transport shape, delegate to the services and map
// business errors to HTTP responses; they hold no business rules of
// their own.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/velodepot/bikeshop/internal/middleware"
	"github.com/velodepot/bikeshop/internal/service"
)

// actorID extracts the authenticated user ID set by the JWT middleware.
// A missing ID means the route was wired without JWTAuth, which is a
// server bug, so 401 is the safe answer.
func actorID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return id, nil
}

// writeServiceError maps a business error to its HTTP response.  Any
// error that is not a *service.Error is an internal failure and must
// not leak details to the client.
func writeServiceError(c echo.Context, err error) error {
	var se *service.Error
	if errors.As(err, &se) {
		return c.JSON(se.Status, echo.Map{"error": se.Message, "code": se.Code})
	}
	c.Logger().Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// pageParams reads ?page and ?limit with the listing defaults.
func pageParams(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
