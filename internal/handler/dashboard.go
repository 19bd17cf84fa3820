package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/velodepot/bikeshop/internal/service"
)

// DashboardHandler serves the shop overview numbers.
type DashboardHandler struct {
	Dashboard *service.DashboardService
}

func NewDashboardHandler(d *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{Dashboard: d}
}

// Stats returns inventory and work order aggregates plus the last five
// sales.
func (h *DashboardHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stats, err := h.Dashboard.Stats(ctx)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
