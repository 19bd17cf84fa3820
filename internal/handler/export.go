package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/velodepot/bikeshop/internal/repository"
	"github.com/velodepot/bikeshop/internal/service"
)

// ExportHandler serves the CSV downloads.
type ExportHandler struct {
	Bikes  *repository.BikeRepo
	Orders *repository.WorkOrderRepo
}

func NewExportHandler(bikes *repository.BikeRepo, orders *repository.WorkOrderRepo) *ExportHandler {
	return &ExportHandler{Bikes: bikes, Orders: orders}
}

// Bikes streams the full inventory as a CSV attachment.
func (h *ExportHandler) ExportBikes(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	bikes, err := h.Bikes.ListAllWithNames(ctx)
	if err != nil {
		return writeServiceError(c, err)
	}
	csvData, err := service.BikesCSV(bikes)
	if err != nil {
		return writeServiceError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="bikes.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(csvData))
}

// WorkOrders streams all work orders as a CSV attachment.
func (h *ExportHandler) ExportWorkOrders(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	orders, err := h.Orders.ListAllWithNames(ctx)
	if err != nil {
		return writeServiceError(c, err)
	}
	csvData, err := service.WorkOrdersCSV(orders)
	if err != nil {
		return writeServiceError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="workorders.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(csvData))
}
