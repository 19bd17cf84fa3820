package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/velodepot/bikeshop/internal/service"
)

// SignalHandler serves the rule-based inventory checks.
type SignalHandler struct {
	Signals *service.SignalService
}

func NewSignalHandler(s *service.SignalService) *SignalHandler {
	return &SignalHandler{Signals: s}
}

// List computes and returns the current findings.  Nothing is
// persisted; every call reflects the live inventory.
func (h *SignalHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	signals, err := h.Signals.Signals(ctx)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"signals":      signals,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// Status reports which analysis features are available.  Text
// generation is deliberately not part of this service; the checks are
// deterministic rules.
func (h *SignalHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"signals_enabled":   true,
		"reporting_enabled": false,
	})
}
