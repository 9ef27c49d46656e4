package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/locvowork/employee_directory/internal/logger"
)

type StorePinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store StorePinger
}

func NewHealthHandler(store StorePinger) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) HealthzHandler(c echo.Context) error {
	ctx := c.Request().Context()
	logger.DebugLog(ctx, "Performing health checks...")

	if err := h.store.Ping(ctx); err != nil {
		logger.WarnLog(ctx, "Health check failed: store ping: %v", err)
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Store: "unavailable"})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Store: "ok"})
}
