package api

import (
	"context"
	"net/http"
	"time"

	domrepo "GSRSwap/internal/domain/repository"
	xhttp "GSRSwap/pkg/http"

	"github.com/labstack/echo/v4"
)

type HealthHandler struct {
	store domrepo.TimeSeriesStore
}

func NewHealthHandler(store domrepo.TimeSeriesStore) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Health(ctx); err != nil {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": err.Error()})
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok", "store": "ok"})
}
