package api

import (
	"GSRSwap/internal/domain/models"
	"GSRSwap/internal/usecase"
	xhttp "GSRSwap/pkg/http"
	xlogger "GSRSwap/pkg/logger"

	"github.com/labstack/echo/v4"
)

type AlertsHandler struct {
	logger *xlogger.Logger
	uc     *usecase.AlertUseCase
}

func NewAlertsHandler(logger *xlogger.Logger, uc *usecase.AlertUseCase) *AlertsHandler {
	return &AlertsHandler{logger: logger, uc: uc}
}

func (h *AlertsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/alerts")
	g.GET("/defaults", h.Defaults)
	g.POST("/evaluate", h.Evaluate)
}

func (h *AlertsHandler) Defaults(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.uc.Defaults())
}

func (h *AlertsHandler) Evaluate(c echo.Context) error {
	req := &models.AlertsEvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Evaluate(c.Request().Context(), *req)
	if err != nil {
		appErr := appError(err)
		if appErr.Status >= 500 {
			h.logger.Error("alerts evaluate usecase error", xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, res)
}
