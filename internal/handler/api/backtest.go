package api

import (
	"GSRSwap/internal/domain/models"
	"GSRSwap/internal/usecase"
	xhttp "GSRSwap/pkg/http"
	xlogger "GSRSwap/pkg/logger"

	"github.com/labstack/echo/v4"
)

type BacktestHandler struct {
	logger *xlogger.Logger
	uc     *usecase.BacktestUseCase
}

func NewBacktestHandler(logger *xlogger.Logger, uc *usecase.BacktestUseCase) *BacktestHandler {
	return &BacktestHandler{logger: logger, uc: uc}
}

func (h *BacktestHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/backtest")
	g.POST("/run", h.Run)
	g.POST("/optimize", h.Optimize)
	g.GET("/history", h.History)
	g.GET("/optimal-params", h.OptimalParams)
}

func (h *BacktestHandler) Run(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cfg, err := usecase.ConfigFromRequest(*req)
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}

	res, err := h.uc.Run(c.Request().Context(), cfg)
	if err != nil {
		return h.fail(c, "backtest run", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *BacktestHandler) Optimize(c echo.Context) error {
	req := &models.OptimizeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Optimize(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "backtest optimize", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *BacktestHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.uc.History(c.Request().Context(), req.Limit)
	if err != nil {
		return h.fail(c, "backtest history", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *BacktestHandler) OptimalParams(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.uc.OptimalParams())
}

func (h *BacktestHandler) fail(c echo.Context, op string, err error) error {
	appErr := appError(err)
	if appErr.Status >= 500 {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
