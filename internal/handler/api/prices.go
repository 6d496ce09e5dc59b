package api

import (
	"GSRSwap/internal/domain/models"
	"GSRSwap/internal/usecase"
	xhttp "GSRSwap/pkg/http"
	xlogger "GSRSwap/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PricesHandler serves stored daily closes.
type PricesHandler struct {
	logger *xlogger.Logger
	prices *usecase.PriceUseCase
}

func NewPricesHandler(logger *xlogger.Logger, prices *usecase.PriceUseCase) *PricesHandler {
	return &PricesHandler{logger: logger, prices: prices}
}

func (h *PricesHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/prices")
	g.GET("", h.Series)
	g.GET("/latest/:symbol", h.Latest)
}

func (h *PricesHandler) Series(c echo.Context) error {
	req := &models.PricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, err := parseOptionalRange(req.From, req.To)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	res, err := h.prices.Series(c.Request().Context(), req.Symbol, from, to)
	if err != nil {
		return h.fail(c, "price series", err)
	}
	return xhttp.ListResponse(c, res, int64(len(res)))
}

func (h *PricesHandler) Latest(c echo.Context) error {
	res, err := h.prices.Latest(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return h.fail(c, "latest price", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PricesHandler) fail(c echo.Context, op string, err error) error {
	appErr := appError(err)
	if appErr.Status >= 500 {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
