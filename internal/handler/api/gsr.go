package api

import (
	"time"

	"GSRSwap/internal/domain/models"
	"GSRSwap/internal/usecase"
	xhttp "GSRSwap/pkg/http"
	xlogger "GSRSwap/pkg/logger"

	"github.com/labstack/echo/v4"
)

// GSRHandler serves the ratio analysis and signal endpoints.
type GSRHandler struct {
	logger    *xlogger.Logger
	analytics *usecase.AnalyticsUseCase
}

func NewGSRHandler(logger *xlogger.Logger, analytics *usecase.AnalyticsUseCase) *GSRHandler {
	return &GSRHandler{logger: logger, analytics: analytics}
}

func (h *GSRHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/gsr/current", h.Current)
	g.GET("/gsr/stats", h.Stats)
	g.GET("/gsr/correlations", h.Correlations)
	g.GET("/regimes", h.Regimes)
	g.GET("/signals/current", h.CurrentSignal)
	g.POST("/signals/evaluate", h.EvaluateSignal)
}

func (h *GSRHandler) Current(c echo.Context) error {
	res, err := h.analytics.Current(c.Request().Context())
	if err != nil {
		return h.fail(c, "gsr current", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *GSRHandler) Stats(c echo.Context) error {
	req := &models.StatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, err := parseOptionalRange(req.From, req.To)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	windows, err := xhttp.ParseWindows(req.Windows, models.DefaultStatWindows())
	if err != nil {
		return xhttp.AppErrorResponse(c, badRequest("windows", err.Error()))
	}

	res, err := h.analytics.RollingStats(c.Request().Context(), from, to, windows)
	if err != nil {
		return h.fail(c, "gsr stats", err)
	}
	return xhttp.ListResponse(c, res, int64(len(res)))
}

func (h *GSRHandler) Correlations(c echo.Context) error {
	req := &models.CorrelationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, err := parseOptionalRange(req.From, req.To)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	windows, err := xhttp.ParseWindows(req.Windows, models.DefaultCorrelationWindows())
	if err != nil {
		return xhttp.AppErrorResponse(c, badRequest("windows", err.Error()))
	}

	res, err := h.analytics.Correlations(c.Request().Context(), from, to, windows, xhttp.SplitCSV(req.Variables))
	if err != nil {
		return h.fail(c, "gsr correlations", err)
	}
	return xhttp.ListResponse(c, res, int64(len(res)))
}

func (h *GSRHandler) Regimes(c echo.Context) error {
	req := &models.RegimesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, err := parseOptionalRange(req.From, req.To)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	res, err := h.analytics.Regimes(c.Request().Context(), from, to)
	if err != nil {
		return h.fail(c, "regimes", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *GSRHandler) CurrentSignal(c echo.Context) error {
	res, err := h.analytics.CurrentSignal(c.Request().Context())
	if err != nil {
		return h.fail(c, "current signal", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *GSRHandler) EvaluateSignal(c echo.Context) error {
	req := &models.SignalEvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.analytics.EvaluateSignal(*req)
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *GSRHandler) fail(c echo.Context, op string, err error) error {
	appErr := appError(err)
	if appErr.Status >= 500 {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// parseOptionalRange parses from/to when present; zero values let the use
// case apply its default range.
func parseOptionalRange(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = xhttp.ParseDate(from); err != nil {
			return start, end, badRequest("from", err.Error())
		}
	}
	if to != "" {
		if end, err = xhttp.ParseDate(to); err != nil {
			return start, end, badRequest("to", err.Error())
		}
	}
	return start, end, nil
}
