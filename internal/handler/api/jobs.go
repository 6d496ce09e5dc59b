package api

import (
	"context"
	"time"

	"GSRSwap/internal/domain/models"
	"GSRSwap/internal/usecase"
	xhttp "GSRSwap/pkg/http"
	xlogger "GSRSwap/pkg/logger"

	"github.com/labstack/echo/v4"
)

// JobsHandler lets operators trigger the compute job out of schedule.
type JobsHandler struct {
	logger  *xlogger.Logger
	job     *usecase.ComputeJob
	timeout time.Duration
}

func NewJobsHandler(logger *xlogger.Logger, job *usecase.ComputeJob) *JobsHandler {
	return &JobsHandler{logger: logger, job: job, timeout: 10 * time.Minute}
}

func (h *JobsHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/jobs/compute", h.Compute)
}

// Compute runs the job. The run is detached from the request context so a
// client disconnect does not abort a half-written refresh. With async set the
// handler answers 202 at once and the outcome is only logged.
func (h *JobsHandler) Compute(c echo.Context) error {
	req := &models.ComputeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	parent := context.WithoutCancel(c.Request().Context())
	if req.Async {
		go h.runInBackground(parent, req.LookbackDays)
		return xhttp.AcceptedResponse(c, map[string]interface{}{
			"status":        "started",
			"lookback_days": req.LookbackDays,
		})
	}

	ctx, cancel := context.WithTimeout(parent, h.timeout)
	defer cancel()

	rep, err := h.job.Run(ctx, req.LookbackDays)
	if err != nil {
		appErr := appError(err)
		if appErr.Status >= 500 {
			h.logger.Error("compute job error", xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, rep)
}

func (h *JobsHandler) runInBackground(parent context.Context, lookbackDays int) {
	ctx, cancel := context.WithTimeout(parent, h.timeout)
	defer cancel()

	rep, err := h.job.Run(ctx, lookbackDays)
	if err != nil {
		h.logger.Error("background compute job error", xlogger.Int("lookback_days", lookbackDays), xlogger.Error(err))
		return
	}
	h.logger.Info("background compute job finished", xlogger.Any("report", rep))
}
