package api

import (
	"context"
	"errors"
	"net/http"

	"GSRSwap/internal/domain/models"
	"GSRSwap/internal/usecase"
	xhttp "GSRSwap/pkg/http"
)

// appError translates domain errors into their HTTP form. Anything not
// recognized becomes a 500 with the cause kept out of the body.
func appError(err error) *xhttp.AppError {
	var (
		ve  *models.ValidationError
		nde *models.NoDataError
		ide *models.InsufficientDataError
		ae  *xhttp.AppError
	)
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.As(err, &ve):
		return xhttp.NewAppError("ERR_VALIDATION", ve.Field, ve.Message, http.StatusBadRequest)
	case errors.As(err, &nde):
		return xhttp.NewAppError("ERR_NO_DATA", "", nde.Error(), http.StatusNotFound)
	case errors.As(err, &ide):
		return xhttp.NewAppError("ERR_INSUFFICIENT_DATA", "", "not enough historical data, run data refresh", http.StatusUnprocessableEntity).
			WithParam("required", ide.Required).
			WithParam("available", ide.Got)
	case errors.Is(err, usecase.ErrNoPrice):
		return xhttp.NotFoundError(err.Error())
	case errors.Is(err, usecase.ErrComputeRunning):
		return xhttp.ConflictError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.ServiceUnavailableError("upstream timed out").WithError(err)
	}
	return xhttp.InternalError("internal error").WithError(err)
}

func badRequest(field, message string) *xhttp.AppError {
	return xhttp.NewAppError("ERR_VALIDATION", field, message, http.StatusBadRequest)
}
