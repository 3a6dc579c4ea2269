package restapi

import (
	"errors"

	"github.com/fittrack/fitness-tracker-api/internal/points"
	"github.com/fittrack/fitness-tracker-api/internal/query"
	"github.com/fittrack/fitness-tracker-api/internal/tsdb"
	"github.com/fittrack/fitness-tracker-api/internal/writebuffer"
	lhttp "github.com/fittrack/fitness-tracker-api/pkg/http"
)

// ToHttpError maps the domain errors onto HTTP errors. Anything unknown keeps a zero code
// so that it is logged and answered with a generic 500.
func ToHttpError(err error) *lhttp.HttpError {
	if err == nil {
		return nil
	}

	var invalidPoint *points.ValidationError
	var full *writebuffer.QueueFullError
	var invalidQuery *query.InvalidRangeError
	var unavailable *tsdb.BackendUnavailableError
	var herr *lhttp.HttpError

	switch {
	case errors.As(err, &herr):
		return herr
	case errors.As(err, &invalidPoint):
		ret := lhttp.NewBadRequest(invalidPoint.Error()).WithDetails(lhttp.ErrorDetail{
			Field:   invalidPoint.Field,
			Message: invalidPoint.Reason,
			Type:    "value_error",
		})
		ret.Err = err
		return ret
	case errors.As(err, &full):
		ret := lhttp.NewTooManyRequests(full.Error())
		ret.Err = err
		return ret
	case errors.As(err, &invalidQuery):
		ret := lhttp.NewBadRequest(invalidQuery.Error())
		ret.Err = err
		return ret
	case errors.As(err, &unavailable):
		ret := lhttp.NewServiceUnavailable("metrics backend is unavailable")
		ret.Err = err
		return ret
	case errors.Is(err, writebuffer.ErrClosed):
		ret := lhttp.NewServiceUnavailable("shutting down")
		ret.Err = err
		return ret
	}
	return &lhttp.HttpError{Err: err}
}
