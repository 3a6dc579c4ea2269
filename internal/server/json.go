package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	lhttp "github.com/fittrack/fitness-tracker-api/pkg/http"
	sbhttp "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http"
	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
)

// decodeBody reads a single JSON value into a T. Numbers are kept as json.Number so that
// generic fields are not rounded before validation.
func decodeBody[T any](request *sbhttpbase.Request) (*T, *lhttp.HttpError) {
	return decode[T](request, false)
}

// decodeOptionalBody is decodeBody for endpoints where every member is optional.
func decodeOptionalBody[T any](request *sbhttpbase.Request) (*T, *lhttp.HttpError) {
	return decode[T](request, true)
}

func decode[T any](request *sbhttpbase.Request, optional bool) (*T, *lhttp.HttpError) {
	decoder := json.NewDecoder(request.Request.Body)
	decoder.UseNumber()

	var body T
	if err := decoder.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF) && optional:
			return &body, nil
		case errors.Is(err, io.EOF):
			return nil, lhttp.NewBadRequest("body is required")
		case errors.As(err, &tooLarge):
			return nil, &lhttp.HttpError{Code: http.StatusRequestEntityTooLarge, Message: tooLarge.Error(), Err: err}
		}
		herr := lhttp.NewBadRequest(fmt.Sprintf("invalid JSON body: %s", err))
		herr.Err = err
		return nil, herr
	}
	return &body, nil
}

func returnError(request *sbhttpbase.Request, herr *lhttp.HttpError) {
	if herr.Code == http.StatusTooManyRequests {
		request.Writer.Header().Set("Retry-After", "1")
	}
	sbhttp.ReturnHttpError(request.Writer, request.Request, herr, nil)
}

func writeResult[T any](request *sbhttpbase.Request, code int, result *T, herr *lhttp.HttpError) {
	if herr != nil {
		returnError(request, herr)
		return
	}
	sbhttp.WriteJson(request.Writer, code, result)
}
