package context_cancel

import (
	"context"
	"errors"

	"github.com/fittrack/fitness-tracker-api/pkg/http/wrappers"
	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
)

// StatusClientClosedRequest is recorded for requests whose client went away before the
// response was started.
const StatusClientClosedRequest = 499

type Interceptor struct{}

func (interceptor Interceptor) ToHTTP() sbhttpbase.MiddlewareFunc {
	return func(request *sbhttpbase.Request, next sbhttpbase.HandleFunc) {
		wrapper := wrappers.CustomizableResponseWriter{
			Response: request.Writer,
			OnWriteHeader: func(w *wrappers.CustomizableResponseWriter, code int) {
				if err := request.Request.Context().Err(); err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						code = StatusClientClosedRequest
						w.Code = code
					}
				}
				request.Writer.WriteHeader(code)
			},
		}

		next(request.WithWriter(&wrapper))
	}
}
