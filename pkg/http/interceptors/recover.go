package interceptors

import (
	"net/http"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	sbhttp "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http"
	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
)

// HttpServerRecoverInterceptor turns a panicking handler into a 500 response.
// http.ErrAbortHandler is re-raised so that net/http aborts the connection silently.
func HttpServerRecoverInterceptor() sbhttpbase.MiddlewareFunc {
	return func(request *sbhttpbase.Request, next sbhttpbase.HandleFunc) {
		defer func() {
			if r := recover(); r != nil {
				if r == http.ErrAbortHandler {
					panic(r)
				}
				log.Errorf("panic serving %s %s: %v\n%s", request.Request.Method, request.Request.URL.Path, r, debug.Stack())
				sbhttp.ReturnError(request.Writer, request.Request, http.StatusInternalServerError, "Internal Server Error", nil)
			}
		}()
		next(request)
	}
}
