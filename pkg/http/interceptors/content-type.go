package interceptors

import (
	"github.com/fittrack/fitness-tracker-api/pkg/http/wrappers"
	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
)

// HttpServerDefaultContentTypeInterceptor sets Content-Type to t on responses whose handler
// did not choose one.
func HttpServerDefaultContentTypeInterceptor(t string) sbhttpbase.MiddlewareFunc {
	return func(request *sbhttpbase.Request, next sbhttpbase.HandleFunc) {
		w := &wrappers.CustomizableResponseWriter{
			Response: request.Writer,
			OnWriteHeader: func(w *wrappers.CustomizableResponseWriter, code int) {
				if code != 204 && request.Writer.Header().Get("Content-Type") == "" {
					request.Writer.Header().Set("Content-Type", t)
				}
				request.Writer.WriteHeader(code)
			},
		}
		next(request.WithWriter(w))
	}
}
