package interceptors

import (
	"fmt"
	"io"
	"net/http"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/fittrack/fitness-tracker-api/pkg/http/wrappers"
	sbhttp "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http"
	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
)

// HttpServerLimitSizeInterceptor rejects bodies larger than size. A declared length is
// checked up front; a chunked body is cut off once it goes over the limit. Zero disables it.
func HttpServerLimitSizeInterceptor(size resource.Quantity) sbhttpbase.MiddlewareFunc {
	if size.Value() == 0 {
		return func(request *sbhttpbase.Request, next sbhttpbase.HandleFunc) {
			next(request)
		}
	}

	limit := size.Value()
	return func(request *sbhttpbase.Request, next sbhttpbase.HandleFunc) {
		length := request.Request.ContentLength
		if length > limit {
			sbhttp.ReturnError(request.Writer, request.Request, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body is bigger than %d bytes", limit), nil)
			return
		}

		if length < 0 {
			next(request.WithBody(http.MaxBytesReader(request.Writer, request.Request.Body, limit)))
			return
		}

		next(request.WithBody(&wrappers.Request{
			Original: request.Request.Body,
			Reader:   io.LimitReader(request.Request.Body, length),
		}))
	}
}
