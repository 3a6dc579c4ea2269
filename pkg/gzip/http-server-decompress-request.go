package lgzip

import (
	"bufio"
	"compress/gzip"
	"net/http"
	"sync"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/fittrack/fitness-tracker-api/pkg/http/wrappers"
	sbhttp "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http"
	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
)

var gzipReaderPool = &sync.Pool{
	New: func() interface{} {
		return &gzip.Reader{}
	},
}

var bufferedReaderPool = &sync.Pool{
	New: func() interface{} {
		return bufio.NewReader(nil)
	},
}

// HttpServerDecompressRequestInterceptor inflates gzip encoded bodies. The inflated body is
// cut off at maxSize so that a small compressed body cannot expand without bound; zero
// leaves it unbounded.
func HttpServerDecompressRequestInterceptor(maxSize resource.Quantity) sbhttpbase.MiddlewareFunc {
	limit := maxSize.Value()
	return func(request *sbhttpbase.Request, next sbhttpbase.HandleFunc) {
		if request.Request.Header.Get("Content-Encoding") != "gzip" {
			next(request)
			return
		}

		bufferedReader := bufferedReaderPool.Get().(*bufio.Reader)
		defer bufferedReaderPool.Put(bufferedReader)
		bufferedReader.Reset(request.Request.Body)

		gzipReader := gzipReaderPool.Get().(*gzip.Reader)
		defer gzipReaderPool.Put(gzipReader)
		if err := gzipReader.Reset(bufferedReader); err != nil {
			sbhttp.ReturnError(request.Writer, request.Request, http.StatusBadRequest, "failed to decompress request", err)
			return
		}

		request = request.WithBody(&wrappers.Request{
			Original: request.Request.Body,
			Reader:   gzipReader,
		})
		request.Request.Header.Del("Content-Encoding")
		request.Request.ContentLength = -1
		if limit > 0 {
			request = request.WithBody(http.MaxBytesReader(request.Writer, request.Request.Body, limit))
		}

		next(request)
	}
}
