package lgzip

import (
	"bufio"
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
)

var gzipWriterPool = &sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(io.Discard)
	},
}

var bufferedWriterPool = &sync.Pool{
	New: func() interface{} {
		return bufio.NewWriter(io.Discard)
	},
}

func acceptsGzip(r *http.Request) bool {
	for _, encoding := range r.Header.Values("Accept-Encoding") {
		for _, localEncoding := range strings.Split(encoding, ",") {
			// q values are ignored, gzip;q=0 is not worth the parsing
			name, _, _ := strings.Cut(strings.TrimSpace(localEncoding), ";")
			if strings.EqualFold(name, "gzip") {
				return true
			}
		}
	}
	return false
}

// responseWriter compresses the body. Answers that carry no body, such as 204, are passed
// through untouched.
type responseWriter struct {
	http.ResponseWriter
	buffered    *bufio.Writer
	gzip        *gzip.Writer
	wroteHeader bool
	started     bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	if code == http.StatusNoContent || code == http.StatusNotModified {
		w.ResponseWriter.WriteHeader(code)
		return
	}

	headers := w.ResponseWriter.Header()
	headers.Set("Content-Encoding", "gzip")
	headers.Del("Content-Length")
	w.ResponseWriter.WriteHeader(code)

	w.started = true
	w.buffered = bufferedWriterPool.Get().(*bufio.Writer)
	w.buffered.Reset(w.ResponseWriter)
	w.gzip = gzipWriterPool.Get().(*gzip.Writer)
	w.gzip.Reset(w.buffered)
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if !w.started {
		return w.ResponseWriter.Write(p)
	}
	return w.gzip.Write(p)
}

// Flush pushes everything compressed so far to the client.
func (w *responseWriter) Flush() {
	if w.started {
		w.gzip.Flush()
		w.buffered.Flush()
	}
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *responseWriter) close() {
	if !w.started {
		return
	}
	w.gzip.Close()
	w.buffered.Flush()
	w.gzip.Reset(io.Discard)
	w.buffered.Reset(io.Discard)
	gzipWriterPool.Put(w.gzip)
	bufferedWriterPool.Put(w.buffered)
}

var _ http.Flusher = &responseWriter{}

func HttpServerCompressResponseInterceptor() sbhttpbase.MiddlewareFunc {
	return func(request *sbhttpbase.Request, next sbhttpbase.HandleFunc) {
		request.Writer.Header().Add("Vary", "Accept-Encoding")
		if !acceptsGzip(request.Request) {
			next(request)
			return
		}

		// Don't pass the information downstream to avoid double encoding
		request.Request.Header.Del("Accept-Encoding")

		writer := &responseWriter{ResponseWriter: request.Writer}
		defer writer.close()

		next(request.WithWriter(writer))
	}
}
