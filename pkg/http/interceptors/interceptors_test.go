package interceptors

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	lhttptest "github.com/fittrack/fitness-tracker-api/pkg/http/test"
	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
	sbhttptest "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/test"
)

func TestDefaultContentType(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		recorder := httptest.NewRecorder()
		request := sbhttptest.RequestGenerator(recorder).Draw(t, "request")
		handler := sbhttptest.HandlerGenerator().Draw(t, "handler")

		HttpServerDefaultContentTypeInterceptor("application/json")(request, handler)

		if recorder.Code != http.StatusNoContent {
			assert.NotEmpty(t, recorder.Header().Get("Content-Type"))
		}
	})
}

func TestDefaultContentTypeKeepsHandlerChoice(t *testing.T) {
	recorder := httptest.NewRecorder()
	request := &sbhttpbase.Request{Writer: recorder, Request: httptest.NewRequest(http.MethodGet, "/", nil)}

	HttpServerDefaultContentTypeInterceptor("application/json")(request, func(request *sbhttpbase.Request) {
		request.Writer.Header().Set("Content-Type", "text/plain")
		request.Writer.WriteHeader(http.StatusOK)
	})

	assert.Equal(t, "text/plain", recorder.Header().Get("Content-Type"))
}

func TestRecoverInterceptor(t *testing.T) {
	recorder := httptest.NewRecorder()
	request := &sbhttpbase.Request{Writer: recorder, Request: httptest.NewRequest(http.MethodGet, "/api/metrics/stats", nil)}

	HttpServerRecoverInterceptor()(request, func(request *sbhttpbase.Request) {
		panic("unexpected")
	})

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"path":"/api/metrics/stats"`)
}

func TestRecoverInterceptorRethrowsAbort(t *testing.T) {
	recorder := httptest.NewRecorder()
	request := &sbhttpbase.Request{Writer: recorder, Request: httptest.NewRequest(http.MethodGet, "/", nil)}

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		HttpServerRecoverInterceptor()(request, func(request *sbhttpbase.Request) {
			panic(http.ErrAbortHandler)
		})
	})
}

func TestCorsInterceptor(t *testing.T) {
	tables := []struct {
		name          string
		cfg           CorsConfig
		method        string
		origin        string
		preflight     bool
		code          int
		allowedOrigin string
		credentials   string
		nextCalled    bool
	}{
		{"wildcard", CorsConfig{AllowedOrigins: []string{"*"}}, http.MethodGet, "http://grafana.local", false, http.StatusOK, "*", "", true},
		{"wildcard ignores credentials", CorsConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true}, http.MethodPost, "http://evil.local", false, http.StatusOK, "*", "", true},
		{"listed", CorsConfig{AllowedOrigins: []string{"http://app.local"}}, http.MethodPost, "http://app.local", false, http.StatusOK, "http://app.local", "", true},
		{"listed with credentials", CorsConfig{AllowedOrigins: []string{"http://app.local"}, AllowCredentials: true}, http.MethodGet, "http://app.local", false, http.StatusOK, "http://app.local", "true", true},
		{"not listed", CorsConfig{AllowedOrigins: []string{"http://app.local"}, AllowCredentials: true}, http.MethodGet, "http://evil.local", false, http.StatusOK, "", "", true},
		{"no origin", CorsConfig{AllowedOrigins: []string{"*"}}, http.MethodGet, "", false, http.StatusOK, "", "", true},
		{"disabled", CorsConfig{}, http.MethodGet, "http://app.local", false, http.StatusOK, "", "", true},
		{"preflight", CorsConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true, MaxAge: 10 * time.Minute}, http.MethodOptions, "http://app.local", true, http.StatusNoContent, "*", "", false},
		{"listed preflight", CorsConfig{AllowedOrigins: []string{"http://app.local"}, MaxAge: 10 * time.Minute}, http.MethodOptions, "http://app.local", true, http.StatusNoContent, "http://app.local", "", false},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			req := httptest.NewRequest(table.method, "/api/metrics", nil)
			if table.origin != "" {
				req.Header.Set("Origin", table.origin)
			}
			if table.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
				req.Header.Set("Access-Control-Request-Headers", "content-type")
			}

			nextCalled := false
			HttpServerCorsInterceptor(table.cfg)(
				&sbhttpbase.Request{Writer: recorder, Request: req},
				func(request *sbhttpbase.Request) {
					nextCalled = true
					request.Writer.WriteHeader(http.StatusOK)
				},
			)

			assert.Equal(t, table.code, recorder.Code)
			assert.Equal(t, table.nextCalled, nextCalled)
			assert.Equal(t, table.allowedOrigin, recorder.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, table.credentials, recorder.Header().Get("Access-Control-Allow-Credentials"))
			if table.preflight {
				assert.Equal(t, http.MethodPost, recorder.Header().Get("Access-Control-Allow-Methods"))
				assert.Equal(t, "content-type", strings.ToLower(recorder.Header().Get("Access-Control-Allow-Headers")))
				assert.Equal(t, "600", recorder.Header().Get("Access-Control-Max-Age"))
			}
		})
	}
}

func TestCorsHeadersAreValid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		recorder := httptest.NewRecorder()
		request := sbhttptest.RequestGenerator(recorder).Draw(t, "request")
		request.Request.Method = rapid.SampledFrom([]string{http.MethodGet, http.MethodPost}).Draw(t, "method")
		request.Request.Header.Set("Origin", lhttptest.UrlGenerator().Draw(t, "origin"))
		request.Request.Header.Del("Access-Control-Request-Method")
		handler := sbhttptest.HandlerGenerator().Draw(t, "handler")

		HttpServerCorsInterceptor(CorsConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true})(request, handler)

		lhttptest.CheckHeaders(t, http.Header{"Access-Control-Allow-Origin": {"*"}}, recorder.Header())
		assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Credentials"))
	})
}
