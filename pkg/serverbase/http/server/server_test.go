package sbhttpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/fittrack/fitness-tracker-api/pkg/app"
	"github.com/fittrack/fitness-tracker-api/pkg/http/interceptors"
	sbhttp "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http"
	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
)

type testServer struct {
	NopServer
	ready    error
	shutdown error
	handlers []HandleDescription
}

func (s *testServer) Ready(ctx context.Context) error  { return s.ready }
func (s *testServer) Shutdown() error                  { return s.shutdown }
func (s *testServer) GetHandlers() []HandleDescription { return s.handlers }

func newTestInstance(t *testing.T, server Server) *Instance {
	baseCfg := &BaseInterceptorsConfig{
		MaxBodySize: resource.MustParse("16"),
		Cors:        interceptors.CorsConfig{AllowedOrigins: []string{"*"}},
	}
	instance, err := NewInstance(&Config{Port: 0}, baseCfg, nil, app.NewInstance())
	require.NoError(t, err)
	require.NoError(t, instance.Register(server))
	return instance
}

func serve(instance *Instance, method, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	instance.Handler().ServeHTTP(w, req)
	return w
}

func echoHandler(request *sbhttpbase.Request) {
	sbhttp.WriteJson(request.Writer, http.StatusOK, map[string]string{"id": request.Params["id"]})
}

func TestRoutesUserHandlers(t *testing.T) {
	instance := newTestInstance(t, &testServer{handlers: []HandleDescription{
		{Path: "/items/:id", Method: "GET", Handler: echoHandler},
	}})

	for _, path := range []string{"/items/42", "/items/42/"} {
		w := serve(instance, "GET", path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"id":"42"}`, w.Body.String())
	}

	w := serve(instance, "POST", "/items/42", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestDefaultOk(t *testing.T) {
	instance := newTestInstance(t, &testServer{handlers: []HandleDescription{
		{Path: "/silent", Method: "POST", Handler: func(request *sbhttpbase.Request) {}},
	}})

	w := serve(instance, "POST", "/silent", "{}", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBodySizeLimit(t *testing.T) {
	instance := newTestInstance(t, &testServer{handlers: []HandleDescription{
		{Path: "/items", Method: "POST", Handler: echoHandler},
	}})

	w := serve(instance, "POST", "/items", strings.Repeat("x", 17), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestNotFoundHandler(t *testing.T) {
	instance := newTestInstance(t, &testServer{handlers: []HandleDescription{
		{NotFound: true, Handler: func(request *sbhttpbase.Request) {
			sbhttp.ReturnError(request.Writer, request.Request, http.StatusNotFound, "no such route", nil)
		}},
	}})

	w := serve(instance, "GET", "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["error"])
	assert.Equal(t, "/nowhere", body["path"])
}

func TestOptionsRoutes(t *testing.T) {
	instance := newTestInstance(t, &testServer{handlers: []HandleDescription{
		{Path: "/items", Method: "GET", Handler: echoHandler},
		{Path: "/items", Method: "POST", Handler: echoHandler},
	}})

	w := serve(instance, "OPTIONS", "/items", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Allow"))

	w = serve(instance, "OPTIONS", "/items", "", map[string]string{
		"Origin":                         "http://localhost:5173",
		"Access-Control-Request-Method":  "POST",
		"Access-Control-Request-Headers": "content-type",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "content-type", strings.ToLower(w.Header().Get("Access-Control-Allow-Headers")))
}

func TestStatusHandlers(t *testing.T) {
	server := &testServer{}
	instance := newTestInstance(t, server)

	w := serve(instance, "GET", "/_status/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	server.ready = errors.New("influxdb is down")
	w = serve(instance, "GET", "/_status/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unavailable","error":"influxdb is down"}`, w.Body.String())
}

func TestRegisterAddsShutdownCloser(t *testing.T) {
	a := app.NewInstance()
	instance, err := NewInstance(&Config{}, &BaseInterceptorsConfig{}, nil, a)
	require.NoError(t, err)
	require.NoError(t, instance.Register(&testServer{shutdown: errors.New("boom")}))

	assert.ErrorContains(t, a.Close(), "boom")
}

func TestMultiServer(t *testing.T) {
	first := &testServer{shutdown: errors.New("first"), handlers: []HandleDescription{{Path: "/a", Method: "GET"}}}
	second := &testServer{shutdown: errors.New("second"), handlers: []HandleDescription{{Path: "/b", Method: "GET"}}}
	multi := NewMultiServer([]Server{first, &NopServer{}, second})

	assert.NoError(t, multi.Ready(context.Background()))
	assert.NoError(t, multi.Live(context.Background()))
	assert.Len(t, multi.GetHandlers(), 2)

	err := multi.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "second")

	second.ready = errors.New("not ready")
	assert.EqualError(t, multi.Ready(context.Background()), "not ready")
	assert.NoError(t, NewMultiServer(nil).Shutdown())
}

func TestBaseInterceptorsConfigDefaults(t *testing.T) {
	cfg, err := NewBaseInterceptorsConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, int64(1024*1024), cfg.MaxBodySize.Value())
	assert.Equal(t, []string{"*"}, cfg.Cors.AllowedOrigins)
	assert.False(t, cfg.Cors.AllowCredentials)
	assert.Len(t, GetBaseInterceptors(cfg, nil), 4)
	cfg.DisableGzip = true
	assert.Len(t, GetBaseInterceptors(cfg, nil), 2)
	assert.Empty(t, GetBaseInterceptors(nil, nil))
}
