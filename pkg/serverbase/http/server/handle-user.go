package sbhttpserver

import (
	"net/http"
	"strings"

	"github.com/dimfeld/httptreemux"
	log "github.com/sirupsen/logrus"

	"github.com/fittrack/fitness-tracker-api/pkg/http/interceptors"
	context_cancel "github.com/fittrack/fitness-tracker-api/pkg/interceptors/context-cancel"
	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
)

func (instance *Instance) registerHandlers(server Server) error {
	for _, handle := range server.GetHandlers() {
		if handle.NotFound {
			log.Printf("registering not found handler")
			instance.registerNotFoundHandler(handle)
		} else {
			log.Printf("registering handler %s %s", handle.Method, handle.Path)
			if err := instance.registerHandler(handle); err != nil {
				return err
			}
		}
	}

	return nil
}

func (instance *Instance) createTailMiddlewares(path, method string) []sbhttpbase.MiddlewareFunc {
	return []sbhttpbase.MiddlewareFunc{
		interceptors.HttpServerDefaultContentTypeInterceptor("application/json").Register(path, method),
		exhaustRequest,
		defaultOk,
		context_cancel.Interceptor{}.ToHTTP(),
		interceptors.HttpServerRecoverInterceptor().Register(path, method),
	}
}

// compose wraps handler with the base interceptors, the handle middleware and the tail, in that order.
func (instance *Instance) compose(path, method string, own []sbhttpbase.RegistrableMiddleware, handler sbhttpbase.HandleFunc) sbhttpbase.HandleFunc {
	middleware := make([]sbhttpbase.MiddlewareFunc, 0, len(instance.base)+len(own)+5)
	for _, m := range instance.base {
		middleware = append(middleware, m.Register(path, method))
	}
	for _, m := range own {
		middleware = append(middleware, m.Register(path, method))
	}
	middleware = append(middleware, instance.createTailMiddlewares(path, method)...)

	return ComposeMiddleware(middleware, handler)
}

func (instance *Instance) registerHandler(handle HandleDescription) error {
	instance.RegisterHandler(&HandleDescription{
		Path:    handle.Path,
		Method:  handle.Method,
		Handler: instance.compose(handle.Path, handle.Method, handle.Middleware, handle.Handler),
	})

	if handle.Method != http.MethodOptions {
		instance.registerOptions(handle.Path, handle.Method)
	}
	return nil
}

// registerOptions answers OPTIONS on every user path so that CORS preflights reach the
// base interceptors. Only the first method seen for a path registers the route.
func (instance *Instance) registerOptions(path, method string) {
	methods, seen := instance.methods[path]
	if method == "*" {
		method = "GET, POST, PUT, PATCH, DELETE"
	}
	instance.methods[path] = append(methods, method)
	if seen {
		return
	}

	allow := func(request *sbhttpbase.Request) {
		request.Writer.Header().Set("Allow", strings.Join(append(instance.methods[path], http.MethodOptions), ", "))
		request.Writer.WriteHeader(http.StatusNoContent)
	}
	instance.RegisterHandler(&HandleDescription{
		Path:    path,
		Method:  http.MethodOptions,
		Handler: instance.compose(path, http.MethodOptions, nil, allow),
	})
}

func (instance *Instance) registerNotFoundHandler(handle HandleDescription) {
	instance.RegisterHandler(&HandleDescription{
		NotFound: true,
		Handler:  instance.compose("*", "*", handle.Middleware, handle.Handler),
	})
}

type notFoundHandler struct {
	handler sbhttpbase.HandleFunc
}

func (h *notFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler(&sbhttpbase.Request{
		PathPattern: "*",
		Writer:      w,
		Request:     r,
	})
}

func handleWrapper(pathPattern string, handler sbhttpbase.HandleFunc) httptreemux.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		handler(&sbhttpbase.Request{
			PathPattern: pathPattern,
			Writer:      w,
			Request:     r,
			Params:      params,
		})
	}
}

// RegisterHandler adds handle to the router as is. "*" registers every common method and
// paths without a trailing slash also answer with one.
func (b *Instance) RegisterHandler(handle *HandleDescription) {
	if handle.NotFound {
		b.router.NotFoundHandler = (&notFoundHandler{
			handler: handle.Handler,
		}).ServeHTTP
		return
	}

	switch handle.Method {
	case "*":
		for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
			b.RegisterHandler(&HandleDescription{
				Path:    handle.Path,
				Method:  method,
				Handler: handle.Handler,
			})
		}
		return
	default:
		b.router.Handle(handle.Method, handle.Path, handleWrapper(handle.Path, handle.Handler))
	}

	if handle.Path[len(handle.Path)-1] != '/' && !strings.Contains(handle.Path, "*") {
		b.router.Handle(handle.Method, handle.Path+"/", handleWrapper(handle.Path, handle.Handler))
	}
}

func ComposeMiddleware(funcs []sbhttpbase.MiddlewareFunc, base sbhttpbase.HandleFunc) sbhttpbase.HandleFunc {
	for i := len(funcs) - 1; i >= 0; i-- {
		f := funcs[i]
		if f == nil {
			continue
		}
		oldBase := base
		base = func(request *sbhttpbase.Request) {
			f(request, oldBase)
		}
	}

	return base
}
