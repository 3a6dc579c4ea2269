package sbhttpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dimfeld/httptreemux"

	"github.com/fittrack/fitness-tracker-api/pkg/app"
	lconfig "github.com/fittrack/fitness-tracker-api/pkg/config"
	interceptors_inflight "github.com/fittrack/fitness-tracker-api/pkg/interceptors/in-flight"
	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
)

type Config struct {
	Port              int           `env:"SERVER_HTTP_PORT" envDefault:"3000"`
	ReadTimeout       time.Duration `env:"SERVER_HTTP_READ_TIMEOUT"  envDefault:"60s"`
	ReadHeaderTimeout time.Duration `env:"SERVER_HTTP_READ_HEADER_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"SERVER_HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout       time.Duration `env:"SERVER_HTTP_IDLE_TIMEOUT" envDefault:"60s"` // Close idle connections after 60s
	MaxHeaderBytes    int           `env:"SERVER_HTTP_MAX_HEADER_BYTES"`
	ShutdownTimeout   time.Duration `env:"SERVER_HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	EnableProfiling   bool          `env:"SERVER_HTTP_ENABLE_PROFILING"`
}

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Instance struct {
	app    *app.Instance
	router *httptreemux.TreeMux
	server *http.Server
	config *Config
	base   []sbhttpbase.RegistrableMiddleware

	// methods lists the registered methods per path, answered on OPTIONS
	methods map[string][]string
}

func NewInstance(cfg *Config, baseCfg *BaseInterceptorsConfig, limiter *interceptors_inflight.Interceptor, app *app.Instance) (*Instance, error) {
	router := httptreemux.New()
	router.RedirectTrailingSlash = false

	localServer := &http.Server{
		Handler:           router,
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	return &Instance{
		app:     app,
		config:  cfg,
		router:  router,
		server:  localServer,
		base:    GetBaseInterceptors(baseCfg, limiter),
		methods: make(map[string][]string),
	}, nil
}

func (instance *Instance) Register(server Server) error {
	instance.app.AddCloseFunc(func() error {
		err := server.Shutdown()
		return err
	})

	instance.registerStatusHandlers(server)

	if err := instance.registerHandlers(server); err != nil {
		return err
	}

	return nil
}

// Handler exposes the router, mostly for tests that drive it through httptest.
func (instance *Instance) Handler() http.Handler {
	return instance.router
}
