package sbhttpserver

import (
	"k8s.io/apimachinery/pkg/api/resource"

	lconfig "github.com/fittrack/fitness-tracker-api/pkg/config"
	lgzip "github.com/fittrack/fitness-tracker-api/pkg/gzip"
	"github.com/fittrack/fitness-tracker-api/pkg/http/interceptors"
	interceptors_inflight "github.com/fittrack/fitness-tracker-api/pkg/interceptors/in-flight"
	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
)

type BaseInterceptorsConfig struct {
	MaxBodySize    resource.Quantity `env:"SERVER_HTTP_MAX_BODY_SIZE" envDefault:"1Mi"`
	Cors           interceptors.CorsConfig
	DisableLimiter bool `env:"SERVER_HTTP_DISABLE_LIMITER"`
	DisableGzip    bool `env:"SERVER_HTTP_DISABLE_GZIP"`
}

func NewBaseInterceptorsConfigFromEnv() (*BaseInterceptorsConfig, error) {
	var cfg BaseInterceptorsConfig
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetBaseInterceptors returns the middleware put in front of every user handler. CORS runs
// first so that rejected requests still carry the CORS headers. The body size limit applies
// to the bytes on the wire and again to the inflated body.
func GetBaseInterceptors(cfg *BaseInterceptorsConfig, limiter *interceptors_inflight.Interceptor) []sbhttpbase.RegistrableMiddleware {
	ret := []sbhttpbase.RegistrableMiddleware{}
	if cfg == nil {
		return ret
	}

	ret = append(ret, interceptors.HttpServerCorsInterceptor(cfg.Cors))

	if !cfg.DisableLimiter && limiter != nil {
		ret = append(ret, limiter.ToHTTP())
	}

	ret = append(ret, interceptors.HttpServerLimitSizeInterceptor(cfg.MaxBodySize))

	if !cfg.DisableGzip {
		ret = append(ret,
			lgzip.HttpServerDecompressRequestInterceptor(cfg.MaxBodySize),
			lgzip.HttpServerCompressResponseInterceptor(),
		)
	}
	return ret
}
