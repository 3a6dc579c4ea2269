package interceptors

import (
	"net/http"
	"time"

	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
)

type CorsConfig struct {
	AllowedOrigins   []string      `env:"SERVER_HTTP_CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	AllowCredentials bool          `env:"SERVER_HTTP_CORS_ALLOW_CREDENTIALS" envDefault:"false"`
	MaxAge           time.Duration `env:"SERVER_HTTP_CORS_MAX_AGE" envDefault:"10m"`
}

func (cfg CorsConfig) wildcard() bool {
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func (cfg CorsConfig) options() cors.Options {
	credentials := cfg.AllowCredentials
	if credentials && cfg.wildcard() {
		log.Warnf("cors: credentials are never allowed together with a wildcard origin")
		credentials = false
	}
	return cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "Content-Encoding", "X-Requested-With"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: credentials,
		MaxAge:           int(cfg.MaxAge.Seconds()),
	}
}

// HttpServerCorsInterceptor answers preflight requests and adds the CORS headers to
// responses for allowed origins. An empty origin list turns CORS off.
func HttpServerCorsInterceptor(cfg CorsConfig) sbhttpbase.MiddlewareFunc {
	if len(cfg.AllowedOrigins) == 0 {
		return func(request *sbhttpbase.Request, next sbhttpbase.HandleFunc) {
			next(request)
		}
	}

	c := cors.New(cfg.options())
	return func(request *sbhttpbase.Request, next sbhttpbase.HandleFunc) {
		c.ServeHTTP(request.Writer, request.Request, func(w http.ResponseWriter, r *http.Request) {
			next(request)
		})
	}
}
