package server

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/fittrack/fitness-tracker-api/internal/config"
	"github.com/fittrack/fitness-tracker-api/internal/docstore"
	"github.com/fittrack/fitness-tracker-api/internal/tsdb"
	sbhttp "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http"
	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
	sbhttpserver "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/server"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type dependency struct {
	name   string
	pinger Pinger
}

type HealthResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Environment string `json:"environment"`
}

type HealthServer struct {
	sbhttpserver.NopServer
	cfg          *config.Config
	dependencies []dependency
}

func NewHealthServer(cfg *config.Config, backend tsdb.Backend, store *docstore.Instance) *HealthServer {
	return newHealthServer(cfg, dependency{"influxdb", backend}, dependency{"mongodb", store})
}

func newHealthServer(cfg *config.Config, dependencies ...dependency) *HealthServer {
	return &HealthServer{
		cfg:          cfg,
		dependencies: dependencies,
	}
}

// Ready fails if any of the backing stores cannot be pinged
func (s *HealthServer) Ready(ctx context.Context) error {
	for _, dep := range s.dependencies {
		if err := dep.pinger.Ping(ctx); err != nil {
			return errors.Wrapf(err, "%s is not reachable", dep.name)
		}
	}
	return nil
}

// Live doesn't do any check. Just answering the request is enough evidence we're alive
func (s *HealthServer) Live(ctx context.Context) error {
	return nil
}

func (s *HealthServer) GetHandlers() []sbhttpserver.HandleDescription {
	return []sbhttpserver.HandleDescription{
		{Path: "/health", Method: "GET", Handler: s.health},
		{NotFound: true, Handler: notFound},
	}
}

func (s *HealthServer) health(request *sbhttpbase.Request) {
	sbhttp.WriteJson(request.Writer, http.StatusOK, HealthResponse{
		Status:      "ok",
		Message:     "Fitness Tracker API Running",
		Environment: s.cfg.Environment,
	})
}

func notFound(request *sbhttpbase.Request) {
	sbhttp.ReturnError(request.Writer, request.Request, http.StatusNotFound, "Not Found", nil)
}

func NewHttpServers(metrics *MetricsServer, health *HealthServer) []sbhttpserver.Server {
	return []sbhttpserver.Server{
		metrics,
		health,
	}
}
