//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/fittrack/fitness-tracker-api/internal/config"
	"github.com/fittrack/fitness-tracker-api/internal/docstore"
	"github.com/fittrack/fitness-tracker-api/internal/points"
	"github.com/fittrack/fitness-tracker-api/internal/restapi"
	"github.com/fittrack/fitness-tracker-api/internal/server"
	"github.com/fittrack/fitness-tracker-api/internal/service"
	"github.com/fittrack/fitness-tracker-api/internal/tsdb"
	"github.com/fittrack/fitness-tracker-api/internal/writebuffer"
	"github.com/fittrack/fitness-tracker-api/pkg/app"
	interceptors_inflight "github.com/fittrack/fitness-tracker-api/pkg/interceptors/in-flight"
	sbhttpserver "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/server"
	ltime "github.com/fittrack/fitness-tracker-api/pkg/time"
)

// wire up the dependencies.
func InitializeDependencies() (*dependencies, error) {
	wire.Build(config.NewConfigFromEnv, app.NewInstance,
		ltime.NewWallWatch, wire.Bind(new(ltime.Watch), new(ltime.WallWatch)),
		sbhttpserver.NewConfigFromEnv, sbhttpserver.NewBaseInterceptorsConfigFromEnv, sbhttpserver.NewInstance,
		interceptors_inflight.NewConfigFromEnv, interceptors_inflight.NewInterceptor,
		tsdb.NewConfigFromEnv, tsdb.NewInflux,
		wire.Bind(new(tsdb.Backend), new(*tsdb.Influx)), wire.Bind(new(writebuffer.Writer), new(*tsdb.Influx)),
		docstore.NewConfigFromEnv, docstore.NewInstance,
		points.NewConfigFromEnv, points.NewValidator,
		writebuffer.NewConfigFromEnv, writebuffer.New,
		service.NewConfigFromEnv, service.NewMetricsService,
		restapi.NewConfigFromEnv, restapi.NewMetricsAPI, wire.Bind(new(restapi.Metrics), new(*service.MetricsService)),
		server.NewMetricsServer, server.NewHealthServer, server.NewHttpServers,
		newDependencies)
	return &dependencies{}, nil
}
