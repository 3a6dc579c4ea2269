package main

import (
	"errors"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/fittrack/fitness-tracker-api/internal/config"
	"github.com/fittrack/fitness-tracker-api/internal/docstore"
	"github.com/fittrack/fitness-tracker-api/internal/service"
	"github.com/fittrack/fitness-tracker-api/internal/tsdb"
	"github.com/fittrack/fitness-tracker-api/internal/writebuffer"
	"github.com/fittrack/fitness-tracker-api/pkg/app"
	sbhttpserver "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/server"
)

type dependencies struct {
	cfg     *config.Config
	app     *app.Instance
	svc     *sbhttpserver.Instance
	servers []sbhttpserver.Server
	influx  *tsdb.Influx
	store   *docstore.Instance
	buffer  *writebuffer.Buffer
	metrics *service.MetricsService
}

func newDependencies(app *app.Instance, cfg *config.Config, svc *sbhttpserver.Instance,
	servers []sbhttpserver.Server, influx *tsdb.Influx, store *docstore.Instance,
	buffer *writebuffer.Buffer, metrics *service.MetricsService) *dependencies {
	return &dependencies{
		cfg:     cfg,
		app:     app,
		svc:     svc,
		servers: servers,
		influx:  influx,
		store:   store,
		buffer:  buffer,
		metrics: metrics,
	}
}

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	log.SetReportCaller(true)

	deps, err := InitializeDependencies()
	if err != nil {
		var startupErr *app.StartupError
		if errors.As(err, &startupErr) {
			log.Errorf("failed to start %s: %s", startupErr.Component, startupErr.Err)
		} else {
			log.Errorf("failed to initialize app: %s", err)
		}
		os.Exit(1)
	}

	if level, err := log.ParseLevel(deps.cfg.LogLevel); err != nil {
		log.Warnf("unknown log level %q, keeping %s", deps.cfg.LogLevel, log.GetLevel())
	} else {
		log.SetLevel(level)
	}
	log.Printf("starting fitness tracker api (%s)", deps.cfg.Environment)

	// Closers run in reverse: the http server stops first, then the buffer drains, then the
	// stores it writes to are closed.
	deps.app.AddCloser(deps.influx)
	deps.app.AddCloser(deps.store)
	deps.app.AddCloseFunc(func() error {
		result := deps.metrics.Drain(deps.cfg.ShutdownDrainTimeout)
		if result.Failed > 0 {
			log.Warnf("%d buffered points were not written before shutdown: %v", result.Failed, result.Err)
		}
		return nil
	})

	if err := deps.svc.Register(sbhttpserver.NewMultiServer(deps.servers)); err != nil {
		panic(err)
	}
	if err := deps.svc.Serve(); err != nil {
		panic(err)
	}

	deps.buffer.Start()

	// Wait for the server to finish
	deps.app.WaitForFinish()
}
