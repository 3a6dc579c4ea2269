package sbhttpserver

import (
	"net/http"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/fittrack/fitness-tracker-api/pkg/app"
)

// Serve starts listening in the background. The server is shut down by the app closers,
// waiting at most ShutdownTimeout for requests in flight.
func (b *Instance) Serve() error {
	if b.config.EnableProfiling {
		b.registerProfileHandlers()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	b.app.AddCloseFunc(func() error {
		ctx, cancel := app.BackgroundTimeoutContextDuration(b.config.ShutdownTimeout)
		defer cancel()
		log.Printf("shutting down http server")
		err := b.server.Shutdown(ctx)
		wg.Wait()
		return err
	})

	log.Printf("serving at port %d", b.config.Port)
	go func() {
		defer wg.Done()
		err := b.server.ListenAndServe()

		if err != http.ErrServerClosed {
			log.Errorf("failed to run server: %s", err)
			b.app.Stop(true)
		}
	}()

	return nil
}
