package app

import (
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"io"
	"os"
	"os/signal"
	"syscall"
)

type CloseFunc func() error

func (instance *Instance) AddCloseFunc(fn CloseFunc) {
	instance.AddCloser(&closeWrapper{fn: fn})
}

type closeWrapper struct {
	fn CloseFunc
}

func (w *closeWrapper) Close() error {
	return w.fn()
}

// AddCloser registers a closer. Closers run one at a time in reverse registration order,
// so a component is closed before the components it was built on.
func (instance *Instance) AddCloser(closer io.Closer) {
	instance.mu.Lock()
	defer instance.mu.Unlock()
	instance.closers = append(instance.closers, closer)
}

// Stop asks WaitForFinish to shut down. It can be called more than once.
func (instance *Instance) Stop(failed bool) {
	if failed {
		instance.failed.Store(true)
	}
	instance.stopOnce.Do(func() {
		close(instance.stop)
	})
}

// Close cancels the root context and runs every closer, collecting their errors.
func (instance *Instance) Close() error {
	instance.cancel()

	instance.mu.Lock()
	closers := instance.closers
	instance.closers = nil
	instance.mu.Unlock()

	var result *multierror.Error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (instance *Instance) WaitForFinish() {
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigint)

	select {
	case sig := <-sigint:
		log.Printf("received %s, shutting down", sig)
	case <-instance.stop:
		log.Printf("stop requested, shutting down")
	}

	if err := instance.Close(); err != nil {
		log.Errorf("failed to close: %s", err)
		instance.failed.Store(true)
	}

	if instance.Failed() {
		os.Exit(1)
	}
	log.Printf("shutdown complete")
}
