package app

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
)

// Instance owns the process lifecycle: the root context, the stop signal and the closers
// run on shutdown.
type Instance struct {
	mu       sync.Mutex
	closers  []io.Closer
	failed   atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewInstance() *Instance {
	ctx, cancel := context.WithCancel(context.Background())
	return &Instance{
		stop:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (instance *Instance) Context() context.Context {
	return instance.ctx
}

func ContextFromInstance(instance *Instance) context.Context {
	return instance.ctx
}

func (instance *Instance) Failed() bool {
	return instance.failed.Load()
}
