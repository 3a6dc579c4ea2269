package writebuffer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	log "github.com/sirupsen/logrus"

	"github.com/fittrack/fitness-tracker-api/internal/points"
	"github.com/fittrack/fitness-tracker-api/internal/tsdb"
	ltime "github.com/fittrack/fitness-tracker-api/pkg/time"
)

// Buffer batches points in memory and writes them from a single background goroutine.
// Enqueue never waits for the backend. A batch is written when BatchSize points are
// buffered or when the oldest buffered point has waited FlushInterval.
type Buffer struct {
	cfg    Config
	writer Writer
	watch  ltime.Watch

	// mu guards entries, inFlight, started and closed. Backend I/O never happens while it is held.
	mu       sync.Mutex
	entries  []BatchEntry
	inFlight int
	started  bool
	closed   bool

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}

	// ctx aborts the flush in progress when Drain runs out of time.
	ctx    context.Context
	cancel context.CancelFunc

	enqueued atomic.Uint64
	rejected atomic.Uint64
	flushed  atomic.Uint64
	dropped  atomic.Uint64
	flushes  atomic.Uint64
	retries  atomic.Uint64
}

func New(cfg *Config, writer Writer, watch ltime.Watch) *Buffer {
	c := *cfg
	c.normalize()
	ctx, cancel := context.WithCancel(context.Background())
	return &Buffer{
		cfg:     c,
		writer:  writer,
		watch:   watch,
		entries: make([]BatchEntry, 0, c.BatchSize),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the flush goroutine. Calling it more than once has no effect.
func (b *Buffer) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started || b.closed {
		return
	}
	b.started = true
	log.Printf("write buffer started (batch size %d, flush interval %s, capacity %d)",
		b.cfg.BatchSize, b.cfg.FlushInterval, b.cfg.QueueCapacity)
	go b.run()
}

// Enqueue stores a copy of p. It fails with QueueFullError when the buffer already owns
// QueueCapacity points and with ErrClosed once Drain has started.
func (b *Buffer) Enqueue(p points.MetricPoint) error {
	entry := BatchEntry{Point: p.Copy(), EnqueuedAt: b.watch.Now()}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if len(b.entries)+b.inFlight >= b.cfg.QueueCapacity {
		b.mu.Unlock()
		b.rejected.Add(1)
		return &QueueFullError{Capacity: b.cfg.QueueCapacity}
	}
	b.entries = append(b.entries, entry)
	notify := len(b.entries) == 1 || len(b.entries) >= b.cfg.BatchSize
	b.mu.Unlock()

	b.enqueued.Add(1)
	if notify {
		select {
		case b.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries) + b.inFlight
}

func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	buffered, inFlight := len(b.entries), b.inFlight
	b.mu.Unlock()
	return Stats{
		Enqueued: b.enqueued.Load(),
		Rejected: b.rejected.Load(),
		Flushed:  b.flushed.Load(),
		Dropped:  b.dropped.Load(),
		Flushes:  b.flushes.Load(),
		Retries:  b.retries.Load(),
		Buffered: buffered,
		InFlight: inFlight,
	}
}

func (b *Buffer) run() {
	defer close(b.stopped)

	timer := time.NewTimer(b.cfg.FlushInterval)
	defer timer.Stop()

	for {
		select {
		case <-b.done:
			return
		default:
		}

		batch, wait := b.cut(false)
		if len(batch) > 0 {
			b.flush(b.ctx, batch)
			continue
		}

		var tick <-chan time.Time
		if wait > 0 {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(wait)
			tick = timer.C
		}

		select {
		case <-b.wake:
		case <-tick:
		case <-b.done:
			return
		}
	}
}

// cut takes the next batch off the front of the buffer. Unless force is set, a partial
// batch is only taken once its oldest entry is due; otherwise wait is the time left until
// then. wait is zero when nothing is buffered.
func (b *Buffer) cut(force bool) (batch []BatchEntry, wait time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) == 0 {
		return nil, 0
	}
	n := len(b.entries)
	if n < b.cfg.BatchSize && !force {
		due := b.entries[0].EnqueuedAt.Add(b.cfg.FlushInterval)
		if left := due.Sub(b.watch.Now()); left > 0 {
			return nil, left
		}
	}
	if n > b.cfg.BatchSize {
		n = b.cfg.BatchSize
	}

	batch = make([]BatchEntry, n)
	copy(batch, b.entries[:n])
	remaining := make([]BatchEntry, len(b.entries)-n, max(len(b.entries)-n, b.cfg.BatchSize))
	copy(remaining, b.entries[n:])
	b.entries = remaining
	b.inFlight += n
	return batch, 0
}

// requeue puts an interrupted batch back at the front so that ordering is kept.
func (b *Buffer) requeue(batch []BatchEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(batch, b.entries...)
	b.inFlight -= len(batch)
}

func (b *Buffer) release(batch []BatchEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight -= len(batch)
}

// flush writes batch, retrying transient failures with exponential backoff. A batch that
// still fails is dropped. When ctx ends mid-flush the batch is requeued and requeued is true.
func (b *Buffer) flush(ctx context.Context, batch []BatchEntry) (result FlushResult, requeued bool) {
	pts := make([]points.MetricPoint, len(batch))
	for i, e := range batch {
		pts[i] = e.Point
	}

	var attempts uint
	err := retry.Do(
		func() error {
			attempts++
			return b.writer.Write(ctx, pts)
		},
		retry.Attempts(b.cfg.RetryAttempts),
		retry.Delay(b.cfg.RetryBaseDelay),
		retry.MaxDelay(b.cfg.RetryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(tsdb.IsTransient),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.Debugf("write of %d points failed on attempt %d: %s", len(pts), n+1, err)
		}),
	)
	if attempts > 1 {
		b.retries.Add(uint64(attempts - 1))
	}

	if err != nil && ctx.Err() != nil {
		log.Debugf("write of %d points interrupted, returning them to the buffer", len(pts))
		b.requeue(batch)
		return FlushResult{}, true
	}

	b.release(batch)
	b.flushes.Add(1)
	if err != nil {
		result = FlushResult{Failed: len(batch), Kind: tsdb.Classify(err), Err: err}
		b.dropped.Add(uint64(len(batch)))
		log.Errorf("dropping batch of %d points after %d attempts: %s", len(batch), attempts, err)
	} else {
		result = FlushResult{Succeeded: len(batch)}
		b.flushed.Add(uint64(len(batch)))
		log.Debugf("flushed %d points", len(batch))
	}
	if b.cfg.OnFlush != nil {
		b.cfg.OnFlush(result)
	}
	return result, false
}

// Drain stops the flush goroutine and writes everything still buffered, giving up after
// timeout. Points left over are counted as failed and logged. Enqueue fails with ErrClosed
// from the moment Drain is called. Only the first call does any work.
func (b *Buffer) Drain(timeout time.Duration) FlushResult {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return FlushResult{}
	}
	b.closed = true
	started := b.started
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	stopFlush := context.AfterFunc(ctx, b.cancel)
	defer stopFlush()
	defer b.cancel()

	close(b.done)
	if started {
		<-b.stopped
	}

	log.Printf("draining write buffer (%d points, timeout %s)", b.Len(), timeout)
	var result FlushResult
	for ctx.Err() == nil {
		batch, _ := b.cut(true)
		if len(batch) == 0 {
			break
		}
		r, requeued := b.flush(ctx, batch)
		if requeued {
			break
		}
		result.Add(r)
	}

	b.mu.Lock()
	left := len(b.entries)
	b.entries = nil
	b.mu.Unlock()
	if left > 0 {
		b.dropped.Add(uint64(left))
		result.Add(FlushResult{Failed: left, Kind: tsdb.KindTimeout, Err: ctx.Err()})
		log.Warnf("write buffer drain timed out, %d points were not written", left)
	}
	log.Printf("write buffer drained: %d points written, %d failed", result.Succeeded, result.Failed)
	return result
}
