package writebuffer

import (
	"context"
	"time"

	"github.com/fittrack/fitness-tracker-api/internal/points"
	"github.com/fittrack/fitness-tracker-api/internal/tsdb"
)

type Writer interface {
	Write(ctx context.Context, batch []points.MetricPoint) error
}

var _ Writer = tsdb.Backend(nil)

// BatchEntry is a point owned by the buffer. The point is a private copy and is never
// modified after enqueue.
type BatchEntry struct {
	Point      points.MetricPoint
	EnqueuedAt time.Time
}

type FlushResult struct {
	Succeeded int
	Failed    int
	Kind      tsdb.ErrorKind
	Err       error
}

// Add merges other into r. The kind and error of the latest failure win.
func (r *FlushResult) Add(other FlushResult) {
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
	if other.Err != nil {
		r.Kind = other.Kind
		r.Err = other.Err
	}
}

type Stats struct {
	Enqueued uint64 `json:"enqueued"`
	Rejected uint64 `json:"rejected"`
	Flushed  uint64 `json:"flushed"`
	Dropped  uint64 `json:"dropped"`
	Flushes  uint64 `json:"flushes"`
	Retries  uint64 `json:"retries"`
	Buffered int    `json:"buffered"`
	InFlight int    `json:"in_flight"`
}
