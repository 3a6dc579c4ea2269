package tsdb

import (
	"context"
	"sync"
	"time"

	"github.com/fittrack/fitness-tracker-api/internal/points"
	"github.com/fittrack/fitness-tracker-api/internal/query"
)

// BackendMock records writes in memory. WriteErrors are returned in order, one per call,
// before writes start succeeding.
type BackendMock struct {
	mu          sync.Mutex
	Batches     [][]points.MetricPoint
	WriteErrors []error
	WriteDelay  time.Duration
	WriteCalls  int

	QueryRaw   func(stmt query.Statement) query.Raw
	QueryErr   error
	Statements []query.Statement

	PingErr error
	Closed  bool
}

var _ Backend = &BackendMock{}

func (b *BackendMock) Write(ctx context.Context, batch []points.MetricPoint) error {
	if b.WriteDelay > 0 {
		select {
		case <-time.After(b.WriteDelay):
		case <-ctx.Done():
			return &Error{Op: "write", Kind: Classify(ctx.Err()), Err: ctx.Err()}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.WriteCalls++
	if len(b.WriteErrors) > 0 {
		err := b.WriteErrors[0]
		b.WriteErrors = b.WriteErrors[1:]
		if err != nil {
			return err
		}
	}
	copied := make([]points.MetricPoint, len(batch))
	copy(copied, batch)
	b.Batches = append(b.Batches, copied)
	return nil
}

func (b *BackendMock) Query(ctx context.Context, stmt query.Statement) (query.Raw, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Statements = append(b.Statements, stmt)
	if b.QueryErr != nil {
		return nil, b.QueryErr
	}
	if b.QueryRaw == nil {
		return query.NewTestingRaw(), nil
	}
	return b.QueryRaw(stmt), nil
}

func (b *BackendMock) Ping(ctx context.Context) error {
	return b.PingErr
}

func (b *BackendMock) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Closed = true
	return nil
}

func (b *BackendMock) Written() []points.MetricPoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	ret := make([]points.MetricPoint, 0)
	for _, batch := range b.Batches {
		ret = append(ret, batch...)
	}
	return ret
}

func (b *BackendMock) BatchSizes() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	ret := make([]int, len(b.Batches))
	for i, batch := range b.Batches {
		ret[i] = len(batch)
	}
	return ret
}

func (b *BackendMock) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.WriteCalls
}
